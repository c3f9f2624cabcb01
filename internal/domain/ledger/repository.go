package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines read access to the transaction ledger. Writes happen
// only through lesson lifecycle transitions, so no mutating methods are
// exposed here.
type Repository interface {
	GetByLesson(ctx context.Context, lessonID uuid.UUID) (*Transaction, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*Transaction, error)
}

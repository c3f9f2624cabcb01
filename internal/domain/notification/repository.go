package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for reminder notifications.
// Creation happens atomically with the owning lesson, through the lesson
// repository.
type Repository interface {
	// ListDue returns unsent notifications with SendAt at or before dueBy.
	ListDue(ctx context.Context, dueBy time.Time) ([]*Notification, error)
	// MarkSent flips IsSent to true. Marking an already-sent notification
	// is a no-op, so a racing sweep cannot reset the flag.
	MarkSent(ctx context.Context, id uuid.UUID) error
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*Notification, error)
}

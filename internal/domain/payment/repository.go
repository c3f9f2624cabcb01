package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for teacher settlement batches.
type Repository interface {
	Create(ctx context.Context, p *TeacherPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*TeacherPayment, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*TeacherPayment, error)
	SetPaid(ctx context.Context, id uuid.UUID, at time.Time) error
	SetCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

package lesson

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tutoring_platform/internal/domain/ledger"
	"tutoring_platform/internal/domain/notification"
)

// Repository defines persistence operations for lessons and their paired
// ledger rows. Lifecycle transitions (Confirm, Complete, Cancel) are applied
// with a status guard inside a single database transaction, so a racing
// cancel and complete on the same row cannot both win.
type Repository interface {
	// Create persists the lesson together with its paired transaction and
	// reminder notification as one atomic unit.
	Create(ctx context.Context, les *Lesson, txn *ledger.Transaction, notif *notification.Notification) error

	GetByID(ctx context.Context, id uuid.UUID) (*Lesson, error)

	// Update applies non-status field changes. Status moves only through
	// the explicit transition methods below.
	Update(ctx context.Context, les *Lesson) error

	// Confirm moves PENDING → CONFIRMED. Returns ErrLessonFinalized when the
	// lesson exists but is not PENDING.
	Confirm(ctx context.Context, id uuid.UUID) (*Lesson, error)

	// Complete moves PENDING/CONFIRMED → COMPLETED, stamps CompletedAt and
	// mirrors the paired transaction to COMPLETED with PerformedTime = at.
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (*Lesson, error)

	// Cancel moves any non-COMPLETED status to CANCELLED and mirrors the
	// paired transaction with the reason and CancelledTime = at. Cancelling
	// an already-cancelled lesson re-stamps the reason and time.
	Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Lesson, error)

	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*Lesson, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*Lesson, error)

	// ListCompletedIn returns the subset of ids whose lessons are currently
	// COMPLETED. Unknown or non-completed ids are silently dropped.
	ListCompletedIn(ctx context.Context, ids []uuid.UUID) ([]*Lesson, error)

	// ListUpcoming returns PENDING lessons starting within [from, until] for
	// students with an active Telegram contact.
	ListUpcoming(ctx context.Context, from, until time.Time) ([]*UpcomingLesson, error)
}

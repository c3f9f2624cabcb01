package lesson

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a lesson. Transactions mirror a subset of
// these values (PENDING, COMPLETED, CANCELLED).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is defined out of s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Lesson is a scheduled teaching session between one teacher and one student.
// Corresponds to the 'lessons' table. Rows are never deleted; cancellation and
// completion are status changes.
type Lesson struct {
	ID          uuid.UUID
	TeacherID   uuid.UUID
	StudentID   uuid.UUID
	Name        string
	Subject     sql.NullString
	StartTime   time.Time
	EndTime     time.Time
	Price       decimal.Decimal // fixed once set at creation
	Status      Status
	MeetingLink sql.NullString
	CompletedAt sql.NullTime // set iff Status == COMPLETED
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpcomingLesson is the projection used by the upcoming-lesson alert sweep:
// a pending lesson joined with the data needed to address and compose the
// alert message.
type UpcomingLesson struct {
	LessonID          uuid.UUID
	Name              string
	StartTime         time.Time
	MeetingLink       sql.NullString
	StudentTelegramID int64
	TeacherFullName   string
}

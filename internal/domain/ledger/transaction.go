package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the financial state of a transaction. It mirrors the paired
// lesson's status and is only ever moved by lesson lifecycle transitions.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transaction is the ledger row recording the financial state of one lesson.
// Exactly one exists per lesson, created in the same database transaction as
// the lesson itself. Corresponds to the 'transactions' table.
type Transaction struct {
	ID            int64
	LessonID      uuid.UUID
	StudentID     uuid.UUID
	Amount        decimal.Decimal // copied from the lesson price at creation
	Status        Status
	Reason        sql.NullString
	CancelledTime sql.NullTime
	PerformedTime sql.NullTime
	CreatedAt     time.Time
}

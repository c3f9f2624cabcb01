package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TeacherPayment is a settlement batch over a set of completed lessons for
// one teacher. Corresponds to the 'teacher_payments' table. Amounts are
// computed once at creation from then-current lesson prices and never
// recomputed, so later edits to a lesson cannot retroactively change an
// existing batch.
type TeacherPayment struct {
	ID                 uuid.UUID
	TeacherID          uuid.UUID
	LessonIDs          []uuid.UUID
	TotalLessonAmount  decimal.Decimal // Σ price of covered lessons
	PlatformCommission decimal.Decimal // total × commission rate / 100
	TeacherAmount      decimal.Decimal // total − commission
	PaidAt             sql.NullTime
	CancelledAt        sql.NullTime
	IsCancelled        bool
	CancelledReason    sql.NullString
	Notes              sql.NullString
	CreatedAt          time.Time
}

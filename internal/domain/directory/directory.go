package directory

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Teacher is the profile the engine needs from the directory: the hourly
// rate used as the default lesson price, plus contact and activity flags.
type Teacher struct {
	ID          uuid.UUID
	FullName    string
	PhoneNumber string
	HourPrice   decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Student is the profile the engine needs for reminder delivery. TelegramID
// is set once the student registers their contact through the bot.
type Student struct {
	ID          uuid.UUID
	FirstName   string
	PhoneNumber string
	TelegramID  sql.NullInt64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasTelegramContact reports whether reminders can currently reach the
// student.
func (s *Student) HasTelegramContact() bool {
	return s.IsActive && s.TelegramID.Valid
}

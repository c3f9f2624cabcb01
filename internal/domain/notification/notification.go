package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a scheduled outbound reminder tied to one lesson and one
// student. Corresponds to the 'notifications' table. IsSent moves false→true
// exactly once; delivered rows are retained for audit, never deleted.
type Notification struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	LessonID  uuid.UUID
	Message   string
	SendAt    time.Time
	IsSent    bool
	CreatedAt time.Time
}

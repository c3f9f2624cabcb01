package meeting

import (
	"context"
	"time"

	"tutoring_platform/internal/domain/directory"
)

// Provider creates an online meeting for a lesson and returns its join link.
// A failure here is non-fatal to lesson creation; callers fall back to a
// placeholder link.
type Provider interface {
	CreateMeeting(ctx context.Context, teacher *directory.Teacher, student *directory.Student, start, end time.Time) (string, error)
}

package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the directory lookup the engine consumes. Profile CRUD is
// owned elsewhere; the engine only resolves parties and registers a
// student's Telegram contact.
type Repository interface {
	GetTeacher(ctx context.Context, id uuid.UUID) (*Teacher, error)
	GetStudent(ctx context.Context, id uuid.UUID) (*Student, error)
	GetStudentByPhone(ctx context.Context, phoneNumber string) (*Student, error)
	GetStudentByTelegramID(ctx context.Context, telegramID int64) (*Student, error)
	SetStudentTelegramID(ctx context.Context, id uuid.UUID, telegramID int64) error
}

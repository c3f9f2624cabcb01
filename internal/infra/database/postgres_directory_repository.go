package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"tutoring_platform/internal/domain/directory"
)

// Custom errors
var (
	ErrTeacherNotFound = fmt.Errorf("teacher not found")
	ErrStudentNotFound = fmt.Errorf("student not found")
)

// PostgresDirectoryRepository resolves teacher and student profiles. Profile
// CRUD lives outside this engine; only lookups and the Telegram contact
// registration are exposed.
type PostgresDirectoryRepository struct {
	db *sql.DB
}

func NewPostgresDirectoryRepository(db *sql.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (r *PostgresDirectoryRepository) GetTeacher(ctx context.Context, id uuid.UUID) (*directory.Teacher, error) {
	query := `SELECT id, full_name, phone_number, hour_price, is_active, created_at, updated_at
              FROM teachers WHERE id = $1`
	t := &directory.Teacher{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.FullName, &t.PhoneNumber,
		&t.HourPrice, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("error getting teacher by ID: %w", err)
	}
	return t, nil
}

func (r *PostgresDirectoryRepository) GetStudent(ctx context.Context, id uuid.UUID) (*directory.Student, error) {
	query := `SELECT id, first_name, phone_number, telegram_id, is_active, created_at, updated_at
              FROM students WHERE id = $1`
	return r.scanStudent(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresDirectoryRepository) GetStudentByPhone(ctx context.Context, phoneNumber string) (*directory.Student, error) {
	query := `SELECT id, first_name, phone_number, telegram_id, is_active, created_at, updated_at
              FROM students WHERE phone_number = $1`
	return r.scanStudent(r.db.QueryRowContext(ctx, query, phoneNumber))
}

func (r *PostgresDirectoryRepository) GetStudentByTelegramID(ctx context.Context, telegramID int64) (*directory.Student, error) {
	query := `SELECT id, first_name, phone_number, telegram_id, is_active, created_at, updated_at
              FROM students WHERE telegram_id = $1`
	return r.scanStudent(r.db.QueryRowContext(ctx, query, telegramID))
}

func (r *PostgresDirectoryRepository) SetStudentTelegramID(ctx context.Context, id uuid.UUID, telegramID int64) error {
	query := `UPDATE students SET telegram_id = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, telegramID, id)
	if err != nil {
		return fmt.Errorf("error setting student telegram ID: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *PostgresDirectoryRepository) scanStudent(row rowScanner) (*directory.Student, error) {
	s := &directory.Student{}
	err := row.Scan(&s.ID, &s.FirstName, &s.PhoneNumber, &s.TelegramID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error scanning student: %w", err)
	}
	return s, nil
}

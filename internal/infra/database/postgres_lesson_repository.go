package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tutoring_platform/internal/domain/ledger"
	"tutoring_platform/internal/domain/lesson"
	"tutoring_platform/internal/domain/notification"
)

// Custom errors
var (
	ErrLessonNotFound = fmt.Errorf("lesson not found")
	// ErrLessonFinalized is returned when a transition is attempted out of a
	// terminal status (COMPLETED or CANCELLED).
	ErrLessonFinalized = fmt.Errorf("lesson is in a terminal status")
)

const lessonColumns = `id, teacher_id, student_id, name, subject, start_time, end_time,
       price, status, meeting_link, completed_at, created_at, updated_at`

type PostgresLessonRepository struct {
	db *sql.DB
}

func NewPostgresLessonRepository(db *sql.DB) *PostgresLessonRepository {
	return &PostgresLessonRepository{db: db}
}

// Create inserts the lesson, its paired transaction and the reminder
// notification in one database transaction. Partial application (a lesson
// without its ledger row) must never be observable.
func (r *PostgresLessonRepository) Create(ctx context.Context, les *lesson.Lesson, txn *ledger.Transaction, notif *notification.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning lesson creation: %w", err)
	}
	defer tx.Rollback()

	lessonQuery := `INSERT INTO lessons (id, teacher_id, student_id, name, subject, start_time, end_time,
                        price, status, meeting_link, created_at, updated_at)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.ExecContext(ctx, lessonQuery,
		les.ID, les.TeacherID, les.StudentID, les.Name, les.Subject, les.StartTime, les.EndTime,
		les.Price, les.Status, les.MeetingLink, les.CreatedAt, les.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting lesson: %w", err)
	}

	txnQuery := `INSERT INTO transactions (lesson_id, student_id, amount, status, created_at)
                 VALUES ($1, $2, $3, $4, $5)
                 RETURNING id`
	err = tx.QueryRowContext(ctx, txnQuery,
		txn.LessonID, txn.StudentID, txn.Amount, txn.Status, txn.CreatedAt).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("error inserting transaction: %w", err)
	}

	notifQuery := `INSERT INTO notifications (id, student_id, lesson_id, message, send_at, is_sent, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.ExecContext(ctx, notifQuery,
		notif.ID, notif.StudentID, notif.LessonID, notif.Message, notif.SendAt, notif.IsSent, notif.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting notification: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing lesson creation: %w", err)
	}
	return nil
}

func (r *PostgresLessonRepository) GetByID(ctx context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	les, err := scanLesson(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("error getting lesson by ID: %w", err)
	}
	return les, nil
}

func (r *PostgresLessonRepository) Update(ctx context.Context, les *lesson.Lesson) error {
	query := `UPDATE lessons
              SET name = $1, subject = $2, start_time = $3, end_time = $4, updated_at = NOW()
              WHERE id = $5
              RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		les.Name, les.Subject, les.StartTime, les.EndTime, les.ID).Scan(&les.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrLessonNotFound
		}
		return fmt.Errorf("error updating lesson: %w", err)
	}
	return nil
}

func (r *PostgresLessonRepository) Confirm(ctx context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	query := `UPDATE lessons SET status = $1, updated_at = NOW()
              WHERE id = $2 AND status = $3
              RETURNING ` + lessonColumns
	les, err := scanLesson(r.db.QueryRowContext(ctx, query, lesson.StatusConfirmed, id, lesson.StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.transitionConflict(ctx, id)
		}
		return nil, fmt.Errorf("error confirming lesson: %w", err)
	}
	return les, nil
}

// Complete moves the lesson to COMPLETED and mirrors the paired transaction
// in one database transaction. The status guard in the WHERE clause
// serializes racing transitions on the same row: only one of a concurrent
// cancel/complete pair can match.
func (r *PostgresLessonRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) (*lesson.Lesson, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning lesson completion: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE lessons SET status = $1, completed_at = $2, updated_at = NOW()
              WHERE id = $3 AND status IN ($4, $5)
              RETURNING ` + lessonColumns
	les, err := scanLesson(tx.QueryRowContext(ctx, query,
		lesson.StatusCompleted, at, id, lesson.StatusPending, lesson.StatusConfirmed))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.transitionConflict(ctx, id)
		}
		return nil, fmt.Errorf("error completing lesson: %w", err)
	}

	txnQuery := `UPDATE transactions SET status = $1, performed_time = $2 WHERE lesson_id = $3`
	if _, err = tx.ExecContext(ctx, txnQuery, ledger.StatusCompleted, at, id); err != nil {
		return nil, fmt.Errorf("error mirroring transaction completion: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing lesson completion: %w", err)
	}
	return les, nil
}

// Cancel moves the lesson to CANCELLED and mirrors the paired transaction.
// A COMPLETED lesson cannot be cancelled; re-cancelling an already-cancelled
// lesson re-stamps the reason and time.
func (r *PostgresLessonRepository) Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*lesson.Lesson, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning lesson cancellation: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE lessons SET status = $1, updated_at = NOW()
              WHERE id = $2 AND status <> $3
              RETURNING ` + lessonColumns
	les, err := scanLesson(tx.QueryRowContext(ctx, query, lesson.StatusCancelled, id, lesson.StatusCompleted))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.transitionConflict(ctx, id)
		}
		return nil, fmt.Errorf("error cancelling lesson: %w", err)
	}

	txnQuery := `UPDATE transactions SET status = $1, cancelled_time = $2, reason = $3 WHERE lesson_id = $4`
	if _, err = tx.ExecContext(ctx, txnQuery, ledger.StatusCancelled, at, reason, id); err != nil {
		return nil, fmt.Errorf("error mirroring transaction cancellation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing lesson cancellation: %w", err)
	}
	return les, nil
}

// transitionConflict distinguishes a missing row from a guard mismatch after
// a conditional UPDATE matched nothing.
func (r *PostgresLessonRepository) transitionConflict(ctx context.Context, id uuid.UUID) error {
	var status lesson.Status
	err := r.db.QueryRowContext(ctx, `SELECT status FROM lessons WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrLessonNotFound
		}
		return fmt.Errorf("error checking lesson status: %w", err)
	}
	return ErrLessonFinalized
}

func (r *PostgresLessonRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*lesson.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE teacher_id = $1 ORDER BY start_time DESC`
	return r.listLessons(ctx, query, teacherID)
}

func (r *PostgresLessonRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*lesson.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE student_id = $1 ORDER BY start_time DESC`
	return r.listLessons(ctx, query, studentID)
}

func (r *PostgresLessonRepository) ListCompletedIn(ctx context.Context, ids []uuid.UUID) ([]*lesson.Lesson, error) {
	if len(ids) == 0 {
		return []*lesson.Lesson{}, nil
	}
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}
	query := `SELECT ` + lessonColumns + ` FROM lessons
              WHERE id = ANY($1) AND status = $2 ORDER BY start_time`
	return r.listLessons(ctx, query, pq.Array(idStrings), lesson.StatusCompleted)
}

func (r *PostgresLessonRepository) ListUpcoming(ctx context.Context, from, until time.Time) ([]*lesson.UpcomingLesson, error) {
	query := `SELECT l.id, l.name, l.start_time, l.meeting_link, s.telegram_id, t.full_name
              FROM lessons l
              JOIN students s ON s.id = l.student_id
              JOIN teachers t ON t.id = l.teacher_id
              WHERE l.status = $1
                AND l.start_time BETWEEN $2 AND $3
                AND s.telegram_id IS NOT NULL
                AND s.is_active = TRUE
              ORDER BY l.start_time`

	rows, err := r.db.QueryContext(ctx, query, lesson.StatusPending, from, until)
	if err != nil {
		return nil, fmt.Errorf("error listing upcoming lessons: %w", err)
	}
	defer rows.Close()

	upcoming := make([]*lesson.UpcomingLesson, 0)
	for rows.Next() {
		up := &lesson.UpcomingLesson{}
		if err := rows.Scan(&up.LessonID, &up.Name, &up.StartTime, &up.MeetingLink,
			&up.StudentTelegramID, &up.TeacherFullName); err != nil {
			return nil, fmt.Errorf("error scanning upcoming lesson: %w", err)
		}
		upcoming = append(upcoming, up)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upcoming lessons: %w", err)
	}
	return upcoming, nil
}

func (r *PostgresLessonRepository) listLessons(ctx context.Context, query string, args ...any) ([]*lesson.Lesson, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]*lesson.Lesson, 0)
	for rows.Next() {
		les, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning lesson: %w", err)
		}
		lessons = append(lessons, les)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lessons: %w", err)
	}
	return lessons, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*lesson.Lesson, error) {
	les := &lesson.Lesson{}
	err := row.Scan(&les.ID, &les.TeacherID, &les.StudentID, &les.Name, &les.Subject,
		&les.StartTime, &les.EndTime, &les.Price, &les.Status, &les.MeetingLink,
		&les.CompletedAt, &les.CreatedAt, &les.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return les, nil
}

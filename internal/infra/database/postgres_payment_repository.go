package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tutoring_platform/internal/domain/payment"
)

var (
	ErrPaymentNotFound = fmt.Errorf("teacher payment not found")
	// ErrPaymentCancelled is returned when marking a cancelled batch as paid.
	ErrPaymentCancelled = fmt.Errorf("teacher payment has been cancelled")
)

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

const paymentColumns = `id, teacher_id, lessons, total_lesson_amount, platform_commission,
       teacher_amount, paid_at, cancelled_at, is_cancelled, cancelled_reason, notes, created_at`

func (r *PostgresPaymentRepository) Create(ctx context.Context, p *payment.TeacherPayment) error {
	query := `INSERT INTO teacher_payments (id, teacher_id, lessons, total_lesson_amount,
                  platform_commission, teacher_amount, is_cancelled, notes, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.TeacherID, pq.Array(uuidStrings(p.LessonIDs)), p.TotalLessonAmount,
		p.PlatformCommission, p.TeacherAmount, p.IsCancelled, p.Notes, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating teacher payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.TeacherPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM teacher_payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error getting teacher payment by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPaymentRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*payment.TeacherPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM teacher_payments
              WHERE teacher_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("error listing teacher payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*payment.TeacherPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning teacher payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teacher payments: %w", err)
	}
	return payments, nil
}

// SetPaid stamps paid_at. The is_cancelled guard in the WHERE clause
// serializes against a concurrent cancellation: a cancelled batch can never
// end up paid, no matter how the two writes interleave.
func (r *PostgresPaymentRepository) SetPaid(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE teacher_payments SET paid_at = $1 WHERE id = $2 AND is_cancelled = FALSE`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("error marking teacher payment paid: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return r.paidConflict(ctx, id)
	}
	return nil
}

// paidConflict distinguishes a missing batch from a cancelled one after the
// guarded UPDATE matched nothing.
func (r *PostgresPaymentRepository) paidConflict(ctx context.Context, id uuid.UUID) error {
	var cancelled bool
	err := r.db.QueryRowContext(ctx, `SELECT is_cancelled FROM teacher_payments WHERE id = $1`, id).Scan(&cancelled)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("error checking teacher payment state: %w", err)
	}
	return ErrPaymentCancelled
}

func (r *PostgresPaymentRepository) SetCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	query := `UPDATE teacher_payments
              SET is_cancelled = TRUE, cancelled_at = $1, cancelled_reason = $2
              WHERE id = $3`
	return r.execOnPayment(ctx, query, at, reason, id)
}

func (r *PostgresPaymentRepository) execOnPayment(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating teacher payment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func scanPayment(row rowScanner) (*payment.TeacherPayment, error) {
	p := &payment.TeacherPayment{}
	var lessonIDs []string
	err := row.Scan(&p.ID, &p.TeacherID, pq.Array(&lessonIDs), &p.TotalLessonAmount,
		&p.PlatformCommission, &p.TeacherAmount, &p.PaidAt, &p.CancelledAt,
		&p.IsCancelled, &p.CancelledReason, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.LessonIDs = make([]uuid.UUID, 0, len(lessonIDs))
	for _, raw := range lessonIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid lesson id %q in payment %s: %w", raw, p.ID, err)
		}
		p.LessonIDs = append(p.LessonIDs, id)
	}
	return p, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"tutoring_platform/internal/domain/ledger"
)

var ErrTransactionNotFound = fmt.Errorf("transaction not found")

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `id, lesson_id, student_id, amount, status, reason,
       cancelled_time, performed_time, created_at`

func (r *PostgresTransactionRepository) GetByLesson(ctx context.Context, lessonID uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE lesson_id = $1`
	txn := &ledger.Transaction{}
	err := r.db.QueryRowContext(ctx, query, lessonID).Scan(&txn.ID, &txn.LessonID, &txn.StudentID,
		&txn.Amount, &txn.Status, &txn.Reason, &txn.CancelledTime, &txn.PerformedTime, &txn.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("error getting transaction by lesson: %w", err)
	}
	return txn, nil
}

func (r *PostgresTransactionRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE student_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions by student: %w", err)
	}
	defer rows.Close()

	txns := make([]*ledger.Transaction, 0)
	for rows.Next() {
		txn := &ledger.Transaction{}
		if err := rows.Scan(&txn.ID, &txn.LessonID, &txn.StudentID, &txn.Amount, &txn.Status,
			&txn.Reason, &txn.CancelledTime, &txn.PerformedTime, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

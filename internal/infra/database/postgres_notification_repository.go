package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tutoring_platform/internal/domain/notification"
)

var ErrNotificationNotFound = fmt.Errorf("notification not found")

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

const notificationColumns = `id, student_id, lesson_id, message, send_at, is_sent, created_at`

// ListDue returns unsent notifications whose send time has arrived.
func (r *PostgresNotificationRepository) ListDue(ctx context.Context, dueBy time.Time) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
              WHERE is_sent = FALSE AND send_at <= $1
              ORDER BY send_at`
	return r.listNotifications(ctx, query, dueBy)
}

// MarkSent flips is_sent to true. The is_sent guard makes the write
// idempotent: a second sweep racing on the same row changes nothing.
func (r *PostgresNotificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET is_sent = TRUE WHERE id = $1 AND is_sent = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error marking notification sent: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// Either already sent (fine) or missing. Distinguish for callers.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("error checking notification existence: %w", err)
		}
		if !exists {
			return ErrNotificationNotFound
		}
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
              WHERE student_id = $1 ORDER BY send_at DESC`
	return r.listNotifications(ctx, query, studentID)
}

func (r *PostgresNotificationRepository) listNotifications(ctx context.Context, query string, args ...any) ([]*notification.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	notifs := make([]*notification.Notification, 0)
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.StudentID, &n.LessonID, &n.Message, &n.SendAt, &n.IsSent, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifs, nil
}

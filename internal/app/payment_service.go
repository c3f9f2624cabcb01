package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tutoring_platform/internal/domain/directory"
	"tutoring_platform/internal/domain/lesson"
	"tutoring_platform/internal/domain/payment"
)

// ErrNoCompletedLessons is returned when none of the requested lesson ids
// are in COMPLETED status at batch-creation time.
var ErrNoCompletedLessons = fmt.Errorf("no completed lessons found for payment")

// PaymentService aggregates completed lessons into teacher settlement
// batches with the platform-commission split. Amounts are computed once at
// creation time and never recomputed.
type PaymentService struct {
	paymentRepo    payment.Repository
	lessonRepo     lesson.Repository
	directoryRepo  directory.Repository
	commissionRate decimal.Decimal // percentage, e.g. 15
	logger         *logrus.Entry
	now            func() time.Time
}

func NewPaymentService(
	pr payment.Repository,
	lr lesson.Repository,
	dr directory.Repository,
	commissionPercentage int64,
	logger *logrus.Entry,
) *PaymentService {
	return &PaymentService{
		paymentRepo:    pr,
		lessonRepo:     lr,
		directoryRepo:  dr,
		commissionRate: decimal.NewFromInt(commissionPercentage),
		logger:         logger,
		now:            time.Now,
	}
}

// CreatePayment builds a settlement batch for the teacher from the requested
// lesson ids. Ids that are unknown or not COMPLETED are silently discarded;
// an empty resulting set is an error. A lesson id is not checked against
// other batches, so the same lesson may appear in more than one payment.
func (s *PaymentService) CreatePayment(ctx context.Context, teacherID uuid.UUID, lessonIDs []uuid.UUID, notes string) (*payment.TeacherPayment, error) {
	if _, err := s.directoryRepo.GetTeacher(ctx, teacherID); err != nil {
		return nil, fmt.Errorf("failed to resolve teacher %s: %w", teacherID, err)
	}

	completed, err := s.lessonRepo.ListCompletedIn(ctx, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed lessons: %w", err)
	}
	if len(completed) == 0 {
		return nil, ErrNoCompletedLessons
	}

	total := decimal.Zero
	coveredIDs := make([]uuid.UUID, 0, len(completed))
	for _, les := range completed {
		total = total.Add(les.Price)
		coveredIDs = append(coveredIDs, les.ID)
	}
	commission := total.Mul(s.commissionRate).Div(decimal.NewFromInt(100))
	teacherAmount := total.Sub(commission)

	p := &payment.TeacherPayment{
		ID:                 uuid.New(),
		TeacherID:          teacherID,
		LessonIDs:          coveredIDs,
		TotalLessonAmount:  total,
		PlatformCommission: commission,
		TeacherAmount:      teacherAmount,
		IsCancelled:        false,
		CreatedAt:          s.now(),
	}
	if notes != "" {
		p.Notes = sql.NullString{String: notes, Valid: true}
	}

	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create teacher payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":     p.ID,
		"teacher_id":     teacherID,
		"lesson_count":   len(coveredIDs),
		"total_amount":   total.String(),
		"commission":     commission.String(),
		"teacher_amount": teacherAmount.String(),
	}).Info("Teacher payment created")

	return p, nil
}

// CompletePayment stamps PaidAt on the batch. A cancelled batch can no
// longer be completed; SetPaid's state guard enforces that even against a
// cancellation racing this call.
func (s *PaymentService) CompletePayment(ctx context.Context, id uuid.UUID) (*payment.TeacherPayment, error) {
	paidAt := s.now()
	if err := s.paymentRepo.SetPaid(ctx, id, paidAt); err != nil {
		return nil, fmt.Errorf("failed to mark payment %s paid: %w", id, err)
	}

	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}

	s.logger.WithField("payment_id", id).Info("Teacher payment completed")
	return p, nil
}

// CancelPayment marks the batch cancelled with the given reason. An
// already-paid batch may still be cancelled; PaidAt is left untouched for
// the audit trail.
func (s *PaymentService) CancelPayment(ctx context.Context, id uuid.UUID, reason string) (*payment.TeacherPayment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}

	cancelledAt := s.now()
	if err := s.paymentRepo.SetCancelled(ctx, id, reason, cancelledAt); err != nil {
		return nil, fmt.Errorf("failed to cancel payment %s: %w", id, err)
	}
	p.IsCancelled = true
	p.CancelledAt = sql.NullTime{Time: cancelledAt, Valid: true}
	p.CancelledReason = sql.NullString{String: reason, Valid: true}

	s.logger.WithFields(logrus.Fields{"payment_id": id, "reason": reason}).Info("Teacher payment cancelled")
	return p, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*payment.TeacherPayment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// ListByTeacher returns the teacher's payments, most recent first.
func (s *PaymentService) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*payment.TeacherPayment, error) {
	return s.paymentRepo.ListByTeacher(ctx, teacherID)
}

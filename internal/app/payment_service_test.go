package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	idb "tutoring_platform/internal/infra/database"
)

// cancelOnSetPaidRepo models a cancellation whose write commits just before
// the paid write of a concurrent CompletePayment reaches the store.
type cancelOnSetPaidRepo struct {
	*fakePaymentRepo
}

func (r *cancelOnSetPaidRepo) SetPaid(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := r.fakePaymentRepo.SetCancelled(ctx, id, "cancelled concurrently", at); err != nil {
		return err
	}
	return r.fakePaymentRepo.SetPaid(ctx, id, at)
}

type paymentFixture struct {
	*lessonFixture
	svc      *PaymentService
	payments *fakePaymentRepo
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	lfx := newLessonFixture(t)
	payments := newFakePaymentRepo()
	svc := NewPaymentService(payments, lfx.store, lfx.dir, 15, testLogger())
	svc.now = func() time.Time { return lfx.now }

	return &paymentFixture{lessonFixture: lfx, svc: svc, payments: payments}
}

// completedLesson creates a lesson at the given price and completes it.
func (fx *paymentFixture) completedLesson(t *testing.T, price int64) uuid.UUID {
	t.Helper()

	p := decimal.NewFromInt(price)
	params := fx.createParams()
	params.Price = &p
	les, err := fx.lessonFixture.svc.Create(context.Background(), params)
	require.NoError(t, err)
	_, err = fx.lessonFixture.svc.Complete(context.Background(), les.ID)
	require.NoError(t, err)
	return les.ID
}

func TestPaymentService_CreatePayment(t *testing.T) {
	t.Run("SplitsCommission", func(t *testing.T) {
		fx := newPaymentFixture(t)
		first := fx.completedLesson(t, 50000)
		second := fx.completedLesson(t, 70000)

		// A pending lesson in the request is silently discarded.
		pending, err := fx.lessonFixture.svc.Create(context.Background(), fx.createParams())
		require.NoError(t, err)

		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID,
			[]uuid.UUID{first, second, pending.ID}, "March batch")

		require.NoError(t, err)
		assert.Len(t, p.LessonIDs, 2)
		assert.True(t, p.TotalLessonAmount.Equal(decimal.NewFromInt(120000)), "total was %s", p.TotalLessonAmount)
		assert.True(t, p.PlatformCommission.Equal(decimal.NewFromInt(18000)), "commission was %s", p.PlatformCommission)
		assert.True(t, p.TeacherAmount.Equal(decimal.NewFromInt(102000)), "teacher amount was %s", p.TeacherAmount)
		assert.True(t, p.TeacherAmount.Add(p.PlatformCommission).Equal(p.TotalLessonAmount))
		assert.Equal(t, "March batch", p.Notes.String)
		assert.False(t, p.IsCancelled)
		assert.False(t, p.PaidAt.Valid)
	})

	t.Run("UnknownIDsAreDiscarded", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 30000)

		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID,
			[]uuid.UUID{done, uuid.New()}, "")

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{done}, p.LessonIDs)
		assert.True(t, p.TotalLessonAmount.Equal(decimal.NewFromInt(30000)))
	})

	t.Run("NoCompletedLessons", func(t *testing.T) {
		fx := newPaymentFixture(t)
		pending, err := fx.lessonFixture.svc.Create(context.Background(), fx.createParams())
		require.NoError(t, err)

		_, err = fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{pending.ID, uuid.New()}, "")

		assert.ErrorIs(t, err, ErrNoCompletedLessons)
		assert.Empty(t, fx.payments.payments)
	})

	t.Run("TeacherNotFound", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 30000)

		_, err := fx.svc.CreatePayment(context.Background(), uuid.New(), []uuid.UUID{done}, "")

		assert.ErrorIs(t, err, idb.ErrTeacherNotFound)
	})

	t.Run("SameLessonMayAppearInTwoBatches", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 40000)

		first, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)
		second, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.LessonIDs, second.LessonIDs)
	})
}

func TestPaymentService_CompletePayment(t *testing.T) {
	t.Run("StampsPaidAt", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 50000)
		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)

		completed, err := fx.svc.CompletePayment(context.Background(), p.ID)

		require.NoError(t, err)
		assert.True(t, completed.PaidAt.Valid)
		assert.Equal(t, fx.now, completed.PaidAt.Time)

		stored, err := fx.svc.GetPayment(context.Background(), p.ID)
		require.NoError(t, err)
		assert.True(t, stored.PaidAt.Valid)
	})

	t.Run("CancelledBatchCannotBeCompleted", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 50000)
		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)
		_, err = fx.svc.CancelPayment(context.Background(), p.ID, "duplicate batch")
		require.NoError(t, err)

		_, err = fx.svc.CompletePayment(context.Background(), p.ID)

		assert.ErrorIs(t, err, idb.ErrPaymentCancelled)
		stored, getErr := fx.svc.GetPayment(context.Background(), p.ID)
		require.NoError(t, getErr)
		assert.False(t, stored.PaidAt.Valid)
	})

	t.Run("CancellationRacingCompletionWins", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 50000)
		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)

		// Cancel lands between CompletePayment's entry and its paid write.
		racing := &cancelOnSetPaidRepo{fakePaymentRepo: fx.payments}
		fx.svc.paymentRepo = racing

		_, err = fx.svc.CompletePayment(context.Background(), p.ID)

		assert.ErrorIs(t, err, idb.ErrPaymentCancelled)
		stored, getErr := fx.payments.GetByID(context.Background(), p.ID)
		require.NoError(t, getErr)
		assert.True(t, stored.IsCancelled)
		assert.False(t, stored.PaidAt.Valid, "a cancelled batch must never end up paid")
	})

	t.Run("NotFound", func(t *testing.T) {
		fx := newPaymentFixture(t)

		_, err := fx.svc.CompletePayment(context.Background(), uuid.New())

		assert.ErrorIs(t, err, idb.ErrPaymentNotFound)
	})
}

func TestPaymentService_CancelPayment(t *testing.T) {
	t.Run("StampsReasonAndTime", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 50000)
		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)

		cancelled, err := fx.svc.CancelPayment(context.Background(), p.ID, "wrong teacher")

		require.NoError(t, err)
		assert.True(t, cancelled.IsCancelled)
		assert.Equal(t, "wrong teacher", cancelled.CancelledReason.String)
		assert.Equal(t, fx.now, cancelled.CancelledAt.Time)
	})

	t.Run("PaidBatchKeepsPaidAt", func(t *testing.T) {
		fx := newPaymentFixture(t)
		done := fx.completedLesson(t, 50000)
		p, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
		require.NoError(t, err)
		_, err = fx.svc.CompletePayment(context.Background(), p.ID)
		require.NoError(t, err)

		_, err = fx.svc.CancelPayment(context.Background(), p.ID, "chargeback")

		require.NoError(t, err)
		stored, err := fx.svc.GetPayment(context.Background(), p.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsCancelled)
		assert.True(t, stored.PaidAt.Valid, "PaidAt stays for the audit trail")
	})
}

func TestPaymentService_ListByTeacher(t *testing.T) {
	fx := newPaymentFixture(t)
	done := fx.completedLesson(t, 50000)

	first, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
	require.NoError(t, err)
	later := fx.now.Add(1 * time.Hour)
	fx.svc.now = func() time.Time { return later }
	second, err := fx.svc.CreatePayment(context.Background(), fx.teacherID, []uuid.UUID{done}, "")
	require.NoError(t, err)

	list, err := fx.svc.ListByTeacher(context.Background(), fx.teacherID)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "most recent first")
	assert.Equal(t, first.ID, list[1].ID)
}

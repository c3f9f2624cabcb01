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
	"tutoring_platform/internal/domain/ledger"
	"tutoring_platform/internal/domain/lesson"
	"tutoring_platform/internal/domain/meeting"
	"tutoring_platform/internal/domain/notification"
)

// Business-rule errors surfaced by the lifecycle operations.
var (
	ErrInvalidTimeRange = fmt.Errorf("lesson end time must be after start time")
	ErrNegativePrice    = fmt.Errorf("lesson price must not be negative")
)

// PlaceholderMeetingLink is used when the meeting provider fails; a broken
// link generator must not abort lesson creation.
const PlaceholderMeetingLink = "https://meet.google.com/placeholder"

// LessonService owns the lesson state machine and its paired ledger row.
// All status changes go through the explicit Confirm/Complete/Cancel
// transitions; the generic Update deliberately carries no status field.
type LessonService struct {
	lessonRepo    lesson.Repository
	directoryRepo directory.Repository
	meetings      meeting.Provider
	logger        *logrus.Entry
	reminderLead  time.Duration
	now           func() time.Time
}

func NewLessonService(
	lr lesson.Repository,
	dr directory.Repository,
	mp meeting.Provider,
	logger *logrus.Entry,
	reminderLead time.Duration,
) *LessonService {
	return &LessonService{
		lessonRepo:    lr,
		directoryRepo: dr,
		meetings:      mp,
		logger:        logger,
		reminderLead:  reminderLead,
		now:           time.Now,
	}
}

// CreateLessonParams carries the caller-supplied fields for a new lesson.
// Price is optional; when nil the teacher's current hourly rate applies.
type CreateLessonParams struct {
	TeacherID uuid.UUID
	StudentID uuid.UUID
	Name      string
	Subject   string
	StartTime time.Time
	EndTime   time.Time
	Price     *decimal.Decimal
}

// Create validates the request, resolves both parties, obtains a meeting
// link (placeholder on provider failure) and persists the lesson together
// with its PENDING transaction and the reminder notification as one atomic
// unit.
func (s *LessonService) Create(ctx context.Context, params CreateLessonParams) (*lesson.Lesson, error) {
	if !params.EndTime.After(params.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	teacherInfo, err := s.directoryRepo.GetTeacher(ctx, params.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve teacher %s: %w", params.TeacherID, err)
	}
	studentInfo, err := s.directoryRepo.GetStudent(ctx, params.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve student %s: %w", params.StudentID, err)
	}

	price := teacherInfo.HourPrice
	if params.Price != nil {
		price = *params.Price
	}
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}

	meetingLink, err := s.meetings.CreateMeeting(ctx, teacherInfo, studentInfo, params.StartTime, params.EndTime)
	if err != nil {
		s.logger.WithError(err).WithField("teacher_id", params.TeacherID).
			Warn("Meeting provider failed, falling back to placeholder link")
		meetingLink = PlaceholderMeetingLink
	}

	now := s.now()
	les := &lesson.Lesson{
		ID:          uuid.New(),
		TeacherID:   params.TeacherID,
		StudentID:   params.StudentID,
		Name:        params.Name,
		StartTime:   params.StartTime,
		EndTime:     params.EndTime,
		Price:       price,
		Status:      lesson.StatusPending,
		MeetingLink: sql.NullString{String: meetingLink, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.Subject != "" {
		les.Subject = sql.NullString{String: params.Subject, Valid: true}
	}

	txn := &ledger.Transaction{
		LessonID:  les.ID,
		StudentID: params.StudentID,
		Amount:    price,
		Status:    ledger.StatusPending,
		CreatedAt: now,
	}

	notif := &notification.Notification{
		ID:        uuid.New(),
		StudentID: params.StudentID,
		LessonID:  les.ID,
		Message:   fmt.Sprintf("A new lesson has been scheduled for you: %s", les.Name),
		SendAt:    params.StartTime.Add(-s.reminderLead),
		IsSent:    false,
		CreatedAt: now,
	}

	if err := s.lessonRepo.Create(ctx, les, txn, notif); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"lesson_id":  les.ID,
		"teacher_id": les.TeacherID,
		"student_id": les.StudentID,
		"price":      les.Price.String(),
	}).Info("Lesson created with paired transaction and reminder")

	return les, nil
}

// UpdateLessonParams carries the optional fields the generic update may
// change. Status and price are deliberately absent: status moves only
// through explicit transitions, and the price is fixed at creation.
type UpdateLessonParams struct {
	Name      *string
	Subject   *string
	StartTime *time.Time
	EndTime   *time.Time
}

// Update applies the provided fields to an existing lesson.
func (s *LessonService) Update(ctx context.Context, id uuid.UUID, params UpdateLessonParams) (*lesson.Lesson, error) {
	les, err := s.lessonRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson %s: %w", id, err)
	}

	if params.Name != nil {
		les.Name = *params.Name
	}
	if params.Subject != nil {
		les.Subject = sql.NullString{String: *params.Subject, Valid: *params.Subject != ""}
	}
	if params.StartTime != nil {
		les.StartTime = *params.StartTime
	}
	if params.EndTime != nil {
		les.EndTime = *params.EndTime
	}
	if !les.EndTime.After(les.StartTime) {
		return nil, ErrInvalidTimeRange
	}

	les.UpdatedAt = s.now()
	if err := s.lessonRepo.Update(ctx, les); err != nil {
		return nil, fmt.Errorf("failed to update lesson %s: %w", id, err)
	}
	return les, nil
}

// Confirm moves a PENDING lesson to CONFIRMED.
func (s *LessonService) Confirm(ctx context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	les, err := s.lessonRepo.Confirm(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm lesson %s: %w", id, err)
	}
	s.logger.WithField("lesson_id", id).Info("Lesson confirmed")
	return les, nil
}

// Cancel moves the lesson to CANCELLED and mirrors the paired transaction
// with the given reason. Re-cancelling re-stamps the reason and time; a
// COMPLETED lesson cannot be cancelled.
func (s *LessonService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*lesson.Lesson, error) {
	les, err := s.lessonRepo.Cancel(ctx, id, reason, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to cancel lesson %s: %w", id, err)
	}
	s.logger.WithFields(logrus.Fields{"lesson_id": id, "reason": reason}).Info("Lesson cancelled")
	return les, nil
}

// Complete moves the lesson to COMPLETED, stamps CompletedAt and mirrors the
// paired transaction with PerformedTime.
func (s *LessonService) Complete(ctx context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	les, err := s.lessonRepo.Complete(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to complete lesson %s: %w", id, err)
	}
	s.logger.WithField("lesson_id", id).Info("Lesson completed")
	return les, nil
}

func (s *LessonService) Get(ctx context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	return s.lessonRepo.GetByID(ctx, id)
}

// ListByTeacher returns the teacher's lessons, most recent start time first.
func (s *LessonService) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*lesson.Lesson, error) {
	return s.lessonRepo.ListByTeacher(ctx, teacherID)
}

// ListByStudent returns the student's lessons, most recent start time first.
func (s *LessonService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*lesson.Lesson, error) {
	return s.lessonRepo.ListByStudent(ctx, studentID)
}

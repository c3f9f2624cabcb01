package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tutoring_platform/internal/domain/directory"
	"tutoring_platform/internal/domain/lesson"
	"tutoring_platform/internal/domain/notification"
	"tutoring_platform/internal/domain/telegram"
)

// ReminderDispatcher is the interface the sweep scheduler drives.
type ReminderDispatcher interface {
	// ProcessDueReminders delivers persisted reminders that are due and
	// marks them sent. At-least-once: a crash between send and mark causes
	// one duplicate on the next tick.
	ProcessDueReminders(ctx context.Context) error
	// ProcessUpcomingAlerts sends "lesson starts soon" alerts for pending
	// lessons inside the lead window. At-most-once within a single process
	// lifetime only; a restart re-arms the suppression set.
	ProcessUpcomingAlerts(ctx context.Context) error
}

// alertKey identifies one already-sent upcoming alert. Suppression is keyed
// on lesson, contact and lead window so a changed lead re-alerts.
type alertKey struct {
	lessonID    uuid.UUID
	chatID      int64
	leadMinutes int
}

// maxSentAlertKeys bounds the in-memory suppression set. When exceeded the
// set is cleared wholesale, accepting the resulting duplicate-alert risk.
const maxSentAlertKeys = 5000

// ReminderService implements both reminder sweeps. The durable IsSent flag
// is the source of truth for persisted reminders; the in-memory set only
// suppresses upcoming-lesson alerts, which are not persisted.
type ReminderService struct {
	notifRepo      notification.Repository
	lessonRepo     lesson.Repository
	directoryRepo  directory.Repository
	telegramClient telegram.Client
	logger         *logrus.Entry
	lead           time.Duration
	sendTimeout    time.Duration
	now            func() time.Time

	mu         sync.Mutex
	sentAlerts map[alertKey]struct{}
}

func NewReminderService(
	nr notification.Repository,
	lr lesson.Repository,
	dr directory.Repository,
	tc telegram.Client,
	logger *logrus.Entry,
	lead time.Duration,
	sendTimeout time.Duration,
) *ReminderService {
	return &ReminderService{
		notifRepo:      nr,
		lessonRepo:     lr,
		directoryRepo:  dr,
		telegramClient: tc,
		logger:         logger,
		lead:           lead,
		sendTimeout:    sendTimeout,
		now:            time.Now,
		sentAlerts:     make(map[alertKey]struct{}),
	}
}

// ProcessDueReminders sweeps unsent notifications whose send time has
// arrived. Per-row failures are logged and skipped so one broken delivery
// never aborts the rest of the sweep; the row stays unsent and is retried
// on the next tick while still due.
func (s *ReminderService) ProcessDueReminders(ctx context.Context) error {
	due, err := s.notifRepo.ListDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to list due reminders: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	s.logger.WithField("count", len(due)).Info("Processing due reminders")

	for _, notif := range due {
		logCtx := s.logger.WithFields(logrus.Fields{
			"notification_id": notif.ID,
			"student_id":      notif.StudentID,
			"lesson_id":       notif.LessonID,
		})

		studentInfo, err := s.directoryRepo.GetStudent(ctx, notif.StudentID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to resolve student for reminder")
			continue
		}
		if !studentInfo.HasTelegramContact() {
			logCtx.Info("Student has no active Telegram contact, reminder skipped")
			continue
		}

		if err := s.send(ctx, studentInfo.TelegramID.Int64, notif.Message); err != nil {
			logCtx.WithError(err).Error("Failed to deliver reminder, will retry next tick")
			continue
		}

		if err := s.notifRepo.MarkSent(ctx, notif.ID); err != nil {
			// The message went out but the flag write failed; the next
			// tick may deliver a duplicate. Acceptable at-least-once.
			logCtx.WithError(err).Error("Failed to mark reminder sent")
			continue
		}
		logCtx.Info("Reminder delivered")
	}
	return nil
}

// ProcessUpcomingAlerts sweeps pending lessons starting inside the lead
// window and alerts each student once per (lesson, contact, lead) key.
func (s *ReminderService) ProcessUpcomingAlerts(ctx context.Context) error {
	now := s.now()
	upcoming, err := s.lessonRepo.ListUpcoming(ctx, now, now.Add(s.lead))
	if err != nil {
		return fmt.Errorf("failed to list upcoming lessons: %w", err)
	}

	leadMinutes := int(s.lead.Minutes())
	for _, up := range upcoming {
		key := alertKey{lessonID: up.LessonID, chatID: up.StudentTelegramID, leadMinutes: leadMinutes}
		if s.alreadyAlerted(key) {
			continue
		}

		text := s.formatUpcomingAlert(up, leadMinutes)
		if err := s.send(ctx, up.StudentTelegramID, text); err != nil {
			s.logger.WithError(err).WithField("lesson_id", up.LessonID).
				Error("Failed to deliver upcoming-lesson alert")
			continue
		}
		s.rememberAlert(key)
		s.logger.WithFields(logrus.Fields{
			"lesson_id": up.LessonID,
			"chat_id":   up.StudentTelegramID,
		}).Info("Upcoming-lesson alert delivered")
	}
	return nil
}

func (s *ReminderService) formatUpcomingAlert(up *lesson.UpcomingLesson, leadMinutes int) string {
	text := fmt.Sprintf("⏰ Reminder: your lesson starts in %d minutes!\n🕒 %s\n👨‍🏫 %s\n📘 %s",
		leadMinutes, up.StartTime.Format("02.01 15:04"), up.TeacherFullName, up.Name)
	if up.MeetingLink.Valid && up.MeetingLink.String != "" {
		text += "\n🔗 " + up.MeetingLink.String
	}
	return text
}

// send delivers one message bounded by the configured timeout.
func (s *ReminderService) send(ctx context.Context, chatID int64, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return s.telegramClient.SendMessage(sendCtx, chatID, text, nil)
}

func (s *ReminderService) alreadyAlerted(key alertKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sentAlerts[key]
	return ok
}

func (s *ReminderService) rememberAlert(key alertKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentAlerts[key] = struct{}{}
	if len(s.sentAlerts) > maxSentAlertKeys {
		s.sentAlerts = make(map[alertKey]struct{})
	}
}

// ListNotificationsByStudent returns the student's reminder history, most
// recent send time first. Delivered rows are retained for audit.
func (s *ReminderService) ListNotificationsByStudent(ctx context.Context, studentID uuid.UUID) ([]*notification.Notification, error) {
	return s.notifRepo.ListByStudent(ctx, studentID)
}

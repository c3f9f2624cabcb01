package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"tutoring_platform/internal/domain/directory"
	"tutoring_platform/internal/domain/ledger"
	"tutoring_platform/internal/domain/lesson"
	idb "tutoring_platform/internal/infra/database"
)

const (
	menuMyLessons     = "📅 My lessons"
	menuPaymentStatus = "💳 Payment status"
)

// LessonLister is the slice of the lesson service the student handlers need.
type LessonLister interface {
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*lesson.Lesson, error)
}

// StudentHandlers wires the student-facing bot surface: sharing a contact
// links the student's Telegram chat to their directory profile so lesson
// reminders can reach them, and the menu exposes the student's own lessons
// and ledger entries.
type StudentHandlers struct {
	directoryRepo directory.Repository
	lessons       LessonLister
	ledgerRepo    ledger.Repository
	logger        *logrus.Entry
	contactMenu   *telebot.ReplyMarkup
	mainMenu      *telebot.ReplyMarkup
}

func NewStudentHandlers(
	dr directory.Repository,
	lessons LessonLister,
	lr ledger.Repository,
	baseLogger *logrus.Entry,
) *StudentHandlers {
	contactMenu := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	contactMenu.Reply(contactMenu.Row(contactMenu.Contact("📞 Share phone number")))

	mainMenu := &telebot.ReplyMarkup{ResizeKeyboard: true}
	mainMenu.Reply(
		mainMenu.Row(mainMenu.Text(menuMyLessons)),
		mainMenu.Row(mainMenu.Text(menuPaymentStatus)),
	)

	return &StudentHandlers{
		directoryRepo: dr,
		lessons:       lessons,
		ledgerRepo:    lr,
		logger:        baseLogger.WithField("handler_group", "student"),
		contactMenu:   contactMenu,
		mainMenu:      mainMenu,
	}
}

// Register attaches the handlers to the bot.
func (h *StudentHandlers) Register(ctx context.Context, b *telebot.Bot) {
	b.Handle("/start", func(c telebot.Context) error {
		h.logger.WithField("sender_id", c.Sender().ID).Info("Processing /start command")
		return c.Send("Hello! Share your phone number so I can send you lesson reminders.", h.contactMenu)
	})

	b.Handle(telebot.OnContact, func(c telebot.Context) error {
		return h.handleContact(ctx, c)
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		switch strings.TrimSpace(c.Text()) {
		case menuMyLessons:
			return h.handleMyLessons(ctx, c)
		case menuPaymentStatus:
			return h.handlePaymentStatus(ctx, c)
		default:
			return c.Send("Please pick an option from the menu 👇", h.mainMenu)
		}
	})
}

func (h *StudentHandlers) handleContact(ctx context.Context, c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("sender_id", senderID)

	contact := c.Message().Contact
	if contact == nil {
		return c.Send("Please use the button below to share your contact.", h.contactMenu)
	}

	phone := normalizePhone(contact.PhoneNumber)
	studentInfo, err := h.directoryRepo.GetStudentByPhone(ctx, phone)
	if err != nil {
		if err == idb.ErrStudentNotFound {
			logCtx.WithField("phone", phone).Info("Contact shared by unknown phone number")
			return c.Send("I could not find a student profile with this phone number. Please contact your administrator.")
		}
		logCtx.WithError(err).Error("Error looking up student by phone")
		return c.Send("Something went wrong while checking your profile. Please try again later.")
	}

	if err := h.directoryRepo.SetStudentTelegramID(ctx, studentInfo.ID, senderID); err != nil {
		logCtx.WithError(err).WithField("student_id", studentInfo.ID).Error("Error linking student Telegram contact")
		return c.Send("Something went wrong while linking your contact. Please try again later.")
	}

	logCtx.WithField("student_id", studentInfo.ID).Info("Student Telegram contact registered")
	return c.Send("✅ You are connected! I will remind you before each lesson.", h.mainMenu)
}

func (h *StudentHandlers) handleMyLessons(ctx context.Context, c telebot.Context) error {
	studentInfo, err := h.resolveSender(ctx, c)
	if studentInfo == nil {
		return err
	}

	items, err := h.lessons.ListByStudent(ctx, studentInfo.ID)
	if err != nil {
		h.logger.WithError(err).Error("Error listing student lessons")
		return c.Send("Could not load your lessons right now. Please try again later.")
	}
	if len(items) == 0 {
		return c.Send("You have no lessons yet.")
	}
	return c.Send(h.lessonSummary(ctx, items))
}

// lessonSummary renders the student's lessons, each with its ledger line
// when the paired transaction can be resolved.
func (h *StudentHandlers) lessonSummary(ctx context.Context, items []*lesson.Lesson) string {
	var sb strings.Builder
	sb.WriteString("Your lessons:\n")
	for _, les := range items {
		sb.WriteString(fmt.Sprintf("\n📘 %s — %s (%s)", les.Name, les.StartTime.Format("02.01 15:04"), les.Status))
		if les.MeetingLink.Valid && !les.Status.IsTerminal() {
			sb.WriteString("\n🔗 " + les.MeetingLink.String)
		}
		txn, err := h.ledgerRepo.GetByLesson(ctx, les.ID)
		if err != nil {
			if err != idb.ErrTransactionNotFound {
				h.logger.WithError(err).WithField("lesson_id", les.ID).Error("Error resolving lesson transaction")
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("\n💳 %s — %s", txn.Amount.StringFixed(2), txn.Status))
	}
	return sb.String()
}

func (h *StudentHandlers) handlePaymentStatus(ctx context.Context, c telebot.Context) error {
	studentInfo, err := h.resolveSender(ctx, c)
	if studentInfo == nil {
		return err
	}

	txns, err := h.ledgerRepo.ListByStudent(ctx, studentInfo.ID)
	if err != nil {
		h.logger.WithError(err).Error("Error listing student transactions")
		return c.Send("Could not load your payment status right now. Please try again later.")
	}
	if len(txns) == 0 {
		return c.Send("No payment records yet.")
	}

	var sb strings.Builder
	sb.WriteString("Your payment records:\n")
	for _, txn := range txns {
		sb.WriteString(fmt.Sprintf("\n💳 %s — %s", txn.Amount.StringFixed(2), txn.Status))
	}
	return c.Send(sb.String())
}

// resolveSender maps the Telegram sender to a registered student. A nil
// student means the reply has already been sent.
func (h *StudentHandlers) resolveSender(ctx context.Context, c telebot.Context) (*directory.Student, error) {
	studentInfo, err := h.directoryRepo.GetStudentByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		if err == idb.ErrStudentNotFound {
			return nil, c.Send("Please register first with /start.")
		}
		h.logger.WithError(err).Error("Error resolving student by Telegram id")
		return nil, c.Send("Something went wrong. Please try again later.")
	}
	return studentInfo, nil
}

// normalizePhone strips whitespace and enforces a leading plus sign, the
// format phone numbers are stored in.
func normalizePhone(raw string) string {
	p := strings.TrimSpace(raw)
	if !strings.HasPrefix(p, "+") {
		p = "+" + p
	}
	return strings.ReplaceAll(p, " ", "")
}

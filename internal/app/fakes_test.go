package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/telebot.v3"

	"tutoring_platform/internal/domain/directory"
	"tutoring_platform/internal/domain/ledger"
	"tutoring_platform/internal/domain/lesson"
	"tutoring_platform/internal/domain/notification"
	"tutoring_platform/internal/domain/payment"
	idb "tutoring_platform/internal/infra/database"
)

// fakeStore is an in-memory stand-in for the lesson and notification
// repositories, honouring the same status guards as the Postgres
// implementation.
type fakeStore struct {
	lessons   map[uuid.UUID]*lesson.Lesson
	txns      map[uuid.UUID]*ledger.Transaction // keyed by lesson id
	notifs    map[uuid.UUID]*notification.Notification
	directory *fakeDirectory

	createErr   error
	listDueErr  error
	markSentErr map[uuid.UUID]error
}

func newFakeStore(dir *fakeDirectory) *fakeStore {
	return &fakeStore{
		lessons:     make(map[uuid.UUID]*lesson.Lesson),
		txns:        make(map[uuid.UUID]*ledger.Transaction),
		notifs:      make(map[uuid.UUID]*notification.Notification),
		directory:   dir,
		markSentErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) Create(_ context.Context, les *lesson.Lesson, txn *ledger.Transaction, notif *notification.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	lesCopy := *les
	txnCopy := *txn
	txnCopy.ID = int64(len(f.txns) + 1)
	notifCopy := *notif
	f.lessons[les.ID] = &lesCopy
	f.txns[txn.LessonID] = &txnCopy
	f.notifs[notif.ID] = &notifCopy
	txn.ID = txnCopy.ID
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	les, ok := f.lessons[id]
	if !ok {
		return nil, idb.ErrLessonNotFound
	}
	lesCopy := *les
	return &lesCopy, nil
}

func (f *fakeStore) Update(_ context.Context, les *lesson.Lesson) error {
	stored, ok := f.lessons[les.ID]
	if !ok {
		return idb.ErrLessonNotFound
	}
	stored.Name = les.Name
	stored.Subject = les.Subject
	stored.StartTime = les.StartTime
	stored.EndTime = les.EndTime
	stored.UpdatedAt = les.UpdatedAt
	return nil
}

func (f *fakeStore) Confirm(_ context.Context, id uuid.UUID) (*lesson.Lesson, error) {
	les, ok := f.lessons[id]
	if !ok {
		return nil, idb.ErrLessonNotFound
	}
	if les.Status != lesson.StatusPending {
		return nil, idb.ErrLessonFinalized
	}
	les.Status = lesson.StatusConfirmed
	lesCopy := *les
	return &lesCopy, nil
}

func (f *fakeStore) Complete(_ context.Context, id uuid.UUID, at time.Time) (*lesson.Lesson, error) {
	les, ok := f.lessons[id]
	if !ok {
		return nil, idb.ErrLessonNotFound
	}
	if les.Status.IsTerminal() {
		return nil, idb.ErrLessonFinalized
	}
	les.Status = lesson.StatusCompleted
	les.CompletedAt.Time, les.CompletedAt.Valid = at, true
	if txn, ok := f.txns[id]; ok {
		txn.Status = ledger.StatusCompleted
		txn.PerformedTime.Time, txn.PerformedTime.Valid = at, true
	}
	lesCopy := *les
	return &lesCopy, nil
}

func (f *fakeStore) Cancel(_ context.Context, id uuid.UUID, reason string, at time.Time) (*lesson.Lesson, error) {
	les, ok := f.lessons[id]
	if !ok {
		return nil, idb.ErrLessonNotFound
	}
	if les.Status == lesson.StatusCompleted {
		return nil, idb.ErrLessonFinalized
	}
	les.Status = lesson.StatusCancelled
	if txn, ok := f.txns[id]; ok {
		txn.Status = ledger.StatusCancelled
		txn.CancelledTime.Time, txn.CancelledTime.Valid = at, true
		txn.Reason.String, txn.Reason.Valid = reason, true
	}
	lesCopy := *les
	return &lesCopy, nil
}

func (f *fakeStore) ListByTeacher(_ context.Context, teacherID uuid.UUID) ([]*lesson.Lesson, error) {
	return f.list(func(les *lesson.Lesson) bool { return les.TeacherID == teacherID }), nil
}

func (f *fakeStore) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*lesson.Lesson, error) {
	return f.list(func(les *lesson.Lesson) bool { return les.StudentID == studentID }), nil
}

func (f *fakeStore) ListCompletedIn(_ context.Context, ids []uuid.UUID) ([]*lesson.Lesson, error) {
	out := make([]*lesson.Lesson, 0)
	for _, id := range ids {
		if les, ok := f.lessons[id]; ok && les.Status == lesson.StatusCompleted {
			lesCopy := *les
			out = append(out, &lesCopy)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUpcoming(_ context.Context, from, until time.Time) ([]*lesson.UpcomingLesson, error) {
	out := make([]*lesson.UpcomingLesson, 0)
	for _, les := range f.lessons {
		if les.Status != lesson.StatusPending || les.StartTime.Before(from) || les.StartTime.After(until) {
			continue
		}
		student, ok := f.directory.students[les.StudentID]
		if !ok || !student.HasTelegramContact() {
			continue
		}
		teacherName := ""
		if t, ok := f.directory.teachers[les.TeacherID]; ok {
			teacherName = t.FullName
		}
		out = append(out, &lesson.UpcomingLesson{
			LessonID:          les.ID,
			Name:              les.Name,
			StartTime:         les.StartTime,
			MeetingLink:       les.MeetingLink,
			StudentTelegramID: student.TelegramID.Int64,
			TeacherFullName:   teacherName,
		})
	}
	return out, nil
}

func (f *fakeStore) list(keep func(*lesson.Lesson) bool) []*lesson.Lesson {
	out := make([]*lesson.Lesson, 0)
	for _, les := range f.lessons {
		if keep(les) {
			lesCopy := *les
			out = append(out, &lesCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

// notification.Repository implementation.

func (f *fakeStore) ListDue(_ context.Context, dueBy time.Time) ([]*notification.Notification, error) {
	if f.listDueErr != nil {
		return nil, f.listDueErr
	}
	out := make([]*notification.Notification, 0)
	for _, n := range f.notifs {
		if !n.IsSent && !n.SendAt.After(dueBy) {
			nCopy := *n
			out = append(out, &nCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SendAt.Before(out[j].SendAt) })
	return out, nil
}

func (f *fakeStore) MarkSent(_ context.Context, id uuid.UUID) error {
	if err := f.markSentErr[id]; err != nil {
		return err
	}
	n, ok := f.notifs[id]
	if !ok {
		return idb.ErrNotificationNotFound
	}
	n.IsSent = true
	return nil
}

func (f *fakeStore) ListByStudentNotifications(_ context.Context, studentID uuid.UUID) ([]*notification.Notification, error) {
	out := make([]*notification.Notification, 0)
	for _, n := range f.notifs {
		if n.StudentID == studentID {
			nCopy := *n
			out = append(out, &nCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SendAt.After(out[j].SendAt) })
	return out, nil
}

// fakeNotifStore adapts fakeStore to the notification.Repository interface,
// whose ListByStudent collides with the lesson repository method name.
type fakeNotifStore struct{ *fakeStore }

func (f fakeNotifStore) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*notification.Notification, error) {
	return f.ListByStudentNotifications(ctx, studentID)
}

// fakeDirectory is an in-memory directory lookup.
type fakeDirectory struct {
	teachers map[uuid.UUID]*directory.Teacher
	students map[uuid.UUID]*directory.Student

	getStudentErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		teachers: make(map[uuid.UUID]*directory.Teacher),
		students: make(map[uuid.UUID]*directory.Student),
	}
}

func (f *fakeDirectory) GetTeacher(_ context.Context, id uuid.UUID) (*directory.Teacher, error) {
	t, ok := f.teachers[id]
	if !ok {
		return nil, idb.ErrTeacherNotFound
	}
	tCopy := *t
	return &tCopy, nil
}

func (f *fakeDirectory) GetStudent(_ context.Context, id uuid.UUID) (*directory.Student, error) {
	if f.getStudentErr != nil {
		return nil, f.getStudentErr
	}
	s, ok := f.students[id]
	if !ok {
		return nil, idb.ErrStudentNotFound
	}
	sCopy := *s
	return &sCopy, nil
}

func (f *fakeDirectory) GetStudentByPhone(_ context.Context, phoneNumber string) (*directory.Student, error) {
	for _, s := range f.students {
		if s.PhoneNumber == phoneNumber {
			sCopy := *s
			return &sCopy, nil
		}
	}
	return nil, idb.ErrStudentNotFound
}

func (f *fakeDirectory) GetStudentByTelegramID(_ context.Context, telegramID int64) (*directory.Student, error) {
	for _, s := range f.students {
		if s.TelegramID.Valid && s.TelegramID.Int64 == telegramID {
			sCopy := *s
			return &sCopy, nil
		}
	}
	return nil, idb.ErrStudentNotFound
}

func (f *fakeDirectory) SetStudentTelegramID(_ context.Context, id uuid.UUID, telegramID int64) error {
	s, ok := f.students[id]
	if !ok {
		return idb.ErrStudentNotFound
	}
	s.TelegramID.Int64, s.TelegramID.Valid = telegramID, true
	return nil
}

// fakePaymentRepo is an in-memory payment.Repository.
type fakePaymentRepo struct {
	payments map[uuid.UUID]*payment.TeacherPayment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*payment.TeacherPayment)}
}

func (f *fakePaymentRepo) Create(_ context.Context, p *payment.TeacherPayment) error {
	pCopy := *p
	f.payments[p.ID] = &pCopy
	return nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*payment.TeacherPayment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, idb.ErrPaymentNotFound
	}
	pCopy := *p
	return &pCopy, nil
}

func (f *fakePaymentRepo) ListByTeacher(_ context.Context, teacherID uuid.UUID) ([]*payment.TeacherPayment, error) {
	out := make([]*payment.TeacherPayment, 0)
	for _, p := range f.payments {
		if p.TeacherID == teacherID {
			pCopy := *p
			out = append(out, &pCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePaymentRepo) SetPaid(_ context.Context, id uuid.UUID, at time.Time) error {
	p, ok := f.payments[id]
	if !ok {
		return idb.ErrPaymentNotFound
	}
	if p.IsCancelled {
		return idb.ErrPaymentCancelled
	}
	p.PaidAt.Time, p.PaidAt.Valid = at, true
	return nil
}

func (f *fakePaymentRepo) SetCancelled(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	p, ok := f.payments[id]
	if !ok {
		return idb.ErrPaymentNotFound
	}
	p.IsCancelled = true
	p.CancelledAt.Time, p.CancelledAt.Valid = at, true
	p.CancelledReason.String, p.CancelledReason.Valid = reason, true
	return nil
}

// fakeNotifier records outbound messages and can fail per chat id.
type fakeNotifier struct {
	sent    []sentMessage
	failFor map[int64]error
}

type sentMessage struct {
	chatID int64
	text   string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[int64]error)}
}

func (f *fakeNotifier) SendMessage(_ context.Context, recipientChatID int64, text string, _ *telebot.SendOptions) error {
	if err := f.failFor[recipientChatID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{chatID: recipientChatID, text: text})
	return nil
}

func (f *fakeNotifier) sentTo(chatID int64) int {
	count := 0
	for _, msg := range f.sent {
		if msg.chatID == chatID {
			count++
		}
	}
	return count
}

// fakeMeetings returns a fixed link or an injected error.
type fakeMeetings struct {
	link string
	err  error
}

func (f *fakeMeetings) CreateMeeting(_ context.Context, _ *directory.Teacher, _ *directory.Student, _, _ time.Time) (string, error) {
	return f.link, f.err
}

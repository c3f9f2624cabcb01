package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tutoring_platform/internal/app"
)

const sweepTimeout = 1 * time.Minute

// SweepScheduler is the clock/poller component: it wakes the reminder
// dispatcher on two independent cron cadences, one for the persisted
// reminder sweep and one for the upcoming-lesson alert sweep. Both sweeps
// are safe to run concurrently with lifecycle mutations.
type SweepScheduler struct {
	cronEngine   *cron.Cron
	dispatcher   app.ReminderDispatcher
	logger       *logrus.Entry
	reminderSpec string
	upcomingSpec string
}

func NewSweepScheduler(
	dispatcher app.ReminderDispatcher,
	logger *logrus.Entry,
	reminderSpec string, // e.g. "*/5 * * * *"
	upcomingSpec string, // e.g. "* * * * *"
) *SweepScheduler {
	return &SweepScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)),
		dispatcher:   dispatcher,
		logger:       logger,
		reminderSpec: reminderSpec,
		upcomingSpec: upcomingSpec,
	}
}

// Start registers both sweep jobs and starts the cron engine. It returns an
// error instead of registering partially when a spec does not parse.
func (s *SweepScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.reminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := s.dispatcher.ProcessDueReminders(ctx); err != nil {
			s.logger.WithError(err).Error("Reminder sweep failed")
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cronEngine.AddFunc(s.upcomingSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := s.dispatcher.ProcessUpcomingAlerts(ctx); err != nil {
			s.logger.WithError(err).Error("Upcoming-lesson alert sweep failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"reminder_spec": s.reminderSpec,
		"upcoming_spec": s.upcomingSpec,
	}).Info("Sweep scheduler started")
	return nil
}

// Stop halts scheduling and waits for any running sweep to finish.
func (s *SweepScheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Sweep scheduler stopped")
}

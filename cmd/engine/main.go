package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/telebot.v3"

	"tutoring_platform/internal/app"
	"tutoring_platform/internal/infra/config"
	idb "tutoring_platform/internal/infra/database"
	"tutoring_platform/internal/infra/logger"
	"tutoring_platform/internal/infra/meeting"
	"tutoring_platform/internal/infra/scheduler"
	itg "tutoring_platform/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.WithField("environment", cfg.Environment).Info("Lesson engine starting")

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is not set")
	}

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established")

	// Repositories
	lessonRepo := idb.NewPostgresLessonRepository(db)
	transactionRepo := idb.NewPostgresTransactionRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	directoryRepo := idb.NewPostgresDirectoryRepository(db)

	// Telegram bot and notifier adapter
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			logger.Get().WithError(err).Error("Unhandled telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.WithError(err).Fatal("Could not create Telegram bot")
	}
	notifier := itg.NewTelebotAdapter(bot)

	// Services
	meetingProvider := meeting.NewPlaceholderProvider()
	lessonService := app.NewLessonService(lessonRepo, directoryRepo, meetingProvider,
		logger.Get().WithField("component", "lesson_service"), cfg.ReminderLead)
	reminderService := app.NewReminderService(notificationRepo, lessonRepo, directoryRepo, notifier,
		logger.Get().WithField("component", "reminder_service"), cfg.ReminderLead, cfg.NotifierTimeout)

	// Clock/poller driving both sweeps
	sweepScheduler := scheduler.NewSweepScheduler(reminderService,
		logger.Get().WithField("component", "scheduler"),
		cfg.CronSpecReminderSweep, cfg.CronSpecUpcomingSweep)
	if err := sweepScheduler.Start(); err != nil {
		log.WithError(err).Fatal("Could not start sweep scheduler")
	}

	// Student-facing bot handlers: contact registration plus the lesson and
	// payment-status menus.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	studentHandlers := itg.NewStudentHandlers(directoryRepo, lessonService, transactionRepo,
		logger.Get().WithField("component", "telegram"))
	studentHandlers.Register(ctx, bot)

	log.Info("Application setup complete, starting bot poller")
	go bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	sweepScheduler.Stop()
	bot.Stop()
	log.Info("Shut down gracefully")
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the engine.
type AppConfig struct {
	TelegramToken         string
	DatabaseURL           string
	LogLevel              string
	Environment           string
	CommissionPercentage  int64         // platform share of each settlement batch
	ReminderLead          time.Duration // reminders fire this long before a lesson starts
	NotifierTimeout       time.Duration // bound on a single outbound send
	CronSpecReminderSweep string
	CronSpecUpcomingSweep string
}

// Load reads configuration from environment variables and a .env file (if
// present). godotenv.Load does not override already-set variables.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	// TELEGRAM_TOKEN is only required by binaries that run the bot; they
	// check for it themselves.
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	var err error
	cfg.CommissionPercentage, err = intEnv("PLATFORM_COMMISSION_PERCENTAGE", 15)
	if err != nil {
		return nil, err
	}
	if cfg.CommissionPercentage < 0 || cfg.CommissionPercentage > 100 {
		return nil, fmt.Errorf("PLATFORM_COMMISSION_PERCENTAGE must be between 0 and 100")
	}

	leadMinutes, err := intEnv("REMINDER_LEAD_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.ReminderLead = time.Duration(leadMinutes) * time.Minute

	timeoutSeconds, err := intEnv("NOTIFIER_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.NotifierTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.CronSpecReminderSweep = os.Getenv("CRON_SPEC_REMINDER_SWEEP")
	if cfg.CronSpecReminderSweep == "" {
		cfg.CronSpecReminderSweep = "*/5 * * * *" // every 5 minutes
	}

	cfg.CronSpecUpcomingSweep = os.Getenv("CRON_SPEC_UPCOMING_SWEEP")
	if cfg.CronSpecUpcomingSweep == "" {
		cfg.CronSpecUpcomingSweep = "* * * * *" // every minute
	}

	return cfg, nil
}

func intEnv(name string, fallback int64) (int64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/tazhate/classbot/internal/domain"
)

type Config struct {
	TelegramToken   string
	OwnerTelegramID int64
	DatabasePath    string
	Timezone        *time.Location
	FirstWeekday    time.Weekday
	MorningTime     domain.TimeOfDay
	WebhookURL      string
	ServerPort      string
	RegisterDelay   time.Duration
	Rules           *Rules

	// REST API (Basic Auth)
	APIUsername string
	APIPassword string

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	ownerID, err := strconv.ParseInt(os.Getenv("OWNER_TELEGRAM_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("OWNER_TELEGRAM_ID is required and must be a number")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/classbot.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	firstWeekday, err := domain.ParseFirstWeekday(os.Getenv("FIRST_WEEKDAY"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIRST_WEEKDAY: %w", err)
	}

	morning := os.Getenv("MORNING_TIME")
	if morning == "" {
		morning = "07:30"
	}
	morningTime, err := domain.ParseTimeOfDay(morning)
	if err != nil {
		return nil, fmt.Errorf("invalid MORNING_TIME: %w", err)
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	var registerDelay time.Duration
	if d := os.Getenv("REGISTER_DELAY"); d != "" {
		registerDelay, err = time.ParseDuration(d)
		if err != nil || registerDelay < 0 {
			return nil, fmt.Errorf("invalid REGISTER_DELAY %q", d)
		}
	}

	rules, err := LoadRules(os.Getenv("RULES_FILE"))
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramToken:   token,
		OwnerTelegramID: ownerID,
		DatabasePath:    dbPath,
		Timezone:        tz,
		FirstWeekday:    firstWeekday,
		MorningTime:     morningTime,
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		ServerPort:      serverPort,
		RegisterDelay:   registerDelay,
		Rules:           rules,
		APIUsername:     os.Getenv("API_USERNAME"),
		APIPassword:     os.Getenv("API_PASSWORD"),
		CalDAVURL:       os.Getenv("CALDAV_URL"),
		CalDAVUsername:  os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:  os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar:  os.Getenv("CALDAV_CALENDAR"),
	}, nil
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.OwnerTelegramID
}

// CalDAVEnabled reports whether reminders should be mirrored to a calendar.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVUsername != "" && c.CalDAVPassword != "" && c.CalDAVCalendar != ""
}

// Package config loads server settings from MUSTER_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Calendar backends.
const (
	CalendarNone   = "none"
	CalendarICS    = "ics"
	CalendarCalDAV = "caldav"
	CalendarGoogle = "google"
)

type Config struct {
	HTTPAddr  string `env:"MUSTER_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr  string `env:"MUSTER_GRPC_ADDR" envDefault:":9090"` // "off" disables gRPC
	AuthToken string `env:"MUSTER_AUTH_TOKEN"`                   // empty disables auth
	NATSURL   string `env:"MUSTER_NATS_URL"`                     // empty = no NATS
	LogLevel  string `env:"MUSTER_LOG_LEVEL" envDefault:"info"`

	// DatabaseURL selects the postgres journal; empty keeps it in memory.
	DatabaseURL string `env:"MUSTER_DATABASE_URL"`

	TemplatesFile    string        `env:"MUSTER_TEMPLATES_FILE"`
	AllowedChannels  []string      `env:"MUSTER_ALLOWED_CHANNELS" envSeparator:","`
	Timezone         string        `env:"MUSTER_TIMEZONE" envDefault:"UTC"`
	ReminderSchedule string        `env:"MUSTER_REMINDER_SCHEDULE" envDefault:"@every 60s"`
	EventDuration    time.Duration `env:"MUSTER_EVENT_DURATION" envDefault:"2h"`
	StreamKeepalive  time.Duration `env:"MUSTER_STREAM_KEEPALIVE" envDefault:"20s"`

	Calendar CalendarConfig
	Sync     SyncConfig

	// Location is Timezone resolved by Load.
	Location *time.Location `env:"-"`
}

type CalendarConfig struct {
	Backend string `env:"MUSTER_CALENDAR" envDefault:"none"`

	CalDAVURL      string `env:"MUSTER_CALDAV_URL"`
	CalDAVUsername string `env:"MUSTER_CALDAV_USERNAME"`
	CalDAVPassword string `env:"MUSTER_CALDAV_PASSWORD"`
	CalDAVCalendar string `env:"MUSTER_CALDAV_CALENDAR"`

	GoogleCalendarID   string `env:"MUSTER_GOOGLE_CALENDAR_ID" envDefault:"primary"`
	GoogleTokenFile    string `env:"MUSTER_GOOGLE_TOKEN_FILE" envDefault:"token.json"`
	GoogleClientID     string `env:"MUSTER_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"MUSTER_GOOGLE_CLIENT_SECRET"`
}

type SyncConfig struct {
	Interval   time.Duration `env:"MUSTER_SYNC_INTERVAL" envDefault:"0"` // 0 = disabled
	S3Bucket   string        `env:"MUSTER_SYNC_S3_BUCKET"`
	S3Endpoint string        `env:"MUSTER_SYNC_S3_ENDPOINT"`
	S3Region   string        `env:"MUSTER_SYNC_S3_REGION" envDefault:"us-east-1"`
	S3Key      string        `env:"MUSTER_SYNC_S3_KEY" envDefault:"muster/events.jsonl"`
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	var channels []string
	for _, ch := range c.AllowedChannels {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	c.AllowedChannels = channels

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("MUSTER_TIMEZONE: %w", err)
	}
	c.Location = loc

	c.Calendar.Backend = strings.ToLower(strings.TrimSpace(c.Calendar.Backend))
	switch c.Calendar.Backend {
	case CalendarNone, CalendarICS:
	case CalendarCalDAV:
		if c.Calendar.CalDAVURL == "" {
			return nil, fmt.Errorf("MUSTER_CALDAV_URL is required for the caldav calendar")
		}
	case CalendarGoogle:
		if c.Calendar.GoogleClientID == "" || c.Calendar.GoogleClientSecret == "" {
			return nil, fmt.Errorf("MUSTER_GOOGLE_CLIENT_ID and MUSTER_GOOGLE_CLIENT_SECRET are required for the google calendar")
		}
	default:
		return nil, fmt.Errorf("MUSTER_CALENDAR: unknown backend %q", c.Calendar.Backend)
	}

	if c.EventDuration <= 0 {
		return nil, fmt.Errorf("MUSTER_EVENT_DURATION must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return nil, err
	}
	if c.Sync.Interval > 0 && c.Sync.S3Bucket == "" {
		return nil, fmt.Errorf("MUSTER_SYNC_S3_BUCKET is required when MUSTER_SYNC_INTERVAL is set")
	}

	return &c, nil
}

// GRPCEnabled reports whether the gRPC listener should start.
func (c *Config) GRPCEnabled() bool {
	return c.GRPCAddr != "" && !strings.EqualFold(c.GRPCAddr, "off")
}

// ChannelAllowed reports whether free-text messages from channel are
// accepted. An empty allow-list accepts every channel.
func (c *Config) ChannelAllowed(channel string) bool {
	if len(c.AllowedChannels) == 0 {
		return true
	}
	for _, ch := range c.AllowedChannels {
		if strings.EqualFold(ch, channel) {
			return true
		}
	}
	return false
}

// ParseLevel maps MUSTER_LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("MUSTER_LOG_LEVEL: %w", err)
	}
	return l, nil
}

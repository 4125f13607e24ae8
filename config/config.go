package config

import (
	"fmt"
	"time"

	"go-bakery/availability"
	"go-bakery/models"
	"go-bakery/utils"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Email services selectable through EMAIL_SERVICE.
const (
	EmailSendGrid = "sendgrid"
	EmailPostmark = "postmark"
)

type Config struct {
	HTTP     *HTTP
	Database *Database
	Auth     *Auth
	Email    *Email
	Rules    *Rules
	Calendar *Calendar
	Jobs     *Jobs
	App      *App
}

type HTTP struct {
	Port           string  `env:"PORT" envDefault:"8000"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

type Database struct {
	URI  string `env:"MONGO_URI"`
	Name string `env:"MONGO_DATABASE" envDefault:"bakery"`
}

type Auth struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	TokenTTL          time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
}

type Email struct {
	Service               string `env:"EMAIL_SERVICE" envDefault:"sendgrid"`
	SendGridAPIKey        string `env:"SENDGRID_API_KEY"`
	SendGridHost          string `env:"SENDGRID_HOST"`
	PostmarkServerToken   string `env:"POSTMARK_SERVER_TOKEN"`
	Sender                string `env:"EMAIL_SENDER"`
	SenderName            string `env:"EMAIL_SENDER_NAME" envDefault:"Bakery"`
	AdminEmail            string `env:"ADMIN_EMAIL"`
	TemplateConfirmation  string `env:"TEMPLATE_ORDER_CONFIRMATION"`
	TemplateAdminNewOrder string `env:"TEMPLATE_ADMIN_NEW_ORDER"`
	TemplateStatusUpdate  string `env:"TEMPLATE_STATUS_UPDATE"`
	TemplateReviewRequest string `env:"TEMPLATE_REVIEW_REQUEST"`
}

type Rules struct {
	LeadDays   int    `env:"LEAD_DAYS" envDefault:"7"`
	DailyLimit int    `env:"DAILY_LIMIT" envDefault:"5"`
	Strategy   string `env:"CAPACITY_STRATEGY" envDefault:"created"`
	Timezone   string `env:"TIMEZONE" envDefault:"Europe/Berlin"`
}

type Calendar struct {
	Fallback      bool          `env:"CALENDAR_FALLBACK" envDefault:"true"`
	ScanLimit     int           `env:"FALLBACK_SCAN_LIMIT" envDefault:"1000"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CALENDAR_CACHE_TTL" envDefault:"1m"`
}

type Jobs struct {
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"1m"`
	ArchiveInterval  time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"1h"`
	ArchiveAfterDays int           `env:"ARCHIVE_AFTER_DAYS" envDefault:"14"`
}

type App struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Mode     string `env:"APP_MODE" envDefault:"DEV"`
}

// NewConfig loads an optional .env file and parses the environment.
func NewConfig() (*Config, error) {
	// a missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg := Config{
		HTTP:     &HTTP{},
		Database: &Database{},
		Auth:     &Auth{},
		Email:    &Email{},
		Rules:    &Rules{},
		Calendar: &Calendar{},
		Jobs:     &Jobs{},
		App:      &App{},
	}

	groups := []struct {
		name string
		v    any
	}{
		{"http", cfg.HTTP},
		{"database", cfg.Database},
		{"auth", cfg.Auth},
		{"email", cfg.Email},
		{"rules", cfg.Rules},
		{"calendar", cfg.Calendar},
		{"jobs", cfg.Jobs},
		{"app", cfg.App},
	}
	for _, g := range groups {
		if err := env.Parse(g.v); err != nil {
			return nil, fmt.Errorf("error parsing %s config: %w", g.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no deployment should run with.
func (c *Config) Validate() error {
	if err := c.Availability().Validate(); err != nil {
		return err
	}
	if c.Calendar.ScanLimit < 0 {
		return fmt.Errorf("%w: negative fallback scan limit %d", models.ErrInvalidConfig, c.Calendar.ScanLimit)
	}
	if c.Jobs.ArchiveAfterDays < 0 {
		return fmt.Errorf("%w: negative archive delay %d", models.ErrInvalidConfig, c.Jobs.ArchiveAfterDays)
	}
	if c.Jobs.PollInterval <= 0 || c.Jobs.ArchiveInterval <= 0 {
		return fmt.Errorf("%w: job intervals must be positive", models.ErrInvalidConfig)
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate limit must be positive", models.ErrInvalidConfig)
	}
	switch c.Email.Service {
	case EmailSendGrid, EmailPostmark:
	default:
		return fmt.Errorf("%w: %w %q", models.ErrInvalidConfig, models.ErrUnknownEmailService, c.Email.Service)
	}
	switch c.App.Mode {
	case utils.AppModeDevelop, utils.AppModeProduction:
	default:
		return fmt.Errorf("%w: unknown app mode %q", models.ErrInvalidConfig, c.App.Mode)
	}
	if _, err := time.LoadLocation(c.Rules.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %w", models.ErrInvalidConfig, c.Rules.Timezone, err)
	}
	return nil
}

// Availability returns the order acceptance rules.
func (c *Config) Availability() availability.Config {
	return availability.Config{
		LeadDays:   c.Rules.LeadDays,
		DailyLimit: c.Rules.DailyLimit,
		Strategy:   availability.Strategy(c.Rules.Strategy),
	}
}

// Location is the bakery's calendar time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Rules.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

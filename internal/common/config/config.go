// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is built once at
// startup and threaded through constructors; nothing reads settings from
// ambient global state.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Mail          MailConfig         `mapstructure:"mail"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	RateLimits    RateLimitConfig    `mapstructure:"rate_limits"`
	Reminders     ReminderConfig     `mapstructure:"reminders"`
	Registry      RegistryConfig     `mapstructure:"registry"`
	Schedules     ScheduleConfig     `mapstructure:"schedules"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Mail Transport Config ---

// MailConfig selects and configures the outbound transport.
type MailConfig struct {
	Provider string `mapstructure:"provider"` // "ses" or "smtp"

	SES struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"ses"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// --- Notification Policy Config ---

// CCChairsPolicy controls when sheet chairs are CC'd on outgoing sends.
type CCChairsPolicy string

const (
	CCChairsAlways  CCChairsPolicy = "always"
	CCChairsNever   CCChairsPolicy = "never"
	CCChairsDefault CCChairsPolicy = "default"
)

// NotificationConfig holds the send policies consulted by the dispatcher
// and recipient composer.
type NotificationConfig struct {
	AllEnabled         bool            `mapstructure:"all_enabled"`
	DisabledCategories []string        `mapstructure:"disabled_categories"`
	CCChairs           CCChairsPolicy  `mapstructure:"cc_chairs"`
	GlobalCC           string          `mapstructure:"global_cc"`
	NoCCValidation     bool            `mapstructure:"no_cc_validation"`
	IndividualEmails   bool            `mapstructure:"individual_emails"`
	HTMLEmails         bool            `mapstructure:"html_emails"`
	OperatorSummary    bool            `mapstructure:"operator_summary"`
	OperatorEmail      string          `mapstructure:"operator_email"`
	FromName           string          `mapstructure:"from_name"`
	FromEmail          string          `mapstructure:"from_email"`
	SiteName           string          `mapstructure:"site_name"`
	SiteURL            string          `mapstructure:"site_url"`
	ExpirationHours    int             `mapstructure:"validation_expiration_hours"`
}

// CategoryEnabled reports whether sends for the named category are allowed.
func (n NotificationConfig) CategoryEnabled(category string) bool {
	if !n.AllEnabled {
		return false
	}
	for _, c := range n.DisabledCategories {
		if c == category {
			return false
		}
	}
	return true
}

// RateLimitConfig holds the hourly send caps per batch pathway.
// 0 means unlimited.
type RateLimitConfig struct {
	ReminderHourly   int `mapstructure:"reminder_hourly"`
	RescheduleHourly int `mapstructure:"reschedule_hourly"`
}

// ReminderConfig holds the lead times for the two reminder passes.
type ReminderConfig struct {
	Lead1Hours int `mapstructure:"lead1_hours"`
	Lead2Hours int `mapstructure:"lead2_hours"`
}

// RegistryConfig points at the system-default template seed file.
type RegistryConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

// ScheduleConfig holds the cron expressions for the two batch pathways.
type ScheduleConfig struct {
	ReminderCron   string `mapstructure:"reminder_cron"`
	RescheduleCron string `mapstructure:"reschedule_cron"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

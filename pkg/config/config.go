package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Data sources for student records.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Mail providers.
const (
	MailProviderConsole  = "console"
	MailProviderSMTP     = "smtp"
	MailProviderSendGrid = "sendgrid"
)

// Confirmation store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Env    string
	Port   int
	Source string

	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Roster     RosterConfig
	Reports    ReportsConfig
	Attendance AttendanceConfig
	Mail       MailConfig
	Tracking   TrackingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// RosterConfig points at the roster file used when Source is "file".
type RosterConfig struct {
	Path string
}

// ReportsConfig tunes report building and export storage.
type ReportsConfig struct {
	SortOrder       string
	GPAScale        string
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	BaseURL         string
}

// AttendanceConfig selects the attendance warning policy.
type AttendanceConfig struct {
	Mode      string
	Threshold float64
}

// MailConfig configures parent report delivery.
type MailConfig struct {
	Provider       string
	From           string
	FromName       string
	SendGridAPIKey string
	SMTP           SMTPConfig
	Workers        int
	Retries        int
	RetryDelay     time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// TrackingConfig gates the open/confirmation tracking endpoints.
type TrackingConfig struct {
	Enabled   bool
	BaseURL   string
	Store     string
	KeyPrefix string
	TTL       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.Source = strings.ToLower(v.GetString("SOURCE"))

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Roster = RosterConfig{Path: v.GetString("ROSTER_PATH")}

	cfg.Reports = ReportsConfig{
		SortOrder:       v.GetString("REPORT_SORT_ORDER"),
		GPAScale:        v.GetString("REPORT_GPA_SCALE"),
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		BaseURL:         strings.TrimRight(v.GetString("REPORTS_BASE_URL"), "/"),
	}

	cfg.Attendance = AttendanceConfig{
		Mode:      strings.ToLower(v.GetString("ATTENDANCE_MODE")),
		Threshold: v.GetFloat64("ATTENDANCE_THRESHOLD"),
	}

	cfg.Mail = MailConfig{
		Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
		From:           v.GetString("MAIL_FROM"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
		},
		Workers:    v.GetInt("MAIL_WORKERS"),
		Retries:    v.GetInt("MAIL_RETRIES"),
		RetryDelay: parseDuration(v.GetString("MAIL_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Tracking = TrackingConfig{
		Enabled:   v.GetBool("ENABLE_TRACKING"),
		BaseURL:   strings.TrimRight(v.GetString("TRACKING_BASE_URL"), "/"),
		Store:     strings.ToLower(v.GetString("TRACKING_STORE")),
		KeyPrefix: v.GetString("TRACKING_KEY_PREFIX"),
		TTL:       parseDuration(v.GetString("TRACKING_TTL"), 30*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("SOURCE", SourceFile)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "report_card")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("ROSTER_PATH", "./examples/roster.yaml")

	v.SetDefault("REPORT_SORT_ORDER", "ascending")
	v.SetDefault("REPORT_GPA_SCALE", "percent")
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_BASE_URL", "http://localhost:8000")

	v.SetDefault("ATTENDANCE_MODE", "minimum")
	v.SetDefault("ATTENDANCE_THRESHOLD", 75)

	v.SetDefault("MAIL_PROVIDER", MailProviderConsole)
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_FROM_NAME", "Report Card")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_WORKERS", 1)
	v.SetDefault("MAIL_RETRIES", 0)
	v.SetDefault("MAIL_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_TRACKING", false)
	v.SetDefault("TRACKING_BASE_URL", "http://localhost:8000")
	v.SetDefault("TRACKING_STORE", StoreMemory)
	v.SetDefault("TRACKING_KEY_PREFIX", "report:confirm:")
	v.SetDefault("TRACKING_TTL", "720h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// Package config loads, defaults, and validates the editlogbot configuration
// from config.yaml, a .env file, and environment variables.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Health    HealthConfig    `mapstructure:"health"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log verbosity and format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credentials and the operator receiving edit reports.
// OperatorID 0 disables edit auditing. Group and channel ids are negative.
type TelegramConfig struct {
	Token      string `mapstructure:"token"       validate:"required"`
	OperatorID int64  `mapstructure:"operator_id"`
	APIURL     string `mapstructure:"api_url"     validate:"required,url"`
	Workers    int    `mapstructure:"workers"     validate:"min=1,max=256"`
}

// DatabaseConfig selects the snapshot store backend.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// StorageConfig describes the S3-compatible bucket for archived media.
// An empty Endpoint disables archiving.
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"      validate:"required_with=Endpoint"`
	SecretKey     string `mapstructure:"secret_key"      validate:"required_with=Endpoint"`
	Bucket        string `mapstructure:"bucket"          validate:"required_with=Endpoint"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"required_with=Endpoint,omitempty,url"`
	Region        string `mapstructure:"region"`
	MaxMediaBytes int64  `mapstructure:"max_media_bytes" validate:"min=1"`
}

// HealthConfig is the liveness endpoint.
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TimeoutsConfig bounds every network call.
type TimeoutsConfig struct {
	Resolve  time.Duration `mapstructure:"resolve"  validate:"min=1s"`
	Download time.Duration `mapstructure:"download" validate:"min=1s"`
	Upload   time.Duration `mapstructure:"upload"   validate:"min=1s"`
	Store    time.Duration `mapstructure:"store"    validate:"min=1s"`
	Send     time.Duration `mapstructure:"send"     validate:"min=1s"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds user-facing texts.
type MessagesConfig struct {
	StartupNotice string `mapstructure:"startup_notice"`
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	StatusOK      string `mapstructure:"status_ok"      validate:"required"`
	StatusFail    string `mapstructure:"status_fail"    validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
}

// AuditEnabled reports whether an operator is configured to receive edit reports.
func (c *Config) AuditEnabled() bool {
	return c.Telegram.OperatorID != 0
}

// ArchiveEnabled reports whether object storage is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Storage.Endpoint != ""
}

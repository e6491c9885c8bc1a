package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. EDITLOG_TIMEOUTS_SEND.
const EnvPrefix = "EDITLOG"

// legacyEnv maps config keys to the environment names used by existing deployments.
var legacyEnv = map[string][]string{
	"telegram.token":          {"BOT_TOKEN"},
	"telegram.operator_id":    {"OWNER_ID"},
	"database.dsn":            {"MONGO_CONNECTION", "DATABASE_URL"},
	"storage.endpoint":        {"R2_SERVICE_URL"},
	"storage.access_key":      {"R2_ACCESS_KEY"},
	"storage.secret_key":      {"R2_SECRET_KEY"},
	"storage.bucket":          {"R2_BUCKET_NAME"},
	"storage.public_base_url": {"R2_PUBLIC_URL"},
	"health.port":             {"PORT"},
}

// Load loads and validates configuration from:
// 1. Default values
// 2. the YAML file at configPath (optional)
// 3. a .env file in the working directory (optional)
// 4. environment variables
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("%w: failed to bind environment: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	cfg.Storage.PublicBaseURL = strings.TrimRight(cfg.Storage.PublicBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// readConfigFile reads configPath if it exists. A missing file is not an error.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath == "" {
		return nil
	}
	if _, err := os.Stat(configPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Config file not found, using defaults and environment", "path", configPath)
			return nil
		}
		return err
	}

	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults registers every key so environment overrides are picked up on unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.operator_id", 0)
	v.SetDefault("telegram.api_url", DefaultTelegramAPIURL)
	v.SetDefault("telegram.workers", DefaultTelegramWorkers)

	v.SetDefault("database.dsn", DefaultDatabaseDSN)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.region", DefaultStorageRegion)
	v.SetDefault("storage.max_media_bytes", DefaultStorageMaxMediaBytes)

	v.SetDefault("health.port", DefaultHealthPort)

	v.SetDefault("timeouts.resolve", DefaultResolveTimeout)
	v.SetDefault("timeouts.download", DefaultDownloadTimeout)
	v.SetDefault("timeouts.upload", DefaultUploadTimeout)
	v.SetDefault("timeouts.store", DefaultStoreTimeout)
	v.SetDefault("timeouts.send", DefaultSendTimeout)

	tasks := make(map[string]any, len(DefaultTasks))
	for name, task := range DefaultTasks {
		tasks[name] = map[string]any{"enabled": task.Enabled, "schedule": task.Schedule}
	}
	v.SetDefault("scheduler.tasks", tasks)

	v.SetDefault("messages.startup_notice", DefaultMessages.StartupNotice)
	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.status_ok", DefaultMessages.StatusOK)
	v.SetDefault("messages.status_fail", DefaultMessages.StatusFail)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromFileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  operator_id: 4242
database:
  dsn: "mongodb://localhost:27017"
storage:
  endpoint: "https://acct.r2.cloudflarestorage.com"
  access_key: "ak"
  secret_key: "sk"
  bucket: "media"
  public_base_url: "https://media.example.com/"
timeouts:
  send: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(4242), cfg.Telegram.OperatorID)
	assert.True(t, cfg.AuditEnabled())
	assert.True(t, cfg.ArchiveEnabled())
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.DSN)
	assert.Equal(t, "https://media.example.com", cfg.Storage.PublicBaseURL, "trailing slash is trimmed")
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Send)

	assert.Equal(t, DefaultLogLevel, cfg.Logger.Level)
	assert.Equal(t, DefaultTelegramAPIURL, cfg.Telegram.APIURL)
	assert.Equal(t, DefaultHealthPort, cfg.Health.Port)
	assert.Equal(t, DefaultStoreTimeout, cfg.Timeouts.Store)
	assert.Equal(t, DefaultStorageRegion, cfg.Storage.Region)
	assert.Equal(t, DefaultMessages.Welcome, cfg.Messages.Welcome)
	require.Contains(t, cfg.Scheduler.Tasks, "store_maintenance")
	assert.True(t, cfg.Scheduler.Tasks["store_maintenance"].Enabled)
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:xyz")
	t.Setenv("OWNER_ID", "100500")
	t.Setenv("MONGO_CONNECTION", "mongodb://db:27017")
	t.Setenv("R2_SERVICE_URL", "https://acct.r2.cloudflarestorage.com")
	t.Setenv("R2_ACCESS_KEY", "ak")
	t.Setenv("R2_SECRET_KEY", "sk")
	t.Setenv("R2_BUCKET_NAME", "bucket")
	t.Setenv("R2_PUBLIC_URL", "https://pub.example.com")
	t.Setenv("PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "999:xyz", cfg.Telegram.Token)
	assert.Equal(t, int64(100500), cfg.Telegram.OperatorID)
	assert.Equal(t, "mongodb://db:27017", cfg.Database.DSN)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", cfg.Storage.Endpoint)
	assert.Equal(t, "bucket", cfg.Storage.Bucket)
	assert.Equal(t, "https://pub.example.com", cfg.Storage.PublicBaseURL)
	assert.Equal(t, 9090, cfg.Health.Port)
}

func TestLoad_PrefixedEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
logger:
  level: debug
`)
	t.Setenv("EDITLOG_TELEGRAM_TOKEN", "from-env")
	t.Setenv("EDITLOG_LOGGER_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoad_NoOperatorDisablesAudit(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.AuditEnabled())
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoad_GroupOperatorID(t *testing.T) {
	t.Setenv("OWNER_ID", "-1001234567890")

	cfg, err := Load(writeConfig(t, "telegram:\n  token: t\n"))
	require.NoError(t, err)

	assert.Equal(t, int64(-1001234567890), cfg.Telegram.OperatorID)
	assert.True(t, cfg.AuditEnabled())
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing token",
			content: "logger:\n  level: info\n",
		},
		{
			name:    "invalid log level",
			content: "telegram:\n  token: t\nlogger:\n  level: loud\n",
		},
		{
			name:    "storage without credentials",
			content: "telegram:\n  token: t\nstorage:\n  endpoint: https://s3.example.com\n",
		},
		{
			name:    "timeout too short",
			content: "telegram:\n  token: t\ntimeouts:\n  store: 10ms\n",
		},
		{
			name:    "enabled task without schedule",
			content: "telegram:\n  token: t\nscheduler:\n  tasks:\n    custom:\n      enabled: true\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

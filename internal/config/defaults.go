package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultTelegramAPIURL  = "https://api.telegram.org"
	DefaultTelegramWorkers = 8

	DefaultDatabaseDSN = "storage.db"

	DefaultStorageRegion        = "auto"   // Cloudflare R2 accepts "auto"
	DefaultStorageMaxMediaBytes = 50 << 20 // Bot API downloads are capped at 20MB, leave headroom for local servers

	DefaultHealthPort = 8080

	DefaultResolveTimeout  = 15 * time.Second
	DefaultDownloadTimeout = 2 * time.Minute
	DefaultUploadTimeout   = 2 * time.Minute
	DefaultStoreTimeout    = 10 * time.Second
	DefaultSendTimeout     = 30 * time.Second
)

// Default user-facing messages
var DefaultMessages = MessagesConfig{
	StartupNotice: "✅ Edit log bot started and recording messages.",
	Welcome:       "👋 I record messages in this chat and report edits to the operator.",
	StatusOK:      "✅ Snapshot store is reachable.",
	StatusFail:    "❌ Snapshot store is unreachable.",
	NotAuthorized: "🚫 Access denied.",
}

// DefaultTasks are the scheduled tasks enabled out of the box.
var DefaultTasks = map[string]TaskConfig{
	"store_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"store_healthcheck": {Enabled: true, Schedule: "0 */5 * * * *"},
}

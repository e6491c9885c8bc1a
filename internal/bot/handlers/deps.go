package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/editlogbot/internal/archive"
	"github.com/edgard/editlogbot/internal/audit"
	"github.com/edgard/editlogbot/internal/config"
	"github.com/edgard/editlogbot/internal/database"
)

// MediaArchiver re-hosts message media.
type MediaArchiver interface {
	Archive(ctx context.Context, ref archive.MediaRef) archive.Result
}

// AuditReporter delivers edit reports.
type AuditReporter interface {
	Report(ctx context.Context, old *database.Snapshot, newText string) audit.Outcome
}

// HandlerDeps is the immutable dependency bundle shared by the dispatcher and
// the command handlers. It is built once at startup.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Archiver MediaArchiver
	Reporter AuditReporter
}

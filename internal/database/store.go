package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrUnsupportedDSN is returned by Open when the connection string names no known backend.
var ErrUnsupportedDSN = errors.New("unsupported database connection string")

// Store defines the snapshot store operations.
// Snapshots are append-only: there is no update or delete.
type Store interface {
	// Ping checks the backend connection.
	Ping(ctx context.Context) error

	// InsertSnapshot records a new snapshot. CreatedAt is set by the store.
	InsertSnapshot(ctx context.Context, snapshot *Snapshot) error

	// FindSnapshot returns the most recently inserted snapshot for the given
	// chat and message. Returns nil, nil if not found.
	FindSnapshot(ctx context.Context, chatID int64, messageID int) (*Snapshot, error)

	// RunMaintenance performs backend housekeeping such as VACUUM.
	RunMaintenance(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Open selects a Store backend from the connection string: mongodb:// and
// mongodb+srv:// URIs use MongoDB, anything else is treated as a SQLite path.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return NewMongoStore(ctx, dsn, logger)
	case strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "sqlite://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, dsn[:strings.Index(dsn, "://")])
	}

	db, err := NewDB(dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(db, logger), nil
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance with migrations applied.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store", "backend", "sqlite"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) InsertSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	if snapshot.MediaKind == "" {
		snapshot.MediaKind = MediaNone
	}
	snapshot.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO snapshots (chat_id, message_id, sender_id, sender_display_name, sender_handle,
                               text_content, archived_media_url, media_kind, created_at)
        VALUES (:chat_id, :message_id, :sender_id, :sender_display_name, :sender_handle,
                :text_content, :archived_media_url, :media_kind, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot (chat %d, message %d): %w", snapshot.ChatID, snapshot.MessageID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		snapshot.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving snapshot",
			"chat_id", snapshot.ChatID, "message_id", snapshot.MessageID, "error", err)
	}

	s.logger.DebugContext(ctx, "Snapshot saved",
		"chat_id", snapshot.ChatID, "message_id", snapshot.MessageID, "row_id", snapshot.ID)
	return nil
}

func (s *sqlxStore) FindSnapshot(ctx context.Context, chatID int64, messageID int) (*Snapshot, error) {
	query := `
        SELECT id, chat_id, message_id, sender_id, sender_display_name, sender_handle,
               text_content, archived_media_url, media_kind, created_at
        FROM snapshots
        WHERE chat_id = ? AND message_id = ?
        ORDER BY id DESC
        LIMIT 1;
    `

	var snapshot Snapshot
	if err := s.db.GetContext(ctx, &snapshot, query, chatID, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find snapshot (chat %d, message %d): %w", chatID, messageID, err)
	}
	return &snapshot, nil
}

// VACUUM rewrites the whole file while holding the only connection, so it
// only runs once enough pages are free to be worth the stall.
const (
	vacuumMinFreePages = 64
	vacuumFreeRatio    = 10
)

// RunMaintenance executes a VACUUM on the SQLite database when the free list
// is large enough. VACUUM cannot run inside a transaction.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	needed, err := s.vacuumNeeded(ctx)
	if err != nil {
		return err
	}
	if !needed {
		s.logger.InfoContext(ctx, "Skipping VACUUM, not enough free pages")
		return nil
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}

// vacuumNeeded reports whether at least vacuumMinFreePages pages, and one in
// vacuumFreeRatio of all pages, sit on the free list.
func (s *sqlxStore) vacuumNeeded(ctx context.Context) (bool, error) {
	var pages, free int64
	if err := s.db.GetContext(ctx, &pages, "PRAGMA page_count;"); err != nil {
		return false, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := s.db.GetContext(ctx, &free, "PRAGMA freelist_count;"); err != nil {
		return false, fmt.Errorf("failed to read freelist count: %w", err)
	}

	s.logger.DebugContext(ctx, "Database page usage", "pages", pages, "free_pages", free)
	return free >= vacuumMinFreePages && free*vacuumFreeRatio >= pages, nil
}

func (s *sqlxStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func validateSnapshot(snapshot *Snapshot) error {
	if snapshot == nil {
		return errors.New("cannot save nil snapshot")
	}
	if snapshot.ChatID == 0 {
		return errors.New("snapshot must have a non-zero chat_id")
	}
	if snapshot.MessageID <= 0 {
		return errors.New("snapshot must have a positive message_id")
	}
	return nil
}

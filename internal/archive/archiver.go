// Package archive copies transient Telegram media into durable object storage
// and returns stable public URLs for it.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/edgard/editlogbot/internal/database"
)

// ErrDisabled is reported when no object storage is configured.
var ErrDisabled = errors.New("media archiving disabled")

// FileSource resolves and downloads platform-hosted files.
type FileSource interface {
	// ResolveFile turns a platform file id into a download handle.
	ResolveFile(ctx context.Context, fileID string) (string, error)
	// Download fetches the whole file behind a handle.
	Download(ctx context.Context, handle string) ([]byte, error)
}

// ObjectStore stores objects durably.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// MediaRef points at a media attachment on the source platform.
type MediaRef struct {
	FileID   string
	Kind     database.MediaKind
	FileName string
	MimeType string
}

// Result is the outcome of one archive attempt. On failure URL and Key are
// empty, Err is set, and Kind still carries the detected media kind.
type Result struct {
	URL  string
	Key  string
	Kind database.MediaKind
	Err  error
}

// Archived reports whether the media was stored.
func (r Result) Archived() bool {
	return r.Err == nil && r.URL != ""
}

// Timeouts bounds each network call made while archiving.
type Timeouts struct {
	Resolve  time.Duration
	Download time.Duration
	Upload   time.Duration
}

// Archiver re-hosts platform media into object storage.
type Archiver struct {
	source   FileSource
	store    ObjectStore
	baseURL  string
	timeouts Timeouts
	logger   *slog.Logger
	newKey   func() string
}

// NewArchiver creates an Archiver. A nil store disables uploading; every
// Archive call then reports ErrDisabled.
func NewArchiver(source FileSource, store ObjectStore, publicBaseURL string, timeouts Timeouts, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Archiver{
		source:   source,
		store:    store,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		timeouts: timeouts,
		logger:   logger.With("component", "archiver"),
		newKey:   uuid.NewString,
	}
}

// Archive downloads the referenced file and uploads it under a fresh random key.
// It never fails loudly: errors are logged and returned inside the Result.
func (a *Archiver) Archive(ctx context.Context, ref MediaRef) Result {
	res := Result{Kind: ref.Kind}
	log := a.logger.With("file_id", ref.FileID, "media_kind", ref.Kind)

	if a.store == nil || a.source == nil {
		res.Err = ErrDisabled
		return res
	}
	if ref.FileID == "" {
		res.Err = errors.New("empty file id")
		log.WarnContext(ctx, "Cannot archive media without file id")
		return res
	}

	handle, err := callWithTimeout(ctx, a.timeouts.Resolve, func(ctx context.Context) (string, error) {
		return a.source.ResolveFile(ctx, ref.FileID)
	})
	if err != nil {
		res.Err = fmt.Errorf("failed to resolve file: %w", err)
		log.ErrorContext(ctx, "Failed to resolve media file", "error", err)
		return res
	}

	data, err := callWithTimeout(ctx, a.timeouts.Download, func(ctx context.Context) ([]byte, error) {
		return a.source.Download(ctx, handle)
	})
	if err != nil {
		res.Err = fmt.Errorf("failed to download file: %w", err)
		log.ErrorContext(ctx, "Failed to download media file", "error", err)
		return res
	}

	key := a.newKey() + Extension(ref)
	contentType := ref.MimeType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	_, err = callWithTimeout(ctx, a.timeouts.Upload, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.store.PutObject(ctx, key, data, contentType)
	})
	if err != nil {
		res.Err = fmt.Errorf("failed to upload object %s: %w", key, err)
		log.ErrorContext(ctx, "Failed to upload media to object storage", "key", key, "error", err)
		return res
	}

	res.Key = key
	res.URL = PublicURL(a.baseURL, key)
	log.InfoContext(ctx, "Media archived", "key", key, "size", len(data), "content_type", contentType)
	return res
}

// PublicURL joins the configured base URL and an object key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}

// Extension returns the object key suffix for a media reference.
func Extension(ref MediaRef) string {
	switch ref.Kind {
	case database.MediaPhoto:
		return ".jpg"
	case database.MediaVideo, database.MediaVideoNote:
		return ".mp4"
	case database.MediaVoice:
		return ".ogg"
	default:
		if ext := strings.ToLower(filepath.Ext(ref.FileName)); ext != "" && ext != "." && !strings.ContainsAny(ext, "/\\ ") {
			return ext
		}
		return ".bin"
	}
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

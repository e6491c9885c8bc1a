package database

import (
	"time"
)

// MediaKind identifies the kind of media attached to a message.
type MediaKind string

// Media kinds recorded in snapshots.
const (
	MediaNone      MediaKind = "none"
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
	MediaDocument  MediaKind = "document"
)

// HasMedia reports whether the kind denotes an attachment.
func (k MediaKind) HasMedia() bool {
	return k != "" && k != MediaNone
}

// Snapshot is the immutable copy of a message taken the first time it was seen.
// Chat and message id together identify the message; the pair never repeats
// for a different logical message.
type Snapshot struct {
	ID        int64     `db:"id"         bson:"-"`
	CreatedAt time.Time `db:"created_at" bson:"created_at"`

	ChatID    int64 `db:"chat_id"    bson:"chat_id"`
	MessageID int   `db:"message_id" bson:"message_id"`

	SenderID          *int64 `db:"sender_id"           bson:"sender_id,omitempty"` // nil for anonymous and channel posts
	SenderDisplayName string `db:"sender_display_name" bson:"sender_display_name"`
	SenderHandle      string `db:"sender_handle"       bson:"sender_handle"`

	TextContent      string    `db:"text_content"       bson:"text_content"`
	ArchivedMediaURL string    `db:"archived_media_url" bson:"archived_media_url"`
	MediaKind        MediaKind `db:"media_kind"         bson:"media_kind"`
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestUpdateAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		update   *models.Update
		wantType string
		wantChat bool
	}{
		{
			name:     "message",
			update:   &models.Update{ID: 1, Message: &models.Message{ID: 5, Chat: models.Chat{ID: 10}, From: &models.User{ID: 7}}},
			wantType: "message",
			wantChat: true,
		},
		{
			name:     "edited message",
			update:   &models.Update{ID: 2, EditedMessage: &models.Message{ID: 5, Chat: models.Chat{ID: 10}}},
			wantType: "edited_message",
			wantChat: true,
		},
		{
			name:     "other",
			update:   &models.Update{ID: 3},
			wantType: "other",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			attrs := UpdateAttrs(tt.update)
			assert.Contains(t, attrs, tt.wantType)
			if tt.wantChat {
				assert.Contains(t, attrs, "chat_id")
				assert.Contains(t, attrs, int64(10))
			} else {
				assert.NotContains(t, attrs, "chat_id")
			}
		})
	}
}

func TestMiddleware_CallsNextAndLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "info", true)

	called := false
	handler := Middleware(log)(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		called = true
	})

	handler(context.Background(), nil, &models.Update{ID: 9, EditedMessage: &models.Message{ID: 1, Chat: models.Chat{ID: 2}}})

	require.True(t, called)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Finished processing update", entry["msg"])
	assert.Equal(t, "edited_message", entry["update_type"])
}

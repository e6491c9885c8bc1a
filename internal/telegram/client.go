package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ErrFileTooLarge is returned when a download exceeds the configured limit.
var ErrFileTooLarge = errors.New("file exceeds maximum download size")

// Client adapts the bot SDK to the file access and message delivery needs of
// the archiver and the audit reporter. Every call honours the context deadline.
type Client struct {
	bot          *bot.Bot
	httpClient   *http.Client
	maxFileBytes int64
	logger       *slog.Logger
}

// NewClient creates a Client. Download links point at the server b was built with.
func NewClient(b *bot.Bot, maxFileBytes int64, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		bot:          b,
		httpClient:   httpClient,
		maxFileBytes: maxFileBytes,
		logger:       logger.With("component", "telegram_client"),
	}
}

// ResolveFile asks Telegram for the file path and returns its download link.
func (c *Client) ResolveFile(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", errors.New("empty file id")
	}

	file, err := c.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if file == nil || file.FilePath == "" {
		return "", fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}

	return c.bot.FileDownloadLink(file), nil
}

// Download reads the whole file behind link into memory.
// Errors never include the link itself since it embeds the bot token.
func (c *Client) Download(ctx context.Context, link string) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, errors.New("failed to create download request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to download file: %w", ctx.Err())
		}
		return nil, errors.New("failed to download file: transport error")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d downloading file", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if c.maxFileBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxFileBytes+1)
	}
	data, err = io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if c.maxFileBytes > 0 && int64(len(data)) > c.maxFileBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, c.maxFileBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("received empty file data")
	}

	return data, nil
}

// SendText sends an HTML message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendPhoto sends a photo by URL with an HTML caption. Telegram fetches the URL itself.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	_, err := c.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileString{Data: photoURL},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send photo to chat %d: %w", chatID, err)
	}
	return nil
}

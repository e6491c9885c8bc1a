// Package bot implements lifecycle management and component orchestration
// for the edit log bot: the Telegram listener, the scheduler, and the
// health server.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/editlogbot/internal/config"
	"github.com/edgard/editlogbot/internal/database"
)

// Listener receives Telegram updates until its context is cancelled.
type Listener interface {
	Start(ctx context.Context)
}

// Runner is a component that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

var _ Listener = (*tgbot.Bot)(nil)

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	listener  Listener
	scheduler *Scheduler
	health    Runner
}

// NewBot creates a new instance of the bot with all required dependencies.
// health may be nil to run without the liveness endpoint.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	listener Listener,
	scheduler *Scheduler,
	health Runner,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		listener:  listener,
		scheduler: scheduler,
		health:    health,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...",
		"audit_enabled", b.cfg.AuditEnabled(),
		"archive_enabled", b.cfg.ArchiveEnabled())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if _, err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.health != nil {
		g.Go(func() error {
			if err := b.health.Run(gCtx); err != nil {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if closeErr := b.store.Close(); closeErr != nil {
		b.logger.Error("Failed to close snapshot store", "error", closeErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

// Package main contains the entrypoint for the edit log bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/editlogbot/internal/archive"
	"github.com/edgard/editlogbot/internal/audit"
	"github.com/edgard/editlogbot/internal/bot"
	"github.com/edgard/editlogbot/internal/bot/handlers"
	"github.com/edgard/editlogbot/internal/bot/tasks"
	"github.com/edgard/editlogbot/internal/config"
	"github.com/edgard/editlogbot/internal/database"
	"github.com/edgard/editlogbot/internal/health"
	"github.com/edgard/editlogbot/internal/logger"
	"github.com/edgard/editlogbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, store, archiver, bot, scheduler),
// handles graceful shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	if !cfg.AuditEnabled() {
		log.Warn("No operator configured, edited messages will not be reported")
	}

	store, err := database.Open(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Error("Failed to open snapshot store", "error", err)
		return 1
	}

	var objects archive.ObjectStore
	if cfg.ArchiveEnabled() {
		minioStore, err := archive.NewMinioStore(archive.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
		})
		if err != nil {
			log.Error("Failed to create object storage client", "error", err)
			_ = store.Close()
			return 1
		}
		objects = minioStore
	} else {
		log.Warn("No object storage configured, media will not be archived")
	}

	// Updates only flow once the listener starts, by which time dispatcher is set.
	var dispatcher *handlers.Dispatcher
	dispatch := func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			dispatcher.Middleware(next)(ctx, b, update)
		}
	}

	botOpts := []tgbot.Option{
		tgbot.WithServerURL(cfg.Telegram.APIURL),
		tgbot.WithWorkers(cfg.Telegram.Workers),
		tgbot.WithAllowedUpdates(telegram.AllowedUpdates),
		tgbot.WithMiddlewares(logger.Middleware(log), dispatch),
		tgbot.WithDefaultHandler(func(context.Context, *tgbot.Bot, *models.Update) {}),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Telegram polling error", "error", err)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		_ = store.Close()
		return 1
	}

	client := telegram.NewClient(tg, cfg.Storage.MaxMediaBytes, nil, log)
	archiver := archive.NewArchiver(client, objects, cfg.Storage.PublicBaseURL, archive.Timeouts{
		Resolve:  cfg.Timeouts.Resolve,
		Download: cfg.Timeouts.Download,
		Upload:   cfg.Timeouts.Upload,
	}, log)
	reporter := audit.NewReporter(client, cfg.Telegram.OperatorID, cfg.Timeouts.Send, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Archiver: archiver,
		Reporter: reporter,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	dispatcher = handlers.NewDispatcher(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		_ = store.Close()
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		_ = store.Close()
		return 1
	}
	healthServer := health.NewServer(cfg.Health.Port, store, cfg.Timeouts.Store, log)
	app := bot.NewBot(log, cfg, store, tg, sched, healthServer)

	if cfg.AuditEnabled() && cfg.Messages.StartupNotice != "" {
		reporter.Notify(ctx, cfg.Messages.StartupNotice)
	}

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

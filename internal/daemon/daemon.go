package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/closerlabs/salesbot/internal/config"
	"github.com/closerlabs/salesbot/internal/logger"
	"github.com/closerlabs/salesbot/internal/metrics"
	"github.com/closerlabs/salesbot/internal/telegram"
	"github.com/closerlabs/salesbot/pkg/archive"
	"github.com/closerlabs/salesbot/pkg/dialog"
	"github.com/closerlabs/salesbot/pkg/generator"
	"github.com/closerlabs/salesbot/pkg/session"
)

// Daemon wires the bot together: registry, generator, controller, reaper,
// archive store, and the Telegram transport.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	registry   *session.Registry
	reaper     *session.Reaper
	store      *archive.Store
	retention  *archive.Retention
	controller *dialog.Controller
	bot        *telegram.Bot

	metricsServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	startTime time.Time
	running   bool
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := d.initialize(); err != nil {
		cancel()
		return nil, err
	}

	return d, nil
}

// initialize builds the components in dependency order.
func (d *Daemon) initialize() error {
	metrics.EnsureRegistered()

	d.registry = session.NewRegistry()

	store, err := archive.NewStore(d.config.Archive.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize archive store: %w", err)
	}
	d.store = store
	d.retention = archive.NewRetention(store, time.Duration(d.config.Archive.RetentionDays)*24*time.Hour)

	prompt, err := generator.LoadPrompt(d.config.OpenAI.PromptPath)
	if err != nil {
		return fmt.Errorf("failed to load system prompt: %w", err)
	}

	gen, err := generator.NewOpenAI(generator.OpenAIConfig{
		APIKey:       d.config.OpenAI.APIKey,
		Model:        d.config.OpenAI.Model,
		Temperature:  d.config.OpenAI.Temperature,
		MaxTokens:    d.config.OpenAI.MaxTokens,
		SystemPrompt: prompt,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	bot, err := telegram.New(&d.config.Telegram, d.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	d.bot = bot

	timeout := time.Duration(d.config.Dialog.TimeoutMinutes) * time.Minute
	d.controller = dialog.NewController(
		d.registry,
		gen,
		dialog.NewMatcher(),
		d.store,
		d.bot,
		timeout,
	)

	d.reaper = session.NewReaper(d.registry, session.ReaperConfig{
		Timeout:  timeout,
		Interval: time.Duration(d.config.Dialog.ReapIntervalSeconds) * time.Second,
		Archive: func(snap *session.Snapshot) error {
			_, err := d.store.Archive(snap)
			return err
		},
		Notify: func(userID int64) error {
			return d.bot.Send(userID, dialog.TimeoutNotice(timeout))
		},
	})

	d.registerCommands()

	return nil
}

// registerCommands wires the Telegram command set to the controller.
func (d *Daemon) registerCommands() {
	commands := d.bot.Commands()

	commands.Register("start", func(userID int64) error {
		return d.controller.HandleStart(d.ctx, userID)
	})
	commands.Register("stop", func(userID int64) error {
		return d.controller.HandleStop(d.ctx, userID)
	})
	commands.Register("status", func(userID int64) error {
		return d.controller.HandleStatus(d.ctx, userID)
	})
	commands.Register("reset", func(userID int64) error {
		return d.controller.HandleReset(d.ctx, userID)
	})
	commands.Register("profile", func(userID int64) error {
		return d.controller.HandleProfile(d.ctx, userID)
	})
	commands.Register("history", func(userID int64) error {
		return d.controller.HandleHistory(d.ctx, userID)
	})
	commands.Register("timeout", func(userID int64) error {
		reaped := d.reaper.ReapNow()
		return d.bot.Send(userID, fmt.Sprintf("⏰ Завершено неактивных диалогов: %d", reaped))
	})

	d.bot.SetTextHandler(func(userID int64, text string) error {
		return d.controller.HandleText(d.ctx, userID, text)
	})
}

// Start starts all services.
func (d *Daemon) Start() error {
	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	d.logger.Info().Msg("Starting salesbot daemon")
	d.startTime = time.Now()

	if err := d.bot.Start(); err != nil {
		return fmt.Errorf("failed to start telegram bot: %w", err)
	}

	if err := d.reaper.Start(); err != nil {
		return fmt.Errorf("failed to start reaper: %w", err)
	}

	if err := d.retention.Start(); err != nil {
		return fmt.Errorf("failed to start archive retention: %w", err)
	}

	if d.config.Metrics.Enabled {
		d.startMetricsServer()
	}

	if err := d.announceCommands(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to publish command list")
	}

	d.running = true
	d.logger.Info().
		Int("timeout_minutes", d.config.Dialog.TimeoutMinutes).
		Msg("Salesbot daemon started")

	return nil
}

// Stop stops all services in reverse order.
func (d *Daemon) Stop() error {
	if !d.running {
		return fmt.Errorf("daemon is not running")
	}

	d.logger.Info().Msg("Stopping salesbot daemon")

	if err := d.retention.Stop(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to stop archive retention")
	}
	if err := d.reaper.Stop(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to stop reaper")
	}
	if err := d.bot.Stop(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to stop telegram bot")
	}

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to stop metrics server")
		}
	}

	d.cancel()
	d.running = false

	d.logger.Info().
		Dur("uptime", time.Since(d.startTime)).
		Int("open_sessions", d.registry.Len()).
		Msg("Salesbot daemon stopped")

	return nil
}

// Run starts the daemon and blocks until a shutdown signal arrives.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	d.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	return d.Stop()
}

func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	d.metricsServer = &http.Server{
		Addr:    d.config.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		d.logger.Info().Str("addr", d.config.Metrics.Addr).Msg("Metrics server listening")
		if err := d.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

func (d *Daemon) announceCommands() error {
	return d.bot.Commands().SetCommands([]tgbotapi.BotCommand{
		{Command: "start", Description: "Начать новый диалог"},
		{Command: "stop", Description: "Завершить диалог"},
		{Command: "status", Description: "Статус текущего диалога"},
		{Command: "reset", Description: "Сбросить диалог без отчета"},
		{Command: "profile", Description: "Показать профиль"},
		{Command: "history", Description: "Показать историю диалога"},
	})
}

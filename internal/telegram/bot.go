package telegram

import (
	"fmt"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/closerlabs/salesbot/internal/config"
	"github.com/closerlabs/salesbot/internal/logger"
	"github.com/closerlabs/salesbot/internal/metrics"
)

// TextHandler handles plain text messages from a user.
type TextHandler func(userID int64, text string) error

// Bot represents a Telegram bot instance. Inbound updates are serialized
// per user and concurrent across users; outbound sends implement the
// dialog.Sender contract.
type Bot struct {
	api    *tgbotapi.BotAPI
	config *config.TelegramConfig
	logger zerolog.Logger

	commands    *Commands
	textHandler TextHandler
	dispatcher  *dispatcher

	running atomic.Bool
	updates tgbotapi.UpdatesChannel
}

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot := &Bot{
		api:    api,
		config: cfg,
		logger: log.GetZerolog().With().Str("component", "telegram").Logger(),
	}
	bot.commands = NewCommands(bot)
	bot.dispatcher = newDispatcher(bot.handleUpdate)

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// Commands returns the command registry.
func (b *Bot) Commands() *Commands {
	return b.commands
}

// SetTextHandler sets the handler for non-command messages.
func (b *Bot) SetTextHandler(handler TextHandler) {
	b.textHandler = handler
}

// Start starts the bot and begins processing updates
func (b *Bot) Start() error {
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	b.updates = b.api.GetUpdatesChan(u)

	go b.processUpdates()

	b.logger.Info().Msg("Telegram bot started")

	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return fmt.Errorf("bot is not running")
	}

	b.logger.Info().Msg("Stopping Telegram bot")

	b.api.StopReceivingUpdates()
	b.dispatcher.close()

	b.logger.Info().Msg("Telegram bot stopped")

	return nil
}

// processUpdates feeds incoming updates into the per-user dispatcher so a
// slow dialog for one user never delays another user's messages.
func (b *Bot) processUpdates() {
	for update := range b.updates {
		if !b.running.Load() {
			break
		}
		if update.Message == nil || update.Message.From == nil {
			continue
		}

		metrics.TelegramReceived()
		b.dispatcher.enqueue(update.Message.From.ID, update)
	}
}

// handleUpdate routes one update. Runs on the user's dispatch goroutine.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	msg := update.Message

	var err error
	if msg.IsCommand() {
		err = b.commands.HandleCommand(update)
	} else if b.textHandler != nil {
		err = b.textHandler(msg.From.ID, msg.Text)
	}

	if err != nil {
		b.logger.Error().
			Err(err).
			Int("update_id", update.UpdateID).
			Int64("user_id", msg.From.ID).
			Msg("Failed to handle update")
	}
}

// Send sends a text message to a user's direct chat.
func (b *Bot) Send(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)

	if _, err := b.api.Send(msg); err != nil {
		metrics.TelegramError()
		return fmt.Errorf("failed to send message: %w", err)
	}

	metrics.TelegramSent()
	b.logger.Debug().
		Int64("user_id", userID).
		Msg("Message sent")

	return nil
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	return b.running.Load()
}

// Package bot is the user-facing side of the relay: the Telegram bot that
// collects one message per user, asks for confirmation and hands it to the
// relay account.
package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay-bot/internal/conversation"
	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/config"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
)

const updateTimeout = 60

// Log field names.
const (
	LogFieldUserID   = "user_id"
	LogFieldUsername = "username"
	LogFieldAction   = "action"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Requester is a user waiting for the outcome of a delivery cycle.
type Requester struct {
	UserID      int64
	StatusMsgID int
}

// Status is the admin status view.
type Status struct {
	RelayConnected bool
	RelayUsername  string
	Destinations   int
	Quarantined    int
	Processed      int
	OneShot        bool
}

// Backend is what the bot drives in the rest of the process.
type Backend interface {
	// RelayIdentity returns the relay account when its session is up.
	RelayIdentity(ctx context.Context) (domain.Identity, bool)
	AdminID(ctx context.Context) int64
	// Enqueue registers a requester for the next delivery report.
	Enqueue(req Requester)
	// Withdraw drops the latest registration of userID.
	Withdraw(userID int64)
	Status(ctx context.Context) Status
	Groups(limit int) ([]domain.ChatInfo, int)
	RefreshDestinations(ctx context.Context) (int, error)
	ClearQuarantine() int
	ClearProcessed() int
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Machine *conversation.Machine
	Backend Backend
	Access  config.AccessConfig
	// Now defaults to time.Now.
	Now func() time.Time
}

type Bot struct {
	api      API
	self     domain.Identity
	machine  *conversation.Machine
	backend  Backend
	guard    *Guard
	access   config.AccessConfig
	commands *commandRegistry
	logger   *zerolog.Logger
	running  atomic.Bool
}

func New(cfg config.TelegramBotConfig, deps Deps, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return NewWithAPI(api, domain.Identity{ID: api.Self.ID, Username: api.Self.UserName}, deps, logger), nil
}

// NewWithAPI builds a Bot on an existing API client.
func NewWithAPI(api API, self domain.Identity, deps Deps, logger *zerolog.Logger) *Bot {
	b := &Bot{
		api:     api,
		self:    self,
		machine: deps.Machine,
		backend: deps.Backend,
		guard:   NewGuard(deps.Access, deps.Now),
		access:  deps.Access,
		logger:  logger,
	}

	b.commands = b.newCommandRegistry()

	return b
}

// Identity returns the bot account.
func (b *Bot) Identity() domain.Identity {
	return b.self
}

// Ready reports whether the update loop is running.
func (b *Bot) Ready(_ context.Context) error {
	if !b.running.Load() {
		return errors.ErrBotNotRunning
	}

	return nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout

	updates := b.api.GetUpdatesChan(u)

	b.running.Store(true)
	defer b.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()

			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return errors.ErrBotNotRunning
			}

			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}

	if b.access.LogAllMessages {
		b.logger.Info().Int64(LogFieldUserID, msg.From.ID).Str(LogFieldUsername, msg.From.UserName).Int("message_id", msg.MessageID).Bool("command", msg.IsCommand()).Msg("Incoming message")
	}

	if !b.admit(ctx, msg.From, msg.Chat.ID) {
		return
	}

	if msg.IsCommand() {
		b.logger.Info().Str("command", msg.Command()).Int64(LogFieldUserID, msg.From.ID).Msg("Handling command")

		if !b.commands.route(ctx, msg) {
			b.reply(msg.Chat.ID, textUnknownCommand)
		}

		return
	}

	b.handleContent(ctx, msg)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Debug().Err(err).Msg(ErrSendCallbackResp)
	}

	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		return
	}

	if !b.admit(ctx, query.From, query.Message.Chat.ID) {
		return
	}

	b.logger.Debug().Str(LogFieldAction, query.Data).Int64(LogFieldUserID, query.From.ID).Msg("Handling callback")

	if !b.commands.routeCallback(ctx, query) {
		b.logger.Warn().Str(LogFieldAction, query.Data).Msg("unknown callback")
	}
}

// admit runs the access guard and tells rejected users why.
func (b *Bot) admit(ctx context.Context, user *tgbotapi.User, chatID int64) bool {
	decision := b.guard.Check(user.ID, b.backend.AdminID(ctx))
	observability.BotRequests.WithLabelValues(decision).Inc()

	if decision == DecisionAllowed {
		return true
	}

	b.logger.Warn().Int64(LogFieldUserID, user.ID).Str(LogFieldUsername, user.UserName).Str("decision", decision).Msg("Unauthorized access attempt")

	if decision == DecisionUnknownUser {
		b.reply(chatID, textAccessDenied)
	}

	return false
}

func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	return IsAdmin(userID, b.backend.AdminID(ctx))
}

func (b *Bot) reply(chatID int64, text string) {
	b.replyWithMarkup(chatID, text, nil)
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

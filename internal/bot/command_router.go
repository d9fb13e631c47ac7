package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Command names.
const (
	CmdStart   = "start"
	CmdHelp    = "help"
	CmdCancel  = "cancel"
	CmdStatus  = "status"
	CmdGroups  = "groups"
	CmdRefresh = "refresh"
)

// Callback data.
const (
	CallbackForward         = "forward"
	CallbackConfirm         = "confirm"
	CallbackCancel          = "cancel"
	CallbackStatus          = "admin:status"
	CallbackGroups          = "admin:groups"
	CallbackRefresh         = "admin:refresh"
	CallbackClearQuarantine = "admin:clear_quarantine"
	CallbackClearProcessed  = "admin:clear_processed"
)

// commandHandler is a function that handles a specific bot command.
type commandHandler func(ctx context.Context, msg *tgbotapi.Message)

// callbackHandler handles one inline button. chatID is the private chat the
// button was pressed in.
type callbackHandler func(ctx context.Context, user *tgbotapi.User, chatID int64)

// commandRegistry holds the mapping of command names and callback data to
// their handlers.
type commandRegistry struct {
	handlers  map[string]commandHandler
	callbacks map[string]callbackHandler
	// adminOnly lists commands and callbacks restricted to the administrator.
	adminOnly map[string]bool
	bot       *Bot
}

func (b *Bot) newCommandRegistry() *commandRegistry {
	r := &commandRegistry{
		handlers:  make(map[string]commandHandler),
		callbacks: make(map[string]callbackHandler),
		adminOnly: make(map[string]bool),
		bot:       b,
	}

	b.registerUserCommands(r)
	b.registerAdminCommands(r)

	return r
}

func (b *Bot) registerUserCommands(r *commandRegistry) {
	r.handlers[CmdStart] = b.handleStart
	r.handlers[CmdHelp] = b.handleStart
	r.handlers[CmdCancel] = func(ctx context.Context, msg *tgbotapi.Message) {
		b.cancel(ctx, msg.From, msg.Chat.ID)
	}

	r.callbacks[CallbackForward] = b.requestForward
	r.callbacks[CallbackConfirm] = b.confirm
	r.callbacks[CallbackCancel] = b.cancel
}

func (b *Bot) registerAdminCommands(r *commandRegistry) {
	r.handlers[CmdStatus] = func(ctx context.Context, msg *tgbotapi.Message) {
		b.showStatus(ctx, msg.From, msg.Chat.ID)
	}
	r.handlers[CmdGroups] = func(ctx context.Context, msg *tgbotapi.Message) {
		b.showGroups(ctx, msg.From, msg.Chat.ID)
	}
	r.handlers[CmdRefresh] = func(ctx context.Context, msg *tgbotapi.Message) {
		b.refreshGroups(ctx, msg.From, msg.Chat.ID)
	}

	r.callbacks[CallbackStatus] = b.showStatus
	r.callbacks[CallbackGroups] = b.showGroups
	r.callbacks[CallbackRefresh] = b.refreshGroups
	r.callbacks[CallbackClearQuarantine] = b.clearQuarantine
	r.callbacks[CallbackClearProcessed] = b.clearProcessed

	for _, name := range []string{CmdStatus, CmdGroups, CmdRefresh, CallbackStatus, CallbackGroups, CallbackRefresh, CallbackClearQuarantine, CallbackClearProcessed} {
		r.adminOnly[name] = true
	}
}

// route handles the command routing for a message.
func (r *commandRegistry) route(ctx context.Context, msg *tgbotapi.Message) bool {
	cmd := msg.Command()

	handler, ok := r.handlers[cmd]
	if !ok {
		return false
	}

	if r.adminOnly[cmd] && !r.bot.isAdmin(ctx, msg.From.ID) {
		r.bot.reply(msg.Chat.ID, textAdminOnly)

		return true
	}

	handler(ctx, msg)

	return true
}

// routeCallback handles the routing for an inline button press.
func (r *commandRegistry) routeCallback(ctx context.Context, query *tgbotapi.CallbackQuery) bool {
	handler, ok := r.callbacks[query.Data]
	if !ok {
		return false
	}

	chatID := query.Message.Chat.ID

	if r.adminOnly[query.Data] && !r.bot.isAdmin(ctx, query.From.ID) {
		r.bot.reply(chatID, textAdminOnly)

		return true
	}

	handler(ctx, query.From, chatID)

	return true
}

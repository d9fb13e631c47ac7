package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-relay-bot/internal/conversation"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
)

// GroupsLimit is how many destinations the groups view lists.
const GroupsLimit = 10

// ErrSendCallbackResp is logged when answering a callback query fails.
const ErrSendCallbackResp = "failed to send callback response"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	b.machine.Reset(msg.From.ID)

	markup := menuKeyboard(b.isAdmin(ctx, msg.From.ID))
	b.replyWithMarkup(msg.Chat.ID, textWelcome, &markup)
}

func (b *Bot) requestForward(ctx context.Context, user *tgbotapi.User, chatID int64) {
	if _, ok := b.backend.RelayIdentity(ctx); !ok {
		b.reply(chatID, textRelayUnavailable)

		return
	}

	adminID := b.backend.AdminID(ctx)
	allowed := b.guard.Check(user.ID, adminID) == DecisionAllowed

	// The hourly quota is spent when a forward starts.
	if allowed && !b.guard.Allow(user.ID, adminID) {
		observability.BotRequests.WithLabelValues(DecisionRateLimited).Inc()
		b.reply(chatID, textRateLimited)

		return
	}

	if err := b.machine.RequestForward(user.ID, allowed); err != nil {
		b.reply(chatID, textAccessDenied)

		return
	}

	markup := cancelKeyboard()
	b.replyWithMarkup(chatID, textSendContent, &markup)
}

func (b *Bot) handleContent(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.machine.ContentReceived(msg.From.ID, msg.MessageID); err != nil {
		markup := menuKeyboard(b.isAdmin(ctx, msg.From.ID))
		b.replyWithMarkup(msg.Chat.ID, textNotWaiting, &markup)

		return
	}

	markup := confirmKeyboard()
	b.replyWithMarkup(msg.Chat.ID, textConfirmPrompt, &markup)
}

func (b *Bot) confirm(ctx context.Context, user *tgbotapi.User, chatID int64) {
	if b.machine.State(user.ID) != conversation.StateHoldingPending {
		b.reply(chatID, textNothingPending)

		return
	}

	relayAccount, ok := b.backend.RelayIdentity(ctx)
	if !ok {
		b.machine.Reset(user.ID)
		b.reply(chatID, textRelayUnavailable)

		return
	}

	adminID := b.backend.AdminID(ctx)

	msgID, err := b.machine.Confirm(user.ID)
	if err != nil {
		b.reply(chatID, textNothingPending)

		return
	}

	statusMsgID := 0

	if sent, err := b.api.Send(tgbotapi.NewMessage(chatID, textForwarding)); err != nil {
		b.logger.Warn().Err(err).Int64(LogFieldUserID, user.ID).Msg("failed to send status message")
	} else {
		statusMsgID = sent.MessageID
	}

	b.backend.Enqueue(Requester{UserID: user.ID, StatusMsgID: statusMsgID})

	if _, err := b.api.Send(tgbotapi.NewForward(relayAccount.ID, chatID, msgID)); err != nil {
		b.backend.Withdraw(user.ID)
		b.logger.Error().Err(err).Int64(LogFieldUserID, user.ID).Int("message_id", msgID).Msg("failed to forward message to relay account")

		if err := b.NotifyUser(ctx, user.ID, statusMsgID, textForwardFailed); err != nil {
			b.logger.Error().Err(err).Msg("failed to notify user")
		}

		return
	}

	b.logger.Info().Int64(LogFieldUserID, user.ID).Str(LogFieldUsername, user.UserName).Int("message_id", msgID).Msg("Message handed to relay account")

	if b.access.NotifyOwner && !IsAdmin(user.ID, adminID) {
		if err := b.NotifyAdmin(ctx, formatOwnerNotice(user)); err != nil {
			b.logger.Warn().Err(err).Msg("failed to notify owner")
		}
	}
}

func (b *Bot) cancel(ctx context.Context, user *tgbotapi.User, chatID int64) {
	text := textNothingToCancel
	if b.machine.Cancel(user.ID) {
		text = textCancelled
	}

	markup := menuKeyboard(b.isAdmin(ctx, user.ID))
	b.replyWithMarkup(chatID, text, &markup)
}

func (b *Bot) showStatus(ctx context.Context, _ *tgbotapi.User, chatID int64) {
	b.reply(chatID, formatStatus(b.backend.Status(ctx)))
}

func (b *Bot) showGroups(_ context.Context, _ *tgbotapi.User, chatID int64) {
	infos, total := b.backend.Groups(GroupsLimit)
	b.reply(chatID, formatGroups(infos, total))
}

func (b *Bot) refreshGroups(ctx context.Context, _ *tgbotapi.User, chatID int64) {
	b.reply(chatID, textRefreshing)

	n, err := b.backend.RefreshDestinations(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrRelayUnavailable) {
			b.reply(chatID, textRelayUnavailable)

			return
		}

		b.logger.Error().Err(err).Msg("failed to refresh destinations")
		b.reply(chatID, formatError(err))

		return
	}

	b.reply(chatID, formatRefreshed(n))
}

func (b *Bot) clearQuarantine(_ context.Context, user *tgbotapi.User, chatID int64) {
	n := b.backend.ClearQuarantine()
	b.logger.Info().Int64(LogFieldUserID, user.ID).Int("cleared", n).Msg("Quarantine cleared")
	b.reply(chatID, formatCleared(textQuarantineLabel, n))
}

func (b *Bot) clearProcessed(_ context.Context, user *tgbotapi.User, chatID int64) {
	n := b.backend.ClearProcessed()
	b.logger.Info().Int64(LogFieldUserID, user.ID).Int("cleared", n).Msg("Processed messages cleared")
	b.reply(chatID, formatCleared(textProcessedLabel, n))
}

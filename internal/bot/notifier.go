package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// NotifyUser sends text to a user, editing the status message when there is
// one. A failed edit falls back to a new message.
func (b *Bot) NotifyUser(_ context.Context, userID int64, statusMsgID int, text string) error {
	if statusMsgID != 0 {
		edit := tgbotapi.NewEditMessageText(userID, statusMsgID, text)
		edit.ParseMode = tgbotapi.ModeHTML

		_, err := b.api.Send(edit)
		if err == nil {
			return nil
		}

		b.logger.Debug().Err(err).Int64(LogFieldUserID, userID).Msg("editing status message failed, sending a new one")
	}

	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("notifying user %d: %w", userID, err)
	}

	return nil
}

// NotifyAdmin sends text to the administrator. Without one it does nothing.
func (b *Bot) NotifyAdmin(ctx context.Context, text string) error {
	adminID := b.backend.AdminID(ctx)
	if adminID == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(adminID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("notifying admin %d: %w", adminID, err)
	}

	return nil
}

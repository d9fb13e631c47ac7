package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

// User-facing texts.
const (
	textWelcome          = "👋 Hi! I can relay one message to the configured groups.\n\nPress <b>Forward message</b> and send me what you want to share."
	textSendContent      = "📝 Send me the message you want to forward. Text, photos, videos and files are supported."
	textConfirmPrompt    = "Forward this message to all destinations?"
	textNotWaiting       = "ℹ️ I was not expecting a message. Use the menu below to start."
	textNothingPending   = "There is no message waiting for confirmation."
	textNothingToCancel  = "Nothing to cancel."
	textCancelled        = "❌ Cancelled."
	textForwarding       = "⏳ Forwarding your message..."
	textForwardFailed    = "❌ Could not hand the message to the relay account. Please try again later."
	textRelayUnavailable = "⚠️ The relay account is not connected, so messages cannot be forwarded right now."
	textAccessDenied     = "⛔ You are not allowed to use this bot."
	textAdminOnly        = "⛔ This action is available to the administrator only."
	textRateLimited      = "⏱ You have reached the hourly message limit. Try again later."
	textUnknownCommand   = "Unknown command. Use /start."
	textRefreshing       = "🔄 Refreshing destinations..."
	textQuarantineLabel  = "quarantined destinations"
	textProcessedLabel   = "processed messages"
)

// Button labels.
const (
	ButtonForward         = "📤 Forward message"
	ButtonConfirm         = "✅ Confirm"
	ButtonCancel          = "❌ Cancel"
	ButtonStatus          = "📊 Status"
	ButtonGroups          = "👥 Show groups"
	ButtonRefresh         = "🔄 Refresh groups"
	ButtonClearQuarantine = "🧹 Clear quarantine"
	ButtonClearProcessed  = "🗑 Clear processed"
)

func menuKeyboard(admin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ButtonForward, CallbackForward)),
	}

	if admin {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(ButtonStatus, CallbackStatus),
				tgbotapi.NewInlineKeyboardButtonData(ButtonGroups, CallbackGroups),
			),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ButtonRefresh, CallbackRefresh)),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(ButtonClearQuarantine, CallbackClearQuarantine),
				tgbotapi.NewInlineKeyboardButtonData(ButtonClearProcessed, CallbackClearProcessed),
			),
		)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(ButtonConfirm, CallbackConfirm),
			tgbotapi.NewInlineKeyboardButtonData(ButtonCancel, CallbackCancel),
		),
	)
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ButtonCancel, CallbackCancel)),
	)
}

func formatStatus(s Status) string {
	var sb strings.Builder

	sb.WriteString("📊 <b>Status</b>\n\n")

	if s.RelayConnected {
		fmt.Fprintf(&sb, "Relay account: ✅ connected (@%s)\n", html.EscapeString(s.RelayUsername))
	} else {
		sb.WriteString("Relay account: ❌ not connected\n")
	}

	fmt.Fprintf(&sb, "Destinations: <code>%d</code>\n", s.Destinations)
	fmt.Fprintf(&sb, "Quarantined: <code>%d</code>\n", s.Quarantined)
	fmt.Fprintf(&sb, "Processed messages: <code>%d</code>\n", s.Processed)

	mode := "long-running"
	if s.OneShot {
		mode = "one-shot"
	}

	fmt.Fprintf(&sb, "Mode: %s", mode)

	return sb.String()
}

func formatGroups(infos []domain.ChatInfo, total int) string {
	if total == 0 {
		return "No destinations selected."
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "👥 <b>Destinations</b> (%d)\n\n", total)

	for i, info := range infos {
		title := info.Title
		if title == "" {
			title = fmt.Sprintf("%d", info.ID)
		}

		fmt.Fprintf(&sb, "%d. %s", i+1, html.EscapeString(title))

		if info.MemberCount > 0 {
			fmt.Fprintf(&sb, " (%d members)", info.MemberCount)
		}

		sb.WriteString("\n")
	}

	if rest := total - len(infos); rest > 0 {
		fmt.Fprintf(&sb, "... and %d more", rest)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatRefreshed(n int) string {
	return fmt.Sprintf("✅ Destinations refreshed: <code>%d</code> selected.", n)
}

func formatCleared(label string, n int) string {
	return fmt.Sprintf("✅ Cleared %d %s.", n, label)
}

func formatError(err error) string {
	return fmt.Sprintf("❌ Error: %s", html.EscapeString(err.Error()))
}

func formatOwnerNotice(user *tgbotapi.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if user.UserName != "" {
		name += " @" + user.UserName
	}

	return fmt.Sprintf("📨 %s (<code>%d</code>) sent a message for forwarding.", html.EscapeString(strings.TrimSpace(name)), user.ID)
}

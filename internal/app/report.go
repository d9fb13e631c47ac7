package app

import (
	"fmt"
	"strings"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

// FormatReport renders a delivery report for the requester and the admin.
func FormatReport(r domain.Report) string {
	if r.NoDestinations {
		return "⚠️ No destinations available, nothing was sent. Refresh the groups and send the message again."
	}

	var sb strings.Builder

	if r.Failed == 0 {
		sb.WriteString("✅ <b>Forwarding finished</b>\n\n")
	} else {
		sb.WriteString("☑️ <b>Forwarding finished with errors</b>\n\n")
	}

	fmt.Fprintf(&sb, "Delivered: <code>%d/%d</code>\n", r.Succeeded, r.Attempted)
	fmt.Fprintf(&sb, "Failed: <code>%d</code>", r.Failed)

	if r.Forced {
		sb.WriteString("\n\n⚠️ Every destination was quarantined, so all of them were tried anyway.")
	}

	return sb.String()
}

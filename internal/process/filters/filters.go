// Package filters decides whether a candidate chat is an eligible destination.
//
// Rules are evaluated in a fixed order and the first failing rule rejects:
//   - Channel exclusion
//   - Explicit id exclusion
//   - Exclude keywords (case-folded substring of the title)
//   - Include keywords (allow-list, at least one must match)
//   - Admin-only requirement
//   - Member count bounds (unknown count never rejects)
//   - Write permission (probe failure never rejects)
//
// Evaluation is pure: permission probes are attributes of the candidate.
package filters

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

const (
	ReasonChannel        = "filter_channel"
	ReasonExcludedID     = "filter_excluded_id"
	ReasonExcludeKeyword = "filter_exclude_keyword"
	ReasonIncludeMiss    = "filter_include_miss"
	ReasonNotAdmin       = "filter_not_admin"
	ReasonTooFewMembers  = "filter_min_members"
	ReasonTooManyMembers = "filter_max_members"
	ReasonNoWrite        = "filter_no_write"
)

const (
	logFieldTitle  = "title"
	logFieldChatID = "chat_id"
	logFieldReason = "reason"
)

// ShouldInclude reports whether d passes every rule in cfg.
// The logger may be nil.
func ShouldInclude(d domain.Destination, cfg domain.FilterConfig, logger *zerolog.Logger) bool {
	ok, reason := Evaluate(d, cfg)

	if logger != nil {
		info := d.Info()

		if !ok {
			logger.Debug().Int64(logFieldChatID, info.ID).Str(logFieldTitle, info.Title).Str(logFieldReason, reason).Msg("destination excluded")
		} else if info.ProbeErr != nil {
			logger.Debug().Err(info.ProbeErr).Int64(logFieldChatID, info.ID).Str(logFieldTitle, info.Title).Msg("write permission unknown, including by default")
		}
	}

	return ok
}

// Evaluate returns the decision and, on rejection, the reason code.
func Evaluate(d domain.Destination, cfg domain.FilterConfig) (bool, string) {
	info := d.Info()

	if cfg.ExcludeChannels && d.Kind() == domain.KindChannel {
		return false, ReasonChannel
	}

	for _, id := range cfg.ExcludeIDs {
		if id == info.ID {
			return false, ReasonExcludedID
		}
	}

	caser := cases.Fold()
	title := caser.String(info.Title)

	if containsAny(caser, title, cfg.ExcludeKeywords) {
		return false, ReasonExcludeKeyword
	}

	if len(cfg.IncludeKeywords) > 0 && !containsAny(caser, title, cfg.IncludeKeywords) {
		return false, ReasonIncludeMiss
	}

	if cfg.AdminOnly && (info.ProbeErr != nil || info.Permissions == nil || !info.Permissions.IsAdmin) {
		return false, ReasonNotAdmin
	}

	if info.MemberCount > 0 {
		if cfg.MinMembers > 0 && info.MemberCount < cfg.MinMembers {
			return false, ReasonTooFewMembers
		}

		if cfg.MaxMembers > 0 && info.MemberCount > cfg.MaxMembers {
			return false, ReasonTooManyMembers
		}
	}

	if info.ProbeErr == nil && info.Permissions != nil && !canWrite(d.Kind(), *info.Permissions) {
		return false, ReasonNoWrite
	}

	return true, ""
}

func canWrite(kind domain.Kind, perms domain.Permissions) bool {
	if kind == domain.KindChannel {
		return perms.IsAdmin || perms.CanPost || perms.CanSend
	}

	return perms.CanSend
}

func containsAny(caser cases.Caser, foldedTitle string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}

		if strings.Contains(foldedTitle, caser.String(kw)) {
			return true
		}
	}

	return false
}

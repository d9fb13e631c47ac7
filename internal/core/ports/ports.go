// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

// ChatLister lists the chats visible to the relay account.
type ChatLister interface {
	ListChats(ctx context.Context) ([]domain.Destination, error)
}

// PermissionProber reports the relay account's own rights in a chat.
type PermissionProber interface {
	GetPermissions(ctx context.Context, chatID int64) (domain.Permissions, error)
}

// ParticipantSampler samples chat members.
type ParticipantSampler interface {
	SampleParticipants(ctx context.Context, chatID int64, limit int) ([]domain.Participant, error)
}

// MessageSender delivers content to a chat.
// Failures wrap the sentinels in internal/core/errors.
type MessageSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMedia(ctx context.Context, chatID int64, media domain.Media, caption string) error
}

// ChatClient is the full relay-session capability consumed by the core.
type ChatClient interface {
	ChatLister
	PermissionProber
	ParticipantSampler
	MessageSender
	Self(ctx context.Context) (domain.Identity, error)
}

// Notifier delivers bot-side messages to users.
type Notifier interface {
	// NotifyUser sends text to a user chat, editing statusMsgID when it is non-zero.
	NotifyUser(ctx context.Context, userID int64, statusMsgID int, text string) error
	// NotifyAdmin sends text to the administrator when one is known.
	NotifyAdmin(ctx context.Context, text string) error
}

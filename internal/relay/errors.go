package relay

import (
	"fmt"
	"time"

	"github.com/gotd/td/tgerr"

	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
)

const (
	errTypeFloodWait        = "FLOOD_WAIT"
	errTypeFloodPremiumWait = "FLOOD_PREMIUM_WAIT"
	errTypeSlowmodeWait     = "SLOWMODE_WAIT"
)

var rpcErrorSentinels = map[string]error{
	"CHAT_WRITE_FORBIDDEN":         errors.ErrForbidden,
	"CHAT_ADMIN_REQUIRED":          errors.ErrForbidden,
	"CHAT_RESTRICTED":              errors.ErrForbidden,
	"CHAT_SEND_PLAIN_FORBIDDEN":    errors.ErrForbidden,
	"CHAT_SEND_MEDIA_FORBIDDEN":    errors.ErrForbidden,
	"CHAT_SEND_PHOTOS_FORBIDDEN":   errors.ErrForbidden,
	"CHAT_SEND_VIDEOS_FORBIDDEN":   errors.ErrForbidden,
	"CHAT_SEND_DOCS_FORBIDDEN":     errors.ErrForbidden,
	"CHAT_SEND_VOICES_FORBIDDEN":   errors.ErrForbidden,
	"CHAT_SEND_STICKERS_FORBIDDEN": errors.ErrForbidden,
	"CHAT_GUEST_SEND_FORBIDDEN":    errors.ErrForbidden,
	"USER_BANNED_IN_CHANNEL":       errors.ErrForbidden,
	"USER_NOT_PARTICIPANT":         errors.ErrNotParticipant,
	"CHAT_ID_INVALID":              errors.ErrNotParticipant,
	"CHANNEL_PRIVATE":              errors.ErrPrivateChannel,
	"CHANNEL_PUBLIC_GROUP_NA":      errors.ErrPrivateChannel,
	"USER_IS_BOT":                  errors.ErrBotIncompatible,
	"BOT_METHOD_INVALID":           errors.ErrBotIncompatible,
	"PEER_ID_INVALID":              errors.ErrPeerUnknown,
}

// mapError converts MTProto RPC errors into the core sentinels. Errors it does
// not recognize are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	rpcErr, ok := tgerr.As(err)
	if !ok {
		return err
	}

	switch rpcErr.Type {
	case errTypeFloodWait, errTypeFloodPremiumWait, errTypeSlowmodeWait:
		return fmt.Errorf("%w: %w", &errors.RateLimitError{Wait: time.Duration(rpcErr.Argument) * time.Second}, err)
	}

	if sentinel, ok := rpcErrorSentinels[rpcErr.Type]; ok {
		return fmt.Errorf("%w: %w", sentinel, err)
	}

	return err
}

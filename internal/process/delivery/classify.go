package delivery

import (
	"context"

	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
)

// Class groups delivery failures by how the engine reacts to them.
type Class string

const (
	ClassRateLimit       Class = "rate_limit"
	ClassBotIncompatible Class = "bot_incompatible"
	ClassForbidden       Class = "forbidden"
	ClassNotParticipant  Class = "not_participant"
	ClassPrivate         Class = "private"
	ClassCanceled        Class = "canceled"
	ClassUnknown         Class = "unknown"
)

// Classify maps a send error to its class.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errors.ErrRateLimited):
		return ClassRateLimit
	case errors.Is(err, errors.ErrBotIncompatible):
		return ClassBotIncompatible
	case errors.Is(err, errors.ErrForbidden):
		return ClassForbidden
	case errors.Is(err, errors.ErrNotParticipant):
		return ClassNotParticipant
	case errors.Is(err, errors.ErrPrivateChannel):
		return ClassPrivate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	default:
		return ClassUnknown
	}
}

// Quarantines reports whether destinations failing with c are excluded from future cycles.
func (c Class) Quarantines() bool {
	switch c {
	case ClassBotIncompatible, ClassForbidden, ClassNotParticipant, ClassPrivate:
		return true
	default:
		return false
	}
}

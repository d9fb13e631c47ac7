// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Destination access errors returned by the relay chat client.
var (
	// ErrForbidden indicates the relay account may not write to the chat.
	ErrForbidden = errors.New("write forbidden")

	// ErrNotParticipant indicates the relay account is not a member of the chat.
	ErrNotParticipant = errors.New("not a participant")

	// ErrPrivateChannel indicates the channel is private or the account was removed.
	ErrPrivateChannel = errors.New("private channel")

	// ErrBotIncompatible indicates the chat rejects content because of bot members.
	ErrBotIncompatible = errors.New("chat incompatible with bots")

	// ErrPeerUnknown indicates the chat id could not be resolved to a peer.
	ErrPeerUnknown = errors.New("peer not resolved")
)

// Session errors.
var (
	// ErrRelayUnavailable indicates the relay session is not connected.
	ErrRelayUnavailable = errors.New("relay session unavailable")

	// ErrNoCredentials indicates no relay credential source is usable.
	ErrNoCredentials = errors.New("no relay credentials available")

	// ErrSignupNotSupported indicates the relay account would have to sign up.
	ErrSignupNotSupported = errors.New("signup not supported")

	// ErrBotNotRunning indicates the bot update loop has not started or has stopped.
	ErrBotNotRunning = errors.New("bot session not running")
)

// Conversation errors.
var (
	// ErrNotWaiting indicates content arrived while the user was not expected to send any.
	ErrNotWaiting = errors.New("not waiting for content")

	// ErrNoPendingMessage indicates a confirm arrived without a captured message.
	ErrNoPendingMessage = errors.New("no pending message")

	// ErrAccessDenied indicates the user may not use the bot.
	ErrAccessDenied = errors.New("access denied")
)

// Rate limiting and throttling errors.
var (
	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")
)

// RateLimitError is returned when the platform asks the caller to wait.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is a convenience wrapper around errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

package mocks

import "errors"

var (
	// ErrChatNotFound is returned when a chat id has no configured fixture.
	ErrChatNotFound = errors.New("chat not found")

	// ErrListFailed is a canned failure for ListChats.
	ErrListFailed = errors.New("list chats failed")
)

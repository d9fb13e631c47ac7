package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
)

// SentMessage records one SendText or SendMedia call.
type SentMessage struct {
	ChatID  int64
	Text    string
	Media   *domain.Media
	Caption string
}

// ChatClient is a thread-safe in-memory implementation of ports.ChatClient.
type ChatClient struct {
	mu           sync.Mutex
	chats        []domain.Destination
	permissions  map[int64]domain.Permissions
	participants map[int64][]domain.Participant
	self         domain.Identity
	sent         []SentMessage
	attempts     []int64

	// ListChatsFn allows overriding ListChats behavior.
	ListChatsFn func(ctx context.Context) ([]domain.Destination, error)

	// GetPermissionsFn allows overriding GetPermissions behavior.
	GetPermissionsFn func(ctx context.Context, chatID int64) (domain.Permissions, error)

	// SampleParticipantsFn allows overriding SampleParticipants behavior.
	SampleParticipantsFn func(ctx context.Context, chatID int64, limit int) ([]domain.Participant, error)

	// SendFn is consulted before recording a send; a non-nil error fails the send.
	SendFn func(ctx context.Context, chatID int64) error
}

// NewChatClient creates a new mock chat client.
func NewChatClient() *ChatClient {
	return &ChatClient{
		permissions:  make(map[int64]domain.Permissions),
		participants: make(map[int64][]domain.Participant),
	}
}

// SetChats sets the ListChats result.
func (c *ChatClient) SetChats(chats ...domain.Destination) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chats = chats
}

// SetPermissions sets the GetPermissions result for a chat.
func (c *ChatClient) SetPermissions(chatID int64, perms domain.Permissions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.permissions[chatID] = perms
}

// SetParticipants sets the SampleParticipants result for a chat.
func (c *ChatClient) SetParticipants(chatID int64, participants []domain.Participant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.participants[chatID] = participants
}

// SetSelf sets the Self result.
func (c *ChatClient) SetSelf(id domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.self = id
}

// ListChats returns the configured chats.
func (c *ChatClient) ListChats(ctx context.Context) ([]domain.Destination, error) {
	if c.ListChatsFn != nil {
		return c.ListChatsFn(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Destination, len(c.chats))
	copy(out, c.chats)

	return out, nil
}

// GetPermissions returns configured permissions, ErrChatNotFound otherwise.
func (c *ChatClient) GetPermissions(ctx context.Context, chatID int64) (domain.Permissions, error) {
	if c.GetPermissionsFn != nil {
		return c.GetPermissionsFn(ctx, chatID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	perms, ok := c.permissions[chatID]
	if !ok {
		return domain.Permissions{}, ErrChatNotFound
	}

	return perms, nil
}

// SampleParticipants returns up to limit configured participants.
func (c *ChatClient) SampleParticipants(ctx context.Context, chatID int64, limit int) ([]domain.Participant, error) {
	if c.SampleParticipantsFn != nil {
		return c.SampleParticipantsFn(ctx, chatID, limit)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	participants := c.participants[chatID]
	if limit > 0 && len(participants) > limit {
		participants = participants[:limit]
	}

	return participants, nil
}

// SendText records a text send.
func (c *ChatClient) SendText(ctx context.Context, chatID int64, text string) error {
	return c.record(ctx, SentMessage{ChatID: chatID, Text: text})
}

// SendMedia records a media send.
func (c *ChatClient) SendMedia(ctx context.Context, chatID int64, media domain.Media, caption string) error {
	return c.record(ctx, SentMessage{ChatID: chatID, Media: &media, Caption: caption})
}

func (c *ChatClient) record(ctx context.Context, msg SentMessage) error {
	c.mu.Lock()
	c.attempts = append(c.attempts, msg.ChatID)
	c.mu.Unlock()

	if c.SendFn != nil {
		if err := c.SendFn(ctx, msg.ChatID); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, msg)

	return nil
}

// Self returns the configured identity.
func (c *ChatClient) Self(_ context.Context) (domain.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.self, nil
}

// Attempts returns chat ids of every send attempt, successful or not, in order.
func (c *ChatClient) Attempts() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int64, len(c.attempts))
	copy(out, c.attempts)

	return out
}

// Sent returns successful sends in order.
func (c *ChatClient) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SentMessage, len(c.sent))
	copy(out, c.sent)

	return out
}

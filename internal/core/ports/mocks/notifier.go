package mocks

import (
	"context"
	"sync"
)

// Notification records one Notifier call. UserID is 0 for admin notifications.
type Notification struct {
	UserID      int64
	StatusMsgID int
	Text        string
	Admin       bool
}

// Notifier is a thread-safe in-memory implementation of ports.Notifier.
type Notifier struct {
	mu    sync.Mutex
	items []Notification

	// NotifyUserFn allows overriding NotifyUser behavior.
	NotifyUserFn func(ctx context.Context, userID int64, statusMsgID int, text string) error
}

// NewNotifier creates a new mock notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// NotifyUser records a user notification.
func (n *Notifier) NotifyUser(ctx context.Context, userID int64, statusMsgID int, text string) error {
	n.mu.Lock()
	n.items = append(n.items, Notification{UserID: userID, StatusMsgID: statusMsgID, Text: text})
	n.mu.Unlock()

	if n.NotifyUserFn != nil {
		return n.NotifyUserFn(ctx, userID, statusMsgID, text)
	}

	return nil
}

// NotifyAdmin records an admin notification.
func (n *Notifier) NotifyAdmin(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.items = append(n.items, Notification{Text: text, Admin: true})

	return nil
}

// Notifications returns all recorded notifications in order.
func (n *Notifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, len(n.items))
	copy(out, n.items)

	return out
}

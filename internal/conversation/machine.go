// Package conversation tracks where each bot user is in the forward flow.
package conversation

import (
	"sync"

	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
)

type State int

const (
	StateIdle State = iota
	StateWaitingForContent
	StateHoldingPending
)

func (s State) String() string {
	switch s {
	case StateWaitingForContent:
		return "waiting_for_content"
	case StateHoldingPending:
		return "holding_pending"
	default:
		return "idle"
	}
}

type record struct {
	state   State
	pending int
}

// Machine holds one record per user. A user absent from the map is idle.
type Machine struct {
	mu    sync.Mutex
	users map[int64]record
}

func NewMachine() *Machine {
	return &Machine{users: make(map[int64]record)}
}

// RequestForward starts the flow. When allowed is false the user stays where
// they were and ErrAccessDenied is returned. A pending message from an earlier
// request is discarded.
func (m *Machine) RequestForward(userID int64, allowed bool) error {
	if !allowed {
		return errors.ErrAccessDenied
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[userID] = record{state: StateWaitingForContent}

	return nil
}

// ContentReceived captures msgID as the pending message.
func (m *Machine) ContentReceived(userID int64, msgID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.users[userID].state != StateWaitingForContent {
		return errors.ErrNotWaiting
	}

	m.users[userID] = record{state: StateHoldingPending, pending: msgID}

	return nil
}

// Confirm returns the pending message id and resets the user to idle.
func (m *Machine) Confirm(userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.users[userID]
	if rec.state != StateHoldingPending {
		return 0, errors.ErrNoPendingMessage
	}

	delete(m.users, userID)

	return rec.pending, nil
}

// Cancel resets the user to idle and reports whether a message was pending.
func (m *Machine) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.users[userID]
	delete(m.users, userID)

	return rec.state == StateHoldingPending
}

func (m *Machine) State(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.users[userID].state
}

func (m *Machine) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, userID)
}

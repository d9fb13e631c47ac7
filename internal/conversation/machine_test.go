package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
)

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine()

	assert.Equal(t, StateIdle, m.State(1))

	require.NoError(t, m.RequestForward(1, true))
	assert.Equal(t, StateWaitingForContent, m.State(1))

	require.NoError(t, m.ContentReceived(1, 77))
	assert.Equal(t, StateHoldingPending, m.State(1))

	msgID, err := m.Confirm(1)
	require.NoError(t, err)
	assert.Equal(t, 77, msgID)
	assert.Equal(t, StateIdle, m.State(1))
}

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		run       func(m *Machine) error
		wantErr   error
		wantState State
	}{
		{
			name:      "denied request stays idle",
			run:       func(m *Machine) error { return m.RequestForward(1, false) },
			wantErr:   errors.ErrAccessDenied,
			wantState: StateIdle,
		},
		{
			name:      "content while idle is informative only",
			run:       func(m *Machine) error { return m.ContentReceived(1, 5) },
			wantErr:   errors.ErrNotWaiting,
			wantState: StateIdle,
		},
		{
			name: "second content while holding is rejected",
			run: func(m *Machine) error {
				_ = m.RequestForward(1, true)
				_ = m.ContentReceived(1, 5)

				return m.ContentReceived(1, 6)
			},
			wantErr:   errors.ErrNotWaiting,
			wantState: StateHoldingPending,
		},
		{
			name: "confirm while waiting has nothing pending",
			run: func(m *Machine) error {
				_ = m.RequestForward(1, true)
				_, err := m.Confirm(1)

				return err
			},
			wantErr:   errors.ErrNoPendingMessage,
			wantState: StateWaitingForContent,
		},
		{
			name: "new request discards pending",
			run: func(m *Machine) error {
				_ = m.RequestForward(1, true)
				_ = m.ContentReceived(1, 5)

				return m.RequestForward(1, true)
			},
			wantState: StateWaitingForContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()

			err := tt.run(m)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantState, m.State(1))
		})
	}
}

func TestMachine_Cancel(t *testing.T) {
	m := NewMachine()

	assert.False(t, m.Cancel(1))

	_ = m.RequestForward(1, true)
	_ = m.ContentReceived(1, 5)

	assert.True(t, m.Cancel(1))
	assert.Equal(t, StateIdle, m.State(1))

	_, err := m.Confirm(1)
	assert.ErrorIs(t, err, errors.ErrNoPendingMessage)
}

func TestMachine_UsersAreIndependent(t *testing.T) {
	m := NewMachine()

	_ = m.RequestForward(1, true)
	_ = m.RequestForward(2, true)
	_ = m.ContentReceived(2, 9)

	assert.Equal(t, StateWaitingForContent, m.State(1))
	assert.Equal(t, StateHoldingPending, m.State(2))

	m.Reset(2)
	assert.Equal(t, StateIdle, m.State(2))
	assert.Equal(t, StateWaitingForContent, m.State(1))
}

func TestMachine_ConfirmOnlyOnce(t *testing.T) {
	m := NewMachine()
	_ = m.RequestForward(1, true)
	_ = m.ContentReceived(1, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := m.Confirm(1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
}

package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay-bot/internal/bot"
	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports/mocks"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/config"
	"github.com/lueurxax/telegram-relay-bot/internal/process/delivery"
)

const (
	testBotID   int64 = 4000
	testRelayID int64 = 3000
	testUserID  int64 = 2000
)

func noSleep(context.Context, time.Duration) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		OneShot:        true,
		AutoGetGroups:  false,
		ManualGroupIDs: []int64{-101, -102, -103},
		ForwardDelay:   config.Seconds(time.Second),
	}
}

func newTestRuntime(t *testing.T, cfg *config.Config) (*Runtime, *mocks.ChatClient, *mocks.Notifier) {
	t.Helper()

	logger := zerolog.Nop()
	rt := NewRuntime(cfg, &logger, WithEngineOptions(delivery.WithSleep(noSleep)))

	client := mocks.NewChatClient()
	client.SetSelf(domain.Identity{ID: testRelayID, Username: "relay"})

	notifier := mocks.NewNotifier()
	rt.AttachBot(notifier, testBotID)
	rt.AttachRelay(context.Background(), client)

	return rt, client, notifier
}

func forwardedByBot(id int64) domain.Message {
	return domain.Message{ID: id, Text: "hello", SenderID: testBotID, Forwarded: true}
}

func TestHandleForwardDeliversOnce(t *testing.T) {
	cfg := testConfig()
	cfg.OneShot = false

	rt, client, _ := newTestRuntime(t, cfg)
	ctx := context.Background()

	require.NoError(t, rt.HandleForward(ctx, forwardedByBot(10)))
	assert.Equal(t, []int64{-101, -102, -103}, client.Attempts())

	require.NoError(t, rt.HandleForward(ctx, forwardedByBot(10)))
	assert.Len(t, client.Attempts(), 3, "a processed message is never delivered again")

	require.NoError(t, rt.HandleForward(ctx, forwardedByBot(11)))
	assert.Len(t, client.Attempts(), 6)
}

func TestHandleForwardQualification(t *testing.T) {
	tests := []struct {
		name string
		msg  domain.Message
	}{
		{"not forwarded", domain.Message{ID: 1, SenderID: testBotID}},
		{"forwarded by someone else", domain.Message{ID: 2, SenderID: testUserID, Forwarded: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, client, notifier := newTestRuntime(t, testConfig())

			require.NoError(t, rt.HandleForward(context.Background(), tt.msg))
			assert.Empty(t, client.Attempts())
			assert.Empty(t, notifier.Notifications())

			select {
			case <-rt.Finished():
				t.Fatal("ignored message must not end the session")
			default:
			}
		})
	}
}

func TestHandleForwardOneShot(t *testing.T) {
	rt, _, _ := newTestRuntime(t, testConfig())

	require.NoError(t, rt.HandleForward(context.Background(), forwardedByBot(10)))

	select {
	case <-rt.Finished():
	default:
		t.Fatal("one-shot session must finish after the first cycle")
	}

	require.NoError(t, rt.HandleForward(context.Background(), forwardedByBot(11)), "a second cycle must not panic on the closed channel")
}

func TestHandleForwardNoDestinationsKeepsSession(t *testing.T) {
	cfg := testConfig()
	cfg.ManualGroupIDs = nil

	rt, client, notifier := newTestRuntime(t, cfg)
	rt.Enqueue(bot.Requester{UserID: testUserID, StatusMsgID: 55})

	require.NoError(t, rt.HandleForward(context.Background(), forwardedByBot(10)))

	assert.Empty(t, client.Attempts())
	assert.False(t, rt.processed.Contains(10), "an undelivered message stays retryable")

	select {
	case <-rt.Finished():
		t.Fatal("a cycle without destinations must not end the session")
	default:
	}

	got := notifier.Notifications()
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Text, "No destinations")

	cfg.ManualGroupIDs = []int64{-101}
	rt.AttachRelay(context.Background(), client)

	require.NoError(t, rt.HandleForward(context.Background(), forwardedByBot(10)))
	assert.Equal(t, []int64{-101}, client.Attempts())

	select {
	case <-rt.Finished():
	default:
		t.Fatal("one-shot session must finish after a delivered cycle")
	}
}

func TestHandleForwardReports(t *testing.T) {
	rt, _, notifier := newTestRuntime(t, testConfig())

	rt.Enqueue(bot.Requester{UserID: testUserID, StatusMsgID: 55})
	require.NoError(t, rt.HandleForward(context.Background(), forwardedByBot(10)))

	got := notifier.Notifications()
	require.Len(t, got, 2)

	assert.Equal(t, testUserID, got[0].UserID)
	assert.Equal(t, 55, got[0].StatusMsgID)
	assert.Contains(t, got[0].Text, "Delivered: <code>3/3</code>")

	assert.True(t, got[1].Admin)
	assert.Equal(t, got[0].Text, got[1].Text)
}

func TestHandleForwardAdminRequesterNotifiedOnce(t *testing.T) {
	rt, _, notifier := newTestRuntime(t, testConfig())

	rt.Enqueue(bot.Requester{UserID: testRelayID})
	require.NoError(t, rt.HandleForward(context.Background(), forwardedByBot(10)))

	assert.Len(t, notifier.Notifications(), 1)
}

func TestHandleForwardWithoutRelay(t *testing.T) {
	logger := zerolog.Nop()
	rt := NewRuntime(testConfig(), &logger)
	rt.AttachBot(mocks.NewNotifier(), testBotID)

	err := rt.HandleForward(context.Background(), forwardedByBot(10))
	assert.ErrorIs(t, err, errors.ErrRelayUnavailable)

	_, ok := rt.RelayIdentity(context.Background())
	assert.False(t, ok)

	_, err = rt.RefreshDestinations(context.Background())
	assert.ErrorIs(t, err, errors.ErrRelayUnavailable)
}

func TestAdminID(t *testing.T) {
	t.Run("relay account", func(t *testing.T) {
		rt, _, _ := newTestRuntime(t, testConfig())
		assert.Equal(t, testRelayID, rt.AdminID(context.Background()))
	})

	t.Run("first authorized user", func(t *testing.T) {
		cfg := testConfig()
		cfg.AuthorizedUsers = []int64{77, 88}

		logger := zerolog.Nop()
		rt := NewRuntime(cfg, &logger)

		assert.Equal(t, int64(77), rt.AdminID(context.Background()))
	})

	t.Run("none", func(t *testing.T) {
		logger := zerolog.Nop()
		rt := NewRuntime(testConfig(), &logger)

		assert.Zero(t, rt.AdminID(context.Background()))
	})
}

func TestRuntimeAdminViews(t *testing.T) {
	rt, _, _ := newTestRuntime(t, testConfig())
	ctx := context.Background()

	rt.quarantine.Add(-101)
	require.NoError(t, rt.HandleForward(ctx, forwardedByBot(10)))

	status := rt.Status(ctx)
	assert.True(t, status.RelayConnected)
	assert.Equal(t, "relay", status.RelayUsername)
	assert.Equal(t, 3, status.Destinations)
	assert.Equal(t, 1, status.Quarantined)
	assert.Equal(t, 1, status.Processed)

	infos, total := rt.Groups(2)
	assert.Len(t, infos, 2)
	assert.Equal(t, 3, total)

	n, err := rt.RefreshDestinations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, 1, rt.ClearQuarantine())
	assert.Equal(t, 1, rt.ClearProcessed())
	assert.Zero(t, rt.Status(ctx).Processed)
}

func TestRequesterQueue(t *testing.T) {
	q := &requesterQueue{}

	q.push(bot.Requester{UserID: 1, StatusMsgID: 10})
	q.push(bot.Requester{UserID: 2, StatusMsgID: 20})
	q.push(bot.Requester{UserID: 1, StatusMsgID: 30})

	q.withdraw(1)
	assert.Equal(t, 2, q.len())

	req, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, bot.Requester{UserID: 1, StatusMsgID: 10}, req)

	req, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, int64(2), req.UserID)

	_, ok = q.pop()
	assert.False(t, ok)

	q.withdraw(5)
	assert.Zero(t, q.len())
}

func TestFormatReport(t *testing.T) {
	tests := []struct {
		name   string
		report domain.Report
		want   []string
	}{
		{"all delivered", domain.Report{Succeeded: 3, Attempted: 3}, []string{"Forwarding finished</b>", "3/3"}},
		{"with errors", domain.Report{Succeeded: 2, Failed: 1, Attempted: 3}, []string{"with errors", "Failed: <code>1</code>"}},
		{"forced", domain.Report{Succeeded: 1, Attempted: 1, Forced: true}, []string{"quarantined"}},
		{"no destinations", domain.Report{NoDestinations: true}, []string{"No destinations"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatReport(tt.report)
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

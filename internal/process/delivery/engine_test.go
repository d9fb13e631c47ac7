package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports/mocks"
	"github.com/lueurxax/telegram-relay-bot/internal/process/ledger"
)

var errBoom = errors.New("boom")

// fakeClock advances only when the engine sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)

	return ctx.Err()
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func newEngine(t *testing.T, client *mocks.ChatClient, q *ledger.Quarantine, clock *fakeClock) *Engine {
	t.Helper()

	logger := zerolog.Nop()

	return New(client, q, Config{ForwardDelay: 30 * time.Second, RateLimitWait: 10 * time.Second}, &logger, WithSleep(clock.Sleep))
}

func TestDeliver_SkipsQuarantined(t *testing.T) {
	client := mocks.NewChatClient()
	q := ledger.NewQuarantine()
	q.Add(-2)

	report := newEngine(t, client, q, &fakeClock{}).Deliver(context.Background(), domain.Message{ID: 1, Text: "hi"}, []int64{-1, -2, -3})

	assert.Equal(t, []int64{-1, -3}, client.Attempts())
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.Forced)
}

func TestDeliver_ForcedFallback(t *testing.T) {
	client := mocks.NewChatClient()
	q := ledger.NewQuarantine()
	q.Add(-1)
	q.Add(-2)

	report := newEngine(t, client, q, &fakeClock{}).Deliver(context.Background(), domain.Message{ID: 1, Text: "hi"}, []int64{-1, -2})

	assert.Equal(t, []int64{-1, -2}, client.Attempts())
	assert.True(t, report.Forced)
	assert.Equal(t, 2, report.Attempted)
}

func TestDeliver_EmptyListMakesNoCalls(t *testing.T) {
	client := mocks.NewChatClient()
	clock := &fakeClock{}

	report := newEngine(t, client, ledger.NewQuarantine(), clock).Deliver(context.Background(), domain.Message{ID: 1, Text: "hi"}, nil)

	assert.Empty(t, client.Attempts())
	assert.Empty(t, clock.sleeps)
	assert.True(t, report.NoDestinations)
	assert.Equal(t, 0, report.Attempted)
}

func TestDeliver_OrderAndPacing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	client := mocks.NewChatClient()

	var stamps []time.Time

	client.SendFn = func(context.Context, int64) error {
		stamps = append(stamps, clock.Now())
		return nil
	}

	ids := []int64{-9, -1, -5, -1003}
	report := newEngine(t, client, ledger.NewQuarantine(), clock).Deliver(context.Background(), domain.Message{ID: 1, Text: "hi"}, ids)

	assert.Equal(t, ids, client.Attempts())
	assert.Equal(t, 4, report.Succeeded)
	require.Len(t, stamps, 4)

	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 30*time.Second)
	}

	// no pause after the last destination
	assert.Len(t, clock.sleeps, 3)
}

func TestDeliver_RateLimitWaitsAndContinues(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantWait time.Duration
	}{
		{name: "wait from error", err: &coreerrors.RateLimitError{Wait: 10 * time.Second}, wantWait: 10 * time.Second},
		{name: "longer wait from error", err: &coreerrors.RateLimitError{Wait: 42 * time.Second}, wantWait: 42 * time.Second},
		{name: "no hint uses configured wait", err: fmt.Errorf("send: %w", coreerrors.ErrRateLimited), wantWait: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{}
			client := mocks.NewChatClient()
			client.SendFn = func(_ context.Context, chatID int64) error {
				if chatID == -1 {
					return tt.err
				}

				return nil
			}

			q := ledger.NewQuarantine()
			report := newEngine(t, client, q, clock).Deliver(context.Background(), domain.Message{ID: 1, Text: "hi"}, []int64{-1, -2})

			assert.Equal(t, []int64{-1, -2}, client.Attempts())
			assert.Equal(t, []time.Duration{tt.wantWait}, clock.sleeps)
			assert.Equal(t, 1, report.Succeeded)
			assert.Equal(t, 1, report.Failed)
			assert.False(t, q.Contains(-1), "rate limited destination stays eligible")
		})
	}
}

func TestDeliver_ErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantQuarantine bool
	}{
		{name: "forbidden", err: fmt.Errorf("send: %w", coreerrors.ErrForbidden), wantQuarantine: true},
		{name: "not participant", err: coreerrors.ErrNotParticipant, wantQuarantine: true},
		{name: "private", err: coreerrors.ErrPrivateChannel, wantQuarantine: true},
		{name: "bots", err: coreerrors.ErrBotIncompatible, wantQuarantine: true},
		{name: "unknown", err: errBoom, wantQuarantine: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewChatClient()
			client.SendFn = func(_ context.Context, chatID int64) error {
				if chatID == -1 {
					return tt.err
				}

				return nil
			}

			q := ledger.NewQuarantine()
			report := newEngine(t, client, q, &fakeClock{}).Deliver(context.Background(), domain.Message{ID: 1, Text: "hi"}, []int64{-1, -2})

			assert.Equal(t, tt.wantQuarantine, q.Contains(-1))
			assert.Equal(t, []int64{-1, -2}, client.Attempts(), "exactly one attempt per destination")
			assert.Equal(t, 1, report.Failed)
			assert.Equal(t, 1, report.Succeeded)
		})
	}
}

func TestDeliver_Media(t *testing.T) {
	tests := []struct {
		name        string
		media       domain.Media
		wantCaption string
	}{
		{name: "photo keeps caption", media: domain.Media{Kind: domain.MediaPhoto}, wantCaption: "look"},
		{name: "sticker drops caption", media: domain.Media{Kind: domain.MediaSticker}, wantCaption: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewChatClient()
			msg := domain.Message{ID: 1, Text: "look", Media: &tt.media}

			newEngine(t, client, ledger.NewQuarantine(), &fakeClock{}).Deliver(context.Background(), msg, []int64{-1})

			sent := client.Sent()
			require.Len(t, sent, 1)
			require.NotNil(t, sent[0].Media)
			assert.Equal(t, tt.media.Kind, sent[0].Media.Kind)
			assert.Equal(t, tt.wantCaption, sent[0].Caption)
			assert.Empty(t, sent[0].Text)
		})
	}
}

func TestDeliver_CancelReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := mocks.NewChatClient()
	client.SendFn = func(_ context.Context, chatID int64) error {
		if chatID == -2 {
			cancel()
		}

		return nil
	}

	report := newEngine(t, client, ledger.NewQuarantine(), &fakeClock{}).Deliver(ctx, domain.Message{ID: 1, Text: "hi"}, []int64{-1, -2, -3})

	assert.Equal(t, []int64{-1, -2}, client.Attempts())
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{err: nil, want: ""},
		{err: &coreerrors.RateLimitError{Wait: time.Second}, want: ClassRateLimit},
		{err: coreerrors.ErrBotIncompatible, want: ClassBotIncompatible},
		{err: coreerrors.ErrForbidden, want: ClassForbidden},
		{err: coreerrors.ErrNotParticipant, want: ClassNotParticipant},
		{err: coreerrors.ErrPrivateChannel, want: ClassPrivate},
		{err: context.Canceled, want: ClassCanceled},
		{err: errBoom, want: ClassUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

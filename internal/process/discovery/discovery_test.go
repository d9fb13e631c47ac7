package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports/mocks"
	"github.com/lueurxax/telegram-relay-bot/internal/process/ledger"
)

var errTransient = errors.New("transient")

func group(id int64, title string, members int) domain.Group {
	return domain.Group{ChatInfo: domain.ChatInfo{ID: id, Title: title, MemberCount: members}}
}

func channel(id int64, title string, members int) domain.Channel {
	return domain.Channel{ChatInfo: domain.ChatInfo{ID: id, Title: title, MemberCount: members}}
}

func writable() domain.Permissions {
	return domain.Permissions{CanSend: true}
}

func TestDiscover_ManualMode(t *testing.T) {
	logger := zerolog.Nop()
	client := mocks.NewChatClient()
	client.ListChatsFn = func(context.Context) ([]domain.Destination, error) {
		t.Fatal("manual mode must not list chats")
		return nil, nil
	}

	manual := []int64{-3, -1, -2}
	d := New(Config{ManualIDs: manual}, client, nil, nil, &logger)

	got := d.Discover(context.Background())
	assert.Equal(t, []int64{-3, -1, -2}, got)

	got[0] = 99
	assert.Equal(t, int64(-3), manual[0], "result must be a copy")
}

func TestDiscover_AutoMode(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name   string
		chats  []domain.Destination
		perms  map[int64]domain.Permissions
		filter domain.FilterConfig
		want   []int64
	}{
		{
			name:  "keeps discovery order",
			chats: []domain.Destination{group(-5, "E", 10), channel(-1001, "C", 10), group(-2, "B", 10)},
			perms: map[int64]domain.Permissions{-5: writable(), -1001: {CanPost: true}, -2: writable()},
			want:  []int64{-5, -1001, -2},
		},
		{
			name:   "channels excluded",
			chats:  []domain.Destination{group(-5, "E", 10), channel(-1001, "C", 10)},
			perms:  map[int64]domain.Permissions{-5: writable(), -1001: {CanPost: true}},
			filter: domain.FilterConfig{ExcludeChannels: true},
			want:   []int64{-5},
		},
		{
			name:  "probe failure fails open",
			chats: []domain.Destination{group(-5, "E", 10), group(-6, "F", 10)},
			perms: map[int64]domain.Permissions{-5: writable()},
			want:  []int64{-5, -6},
		},
		{
			name:  "no write rights excluded",
			chats: []domain.Destination{group(-5, "E", 10), group(-6, "F", 10)},
			perms: map[int64]domain.Permissions{-5: writable(), -6: {}},
			want:  []int64{-5},
		},
		{
			name:   "unknown member count fails open",
			chats:  []domain.Destination{group(-1, "A", 5), group(-2, "B", 0)},
			perms:  map[int64]domain.Permissions{-1: writable(), -2: writable()},
			filter: domain.FilterConfig{MinMembers: 1},
			want:   []int64{-1, -2},
		},
		{
			name:   "keyword exclusion",
			chats:  []domain.Destination{group(-1, "Spam Group", 10), group(-2, "News", 10)},
			perms:  map[int64]domain.Permissions{-1: writable(), -2: writable()},
			filter: domain.FilterConfig{ExcludeKeywords: []string{"spam"}},
			want:   []int64{-2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewChatClient()
			client.SetChats(tt.chats...)

			for id, p := range tt.perms {
				client.SetPermissions(id, p)
			}

			d := New(Config{Auto: true, Filter: tt.filter}, client, nil, nil, &logger)

			assert.Equal(t, tt.want, d.Discover(context.Background()))
		})
	}
}

func TestDiscover_ListFailureYieldsEmpty(t *testing.T) {
	logger := zerolog.Nop()
	client := mocks.NewChatClient()
	client.ListChatsFn = func(context.Context) ([]domain.Destination, error) {
		return nil, mocks.ErrListFailed
	}

	d := New(Config{Auto: true, ManualIDs: []int64{-1}}, client, nil, nil, &logger)

	got := d.Discover(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDiscover_RelayUnavailableUsesManual(t *testing.T) {
	logger := zerolog.Nop()
	d := New(Config{Auto: true, ManualIDs: []int64{-7, -8}}, nil, nil, nil, &logger)

	assert.Equal(t, []int64{-7, -8}, d.Discover(context.Background()))
}

func TestDiscover_RunsDetectorWhenEnabled(t *testing.T) {
	logger := zerolog.Nop()
	client := mocks.NewChatClient()
	client.SetChats(group(-1, "A", 10), group(-2, "B", 10))
	client.SetPermissions(-1, writable())
	client.SetPermissions(-2, writable())
	client.SetParticipants(-1, []domain.Participant{{UserID: 1}, {UserID: 2, IsBot: true}})
	client.SetParticipants(-2, []domain.Participant{{UserID: 3}})

	q := ledger.NewQuarantine()
	det := NewDetector(client, q, nil, &logger)

	d := New(Config{Auto: true, AutoDetect: true}, client, det, nil, &logger)

	assert.Equal(t, []int64{-1, -2}, d.Discover(context.Background()))
	assert.True(t, q.Contains(-1))
	assert.False(t, q.Contains(-2))
}

func TestRefresh_StoresCurrentSet(t *testing.T) {
	logger := zerolog.Nop()
	client := mocks.NewChatClient()
	client.SetChats(group(-1, "Alpha", 12), channel(-1002, "Beta", 40), group(-3, "Gamma", 0))
	client.SetPermissions(-1, writable())
	client.SetPermissions(-1002, domain.Permissions{IsAdmin: true})
	client.SetPermissions(-3, writable())

	d := New(Config{Auto: true}, client, nil, nil, &logger)

	assert.Empty(t, d.Destinations())

	ids := d.Refresh(context.Background())
	assert.Equal(t, []int64{-1, -1002, -3}, ids)
	assert.Equal(t, ids, d.Destinations())

	summary, total := d.Summary(2)
	assert.Equal(t, 3, total)
	require.Len(t, summary, 2)
	assert.Equal(t, "Alpha", summary[0].Title)
	assert.Equal(t, 12, summary[0].MemberCount)
	assert.Equal(t, "Beta", summary[1].Title)
}

func TestSummary_ManualIDsWithoutDetails(t *testing.T) {
	logger := zerolog.Nop()
	d := New(Config{ManualIDs: []int64{-1, -2}}, nil, nil, nil, &logger)
	d.Refresh(context.Background())

	summary, total := d.Summary(0)
	assert.Equal(t, 2, total)
	assert.Equal(t, []domain.ChatInfo{{ID: -1}, {ID: -2}}, summary)
}

func TestDetect(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		participants   []domain.Participant
		err            error
		preQuarantined bool
		wantQuarantine bool
	}{
		{
			name:           "bot present",
			participants:   []domain.Participant{{UserID: 1}, {UserID: 2, IsBot: true}},
			wantQuarantine: true,
		},
		{
			name:           "clean pass lifts quarantine",
			participants:   []domain.Participant{{UserID: 1}},
			preQuarantined: true,
			wantQuarantine: false,
		},
		{
			name:           "access error quarantines",
			err:            coreerrors.ErrForbidden,
			wantQuarantine: true,
		},
		{
			name:           "private channel quarantines",
			err:            coreerrors.ErrPrivateChannel,
			wantQuarantine: true,
		},
		{
			name:           "unknown error fails closed",
			err:            errTransient,
			wantQuarantine: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const id = int64(-1001)

			client := mocks.NewChatClient()
			client.SampleParticipantsFn = func(_ context.Context, chatID int64, limit int) ([]domain.Participant, error) {
				assert.Equal(t, id, chatID)
				assert.Equal(t, ParticipantSampleSize, limit)

				return tt.participants, tt.err
			}

			q := ledger.NewQuarantine()
			if tt.preQuarantined {
				q.Add(id)
			}

			NewDetector(client, q, nil, &logger).Detect(context.Background(), []int64{id})

			assert.Equal(t, tt.wantQuarantine, q.Contains(id))
		})
	}
}

func TestDetect_LeavesOtherEntriesAlone(t *testing.T) {
	logger := zerolog.Nop()
	client := mocks.NewChatClient()
	client.SetParticipants(-1, []domain.Participant{{UserID: 1}})

	q := ledger.NewQuarantine()
	q.Add(-99)

	NewDetector(client, q, nil, &logger).Detect(context.Background(), []int64{-1})

	assert.True(t, q.Contains(-99))
	assert.False(t, q.Contains(-1))
}

package relay

import (
	"context"
	"fmt"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dialogPages struct {
	pages    []tg.MessagesDialogsClass
	requests []*tg.MessagesGetDialogsRequest
}

func (p *dialogPages) fetch(_ context.Context, req *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	p.requests = append(p.requests, req)

	if len(p.requests) > len(p.pages) {
		return nil, fmt.Errorf("unexpected page %d", len(p.requests))
	}

	return p.pages[len(p.requests)-1], nil
}

func chatIDs(chats []tg.ChatClass) []int64 {
	out := make([]int64, 0, len(chats))

	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Chat:
			out = append(out, MarkChat(c.ID))
		case *tg.Channel:
			out = append(out, MarkChannel(c.ID))
		}
	}

	return out
}

func TestCollectDialogChats_Pages(t *testing.T) {
	channelPeer := &tg.PeerChannel{ChannelID: 2}

	pages := &dialogPages{pages: []tg.MessagesDialogsClass{
		&tg.MessagesDialogsSlice{
			Count: 4,
			Dialogs: []tg.DialogClass{
				&tg.Dialog{Peer: &tg.PeerChat{ChatID: 1}, TopMessage: 10},
				&tg.Dialog{Peer: channelPeer, TopMessage: 20},
			},
			Messages: []tg.MessageClass{
				&tg.Message{ID: 10, PeerID: &tg.PeerChat{ChatID: 1}, Date: 1700000100},
				&tg.Message{ID: 20, PeerID: channelPeer, Date: 1700000050},
			},
			Chats: []tg.ChatClass{
				&tg.Chat{ID: 1, Title: "Alpha"},
				&tg.Channel{ID: 2, AccessHash: 99, Title: "Beta", Megagroup: true},
				// referenced by a message only, not a dialog
				&tg.Channel{ID: 7, AccessHash: 5, Title: "Elsewhere"},
			},
		},
		&tg.MessagesDialogsSlice{
			Count: 4,
			Dialogs: []tg.DialogClass{
				&tg.Dialog{Peer: &tg.PeerUser{UserID: 5}, TopMessage: 30},
				&tg.Dialog{Peer: &tg.PeerChat{ChatID: 3}, TopMessage: 40},
			},
			Messages: []tg.MessageClass{
				&tg.Message{ID: 30, PeerID: &tg.PeerUser{UserID: 5}, Date: 1700000020},
				&tg.Message{ID: 40, PeerID: &tg.PeerChat{ChatID: 3}, Date: 1700000010},
			},
			Chats: []tg.ChatClass{&tg.Chat{ID: 3, Title: "Gamma"}},
			Users: []tg.UserClass{&tg.User{ID: 5, AccessHash: 11}},
		},
	}}

	chats, err := collectDialogChats(context.Background(), pages.fetch, 2)
	require.NoError(t, err)

	assert.Equal(t, []int64{MarkChat(1), MarkChannel(2), MarkChat(3)}, chatIDs(chats))

	require.Len(t, pages.requests, 2)
	assert.Equal(t, &tg.InputPeerEmpty{}, pages.requests[0].OffsetPeer)

	next := pages.requests[1]
	assert.Equal(t, 20, next.OffsetID)
	assert.Equal(t, 1700000050, next.OffsetDate)
	assert.Equal(t, 2, next.Limit)
	assert.Equal(t, &tg.InputPeerChannel{ChannelID: 2, AccessHash: 99}, next.OffsetPeer)
}

func TestCollectDialogChats_SinglePage(t *testing.T) {
	pages := &dialogPages{pages: []tg.MessagesDialogsClass{
		&tg.MessagesDialogs{
			Dialogs: []tg.DialogClass{
				&tg.Dialog{Peer: &tg.PeerChat{ChatID: 1}, TopMessage: 10},
				&tg.Dialog{Peer: &tg.PeerChat{ChatID: 1}, TopMessage: 10},
			},
			Chats: []tg.ChatClass{&tg.Chat{ID: 1}},
		},
	}}

	chats, err := collectDialogChats(context.Background(), pages.fetch, 1)
	require.NoError(t, err)

	assert.Equal(t, []int64{MarkChat(1)}, chatIDs(chats))
	assert.Len(t, pages.requests, 1)
}

func TestCollectDialogChats_Error(t *testing.T) {
	pages := &dialogPages{}

	_, err := collectDialogChats(context.Background(), pages.fetch, 2)
	require.Error(t, err)
}

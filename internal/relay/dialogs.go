package relay

import (
	"context"

	"github.com/gotd/td/tg"
)

const (
	dialogsPageSize = 100
	maxDialogPages  = 50
)

type dialogsFetcher func(ctx context.Context, req *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)

type dialogsPage struct {
	dialogs  []tg.DialogClass
	messages []tg.MessageClass
	chats    []tg.ChatClass
	users    []tg.UserClass
	total    int
	last     bool
}

func splitDialogs(res tg.MessagesDialogsClass) dialogsPage {
	switch r := res.(type) {
	case *tg.MessagesDialogs:
		return dialogsPage{dialogs: r.Dialogs, messages: r.Messages, chats: r.Chats, users: r.Users, last: true}
	case *tg.MessagesDialogsSlice:
		return dialogsPage{dialogs: r.Dialogs, messages: r.Messages, chats: r.Chats, users: r.Users, total: r.Count}
	default:
		return dialogsPage{last: true}
	}
}

// collectDialogChats pages through the dialog list and returns the groups and
// channels behind it in dialog order, each chat once.
func collectDialogChats(ctx context.Context, fetch dialogsFetcher, pageSize int) ([]tg.ChatClass, error) {
	req := &tg.MessagesGetDialogsRequest{OffsetPeer: &tg.InputPeerEmpty{}, Limit: pageSize}
	seen := make(map[int64]struct{})
	fetched := 0

	var out []tg.ChatClass

	for range maxDialogPages {
		res, err := fetch(ctx, req)
		if err != nil {
			return nil, err
		}

		page := splitDialogs(res)
		byID := chatsByMarkedID(page.chats)

		for _, d := range page.dialogs {
			id := peerKey(d.GetPeer())
			if id >= 0 {
				continue
			}

			chat, ok := byID[id]
			if !ok {
				continue
			}

			if _, dup := seen[id]; dup {
				continue
			}

			seen[id] = struct{}{}
			out = append(out, chat)
		}

		fetched += len(page.dialogs)

		if page.last || len(page.dialogs) < pageSize || (page.total > 0 && fetched >= page.total) {
			break
		}

		next, ok := nextDialogsRequest(page, pageSize)
		if !ok || (next.OffsetID == req.OffsetID && next.OffsetDate == req.OffsetDate) {
			break
		}

		req = next
	}

	return out, nil
}

// nextDialogsRequest offsets the next page by the last dialog of page.
func nextDialogsRequest(page dialogsPage, pageSize int) (*tg.MessagesGetDialogsRequest, bool) {
	for i := len(page.dialogs) - 1; i >= 0; i-- {
		d, ok := page.dialogs[i].(*tg.Dialog)
		if !ok {
			continue
		}

		peer, ok := inputPeerOf(d.Peer, page.chats, page.users)
		if !ok {
			return nil, false
		}

		return &tg.MessagesGetDialogsRequest{
			OffsetDate: messageDate(page.messages, d.Peer, d.TopMessage),
			OffsetID:   d.TopMessage,
			OffsetPeer: peer,
			Limit:      pageSize,
		}, true
	}

	return nil, false
}

// peerKey is the marked id of a peer: users keep their positive id.
func peerKey(p tg.PeerClass) int64 {
	switch peer := p.(type) {
	case *tg.PeerUser:
		return peer.UserID
	case *tg.PeerChat:
		return MarkChat(peer.ChatID)
	case *tg.PeerChannel:
		return MarkChannel(peer.ChannelID)
	default:
		return 0
	}
}

func chatsByMarkedID(chats []tg.ChatClass) map[int64]tg.ChatClass {
	out := make(map[int64]tg.ChatClass, len(chats))

	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Chat:
			out[MarkChat(c.ID)] = c
		case *tg.Channel:
			out[MarkChannel(c.ID)] = c
		}
	}

	return out
}

func messageDate(messages []tg.MessageClass, peer tg.PeerClass, id int) int {
	key := peerKey(peer)

	for _, m := range messages {
		switch msg := m.(type) {
		case *tg.Message:
			if msg.ID == id && peerKey(msg.PeerID) == key {
				return msg.Date
			}
		case *tg.MessageService:
			if msg.ID == id && peerKey(msg.PeerID) == key {
				return msg.Date
			}
		}
	}

	return 0
}

func inputPeerOf(p tg.PeerClass, chats []tg.ChatClass, users []tg.UserClass) (tg.InputPeerClass, bool) {
	switch peer := p.(type) {
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: peer.ChatID}, true
	case *tg.PeerChannel:
		for _, chat := range chats {
			if ch, ok := chat.(*tg.Channel); ok && ch.ID == peer.ChannelID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
			}
		}
	case *tg.PeerUser:
		for _, user := range users {
			if u, ok := user.(*tg.User); ok && u.ID == peer.UserID {
				return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}, true
			}
		}
	}

	return nil, false
}

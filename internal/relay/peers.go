package relay

import (
	"sync"

	"github.com/gotd/td/tg"
)

// channelIDOffset turns a channel id into the negative marked id used by the
// Bot API and by configuration ("-100" prefix).
const channelIDOffset = 1_000_000_000_000

type peerKind int

const (
	peerUser peerKind = iota
	peerChat
	peerChannel
)

// MarkChat returns the marked id of a basic group.
func MarkChat(id int64) int64 {
	return -id
}

// MarkChannel returns the marked id of a channel or supergroup.
func MarkChannel(id int64) int64 {
	return -channelIDOffset - id
}

// UnmarkID splits a marked id into its kind and raw id.
func UnmarkID(marked int64) (peerKind, int64) {
	switch {
	case marked < -channelIDOffset:
		return peerChannel, -marked - channelIDOffset
	case marked < 0:
		return peerChat, -marked
	default:
		return peerUser, marked
	}
}

// peerCache remembers the chats and users seen by the relay session so that
// marked ids can be turned back into input peers with access hashes.
type peerCache struct {
	mu    sync.RWMutex
	chats map[int64]tg.ChatClass
	users map[int64]*tg.User
}

func newPeerCache() *peerCache {
	return &peerCache{
		chats: make(map[int64]tg.ChatClass),
		users: make(map[int64]*tg.User),
	}
}

func (c *peerCache) putChats(chats []tg.ChatClass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Chat:
			c.chats[MarkChat(ch.ID)] = ch
		case *tg.Channel:
			c.chats[MarkChannel(ch.ID)] = ch
		}
	}
}

func (c *peerCache) putUser(u *tg.User) {
	if u == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.users[u.ID] = u
}

func (c *peerCache) chat(marked int64) (tg.ChatClass, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chat, ok := c.chats[marked]

	return chat, ok
}

// inputPeer resolves a marked id. Basic groups never need an access hash.
func (c *peerCache) inputPeer(marked int64) (tg.InputPeerClass, bool) {
	kind, id := UnmarkID(marked)

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch kind {
	case peerChat:
		return &tg.InputPeerChat{ChatID: id}, true
	case peerChannel:
		ch, ok := c.chats[marked].(*tg.Channel)
		if !ok {
			return nil, false
		}

		return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
	default:
		u, ok := c.users[id]
		if !ok {
			return nil, false
		}

		return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}, true
	}
}

func (c *peerCache) inputChannel(marked int64) (*tg.InputChannel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ch, ok := c.chats[marked].(*tg.Channel)
	if !ok {
		return nil, false
	}

	return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
}

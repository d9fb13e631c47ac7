package app

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/lueurxax/telegram-relay-bot/internal/bot"
)

// requesterQueue pairs confirmed requests with the forwarded messages the
// relay account receives, oldest first.
type requesterQueue struct {
	mu    sync.Mutex
	items []bot.Requester
}

func (q *requesterQueue) push(req bot.Requester) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, req)
}

func (q *requesterQueue) pop() (bot.Requester, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return bot.Requester{}, false
	}

	req := q.items[0]
	q.items = slices.Delete(q.items, 0, 1)

	return req, true
}

// withdraw drops the newest entry of userID.
func (q *requesterQueue) withdraw(userID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, idx, ok := lo.FindLastIndexOf(q.items, func(r bot.Requester) bool { return r.UserID == userID })
	if ok {
		q.items = slices.Delete(q.items, idx, idx+1)
	}
}

func (q *requesterQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

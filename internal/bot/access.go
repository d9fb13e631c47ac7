package bot

import (
	"slices"
	"sync"
	"time"

	"github.com/lueurxax/telegram-relay-bot/internal/platform/config"
)

// Access decisions, also used as metric labels.
const (
	DecisionAllowed     = "allowed"
	DecisionBlocked     = "blocked"
	DecisionUnknownUser = "unauthorized"
	DecisionRateLimited = "rate_limited"
)

// Guard decides who may use the bot and enforces the hourly message limit.
type Guard struct {
	cfg config.AccessConfig
	now func() time.Time

	mu     sync.Mutex
	counts map[int64]map[int64]int // user -> hour bucket -> messages
}

func NewGuard(cfg config.AccessConfig, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}

	return &Guard{
		cfg:    cfg,
		now:    now,
		counts: make(map[int64]map[int64]int),
	}
}

// Check reports whether userID may use the bot at all. adminID of 0 means no
// administrator is known.
func (g *Guard) Check(userID, adminID int64) string {
	if slices.Contains(g.cfg.BlockedUsers, userID) {
		return DecisionBlocked
	}

	if g.cfg.Public || IsAdmin(userID, adminID) || slices.Contains(g.cfg.AuthorizedUsers, userID) {
		return DecisionAllowed
	}

	return DecisionUnknownUser
}

// Allow consumes one message from the user's hourly quota. Administrators are
// never limited.
func (g *Guard) Allow(userID, adminID int64) bool {
	if g.cfg.MaxMessagesPerHour <= 0 || IsAdmin(userID, adminID) {
		return true
	}

	hour := g.now().Unix() / int64(time.Hour/time.Second)

	g.mu.Lock()
	defer g.mu.Unlock()

	buckets := g.counts[userID]
	if buckets == nil {
		buckets = make(map[int64]int)
		g.counts[userID] = buckets
	}

	for bucket := range buckets {
		if bucket < hour-1 {
			delete(buckets, bucket)
		}
	}

	if buckets[hour] >= g.cfg.MaxMessagesPerHour {
		return false
	}

	buckets[hour]++

	return true
}

// IsAdmin reports whether userID is the known administrator.
func IsAdmin(userID, adminID int64) bool {
	return adminID != 0 && userID == adminID
}

// Package discovery selects the destinations a relayed message goes to.
package discovery

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-relay-bot/internal/process/filters"
)

const (
	logFieldChatID   = "chat_id"
	logFieldTitle    = "title"
	logFieldCount    = "count"
	logFieldGroups   = "groups"
	logFieldChannels = "channels"
	logFieldSelected = "selected"

	probeKindPermissions = "permissions"
	probeStatusOK        = "ok"
	probeStatusError     = "error"
)

// DefaultSummaryLimit is how many destinations the admin overview lists.
const DefaultSummaryLimit = 10

// Config controls how destinations are selected.
type Config struct {
	// Auto lists every chat the relay account can see; otherwise ManualIDs is used.
	Auto      bool
	ManualIDs []int64
	Filter    domain.FilterConfig
	// AutoDetect runs the Detector over every discovery result.
	AutoDetect bool
}

// Discoverer produces the ordered destination list and keeps the current one.
type Discoverer struct {
	cfg      Config
	client   ports.ChatClient
	detector *Detector
	limiter  *rate.Limiter
	logger   *zerolog.Logger

	mu      sync.RWMutex
	current []int64
	infos   map[int64]domain.ChatInfo
}

// New creates a Discoverer. client may be nil when the relay session is
// unavailable; discovery then falls back to the manual list. limiter throttles
// permission probes and may be nil.
func New(cfg Config, client ports.ChatClient, detector *Detector, limiter *rate.Limiter, logger *zerolog.Logger) *Discoverer {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &Discoverer{
		cfg:      cfg,
		client:   client,
		detector: detector,
		limiter:  limiter,
		logger:   logger,
		infos:    make(map[int64]domain.ChatInfo),
	}
}

// Discover returns destination ids in discovery order. It never fails: a chat
// listing error yields an empty list.
func (d *Discoverer) Discover(ctx context.Context) []int64 {
	ids, _ := d.discover(ctx)

	return ids
}

// Refresh runs discovery and stores the result as the current destination set.
func (d *Discoverer) Refresh(ctx context.Context) []int64 {
	ids, infos := d.discover(ctx)

	d.mu.Lock()
	d.current = slices.Clone(ids)
	d.infos = infos
	d.mu.Unlock()

	observability.Destinations.Set(float64(len(ids)))
	d.logger.Info().Int(logFieldCount, len(ids)).Msg("destinations refreshed")

	return ids
}

// Destinations returns a copy of the current destination set.
func (d *Discoverer) Destinations() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.Clone(d.current)
}

// Summary returns up to limit current destinations with whatever details the
// last refresh learned, plus the total count.
func (d *Discoverer) Summary(limit int) ([]domain.ChatInfo, int) {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.ChatInfo, 0, min(limit, len(d.current)))

	for _, id := range d.current {
		if len(out) == limit {
			break
		}

		info, ok := d.infos[id]
		if !ok {
			info = domain.ChatInfo{ID: id}
		}

		out = append(out, info)
	}

	return out, len(d.current)
}

func (d *Discoverer) discover(ctx context.Context) ([]int64, map[int64]domain.ChatInfo) {
	infos := make(map[int64]domain.ChatInfo)

	var ids []int64

	switch {
	case !d.cfg.Auto:
		ids = slices.Clone(d.cfg.ManualIDs)
	case d.client == nil:
		d.logger.Warn().Msg("relay session unavailable, using manual destination list")

		ids = slices.Clone(d.cfg.ManualIDs)
	default:
		ids = d.discoverAuto(ctx, infos)
	}

	if ids == nil {
		ids = []int64{}
	}

	if d.cfg.AutoDetect && d.detector != nil && len(ids) > 0 {
		d.detector.Detect(ctx, ids)
	}

	return ids, infos
}

func (d *Discoverer) discoverAuto(ctx context.Context, infos map[int64]domain.ChatInfo) []int64 {
	chats, err := d.client.ListChats(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to list chats")

		return []int64{}
	}

	groups, channels := lo.FilterReject(chats, func(c domain.Destination, _ int) bool {
		return c.Kind() == domain.KindGroup
	})

	candidates := chats
	if d.cfg.Filter.ExcludeChannels {
		candidates = groups
	}

	ids := make([]int64, 0, len(candidates))

	for _, candidate := range candidates {
		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("discovery interrupted")

			break
		}

		probed := d.probe(ctx, candidate)
		if !filters.ShouldInclude(probed, d.cfg.Filter, d.logger) {
			continue
		}

		info := probed.Info()
		ids = append(ids, info.ID)
		infos[info.ID] = info
	}

	d.logger.Info().
		Int(logFieldGroups, len(groups)).
		Int(logFieldChannels, len(channels)).
		Int(logFieldSelected, len(ids)).
		Msg("automatic discovery finished")

	return ids
}

func (d *Discoverer) probe(ctx context.Context, candidate domain.Destination) domain.Destination {
	info := candidate.Info()

	perms, err := d.client.GetPermissions(ctx, info.ID)
	if err != nil {
		observability.DiscoveryProbes.WithLabelValues(probeKindPermissions, probeStatusError).Inc()
		d.logger.Debug().Err(err).Int64(logFieldChatID, info.ID).Str(logFieldTitle, info.Title).Msg("permission probe failed")

		return domain.WithPermissions(candidate, nil, err)
	}

	observability.DiscoveryProbes.WithLabelValues(probeKindPermissions, probeStatusOK).Inc()

	return domain.WithPermissions(candidate, &perms, nil)
}

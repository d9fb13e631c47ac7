package discovery

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-relay-bot/internal/process/ledger"
)

// ParticipantSampleSize is how many members are inspected per destination.
const ParticipantSampleSize = 50

const probeKindParticipants = "participants"

// Detector quarantines destinations that contain bots or cannot be inspected.
type Detector struct {
	sampler    ports.ParticipantSampler
	quarantine *ledger.Quarantine
	limiter    *rate.Limiter
	logger     *zerolog.Logger
}

func NewDetector(sampler ports.ParticipantSampler, quarantine *ledger.Quarantine, limiter *rate.Limiter, logger *zerolog.Logger) *Detector {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &Detector{
		sampler:    sampler,
		quarantine: quarantine,
		limiter:    limiter,
		logger:     logger,
	}
}

// Detect re-evaluates every id from scratch. A clean sample lifts an existing
// quarantine; any probe failure quarantines.
func (d *Detector) Detect(ctx context.Context, ids []int64) {
	var quarantined int

	for _, id := range ids {
		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("bot detection interrupted")

			break
		}

		if d.inspect(ctx, id) {
			d.quarantine.Add(id)
			quarantined++
		} else {
			d.quarantine.Remove(id)
		}
	}

	observability.QuarantineSize.Set(float64(d.quarantine.Len()))
	d.logger.Info().Int(logFieldCount, len(ids)).Int("quarantined", quarantined).Msg("bot detection finished")
}

// inspect reports whether id must be quarantined.
func (d *Detector) inspect(ctx context.Context, id int64) bool {
	participants, err := d.sampler.SampleParticipants(ctx, id, ParticipantSampleSize)
	if err != nil {
		observability.DiscoveryProbes.WithLabelValues(probeKindParticipants, probeStatusError).Inc()

		if isAccessError(err) {
			d.logger.Debug().Err(err).Int64(logFieldChatID, id).Msg("destination not inspectable, quarantining")
		} else {
			d.logger.Warn().Err(err).Int64(logFieldChatID, id).Msg("participant probe failed, quarantining")
		}

		return true
	}

	observability.DiscoveryProbes.WithLabelValues(probeKindParticipants, probeStatusOK).Inc()

	if lo.SomeBy(participants, func(p domain.Participant) bool { return p.IsBot }) {
		d.logger.Debug().Int64(logFieldChatID, id).Msg("bots present, quarantining")

		return true
	}

	return false
}

func isAccessError(err error) bool {
	return errors.Is(err, errors.ErrForbidden) ||
		errors.Is(err, errors.ErrNotParticipant) ||
		errors.Is(err, errors.ErrPrivateChannel) ||
		errors.Is(err, errors.ErrBotIncompatible)
}

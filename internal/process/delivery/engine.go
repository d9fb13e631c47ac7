// Package delivery sends one confirmed message to every eligible destination.
package delivery

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-relay-bot/internal/process/ledger"
)

const (
	DefaultForwardDelay  = 30 * time.Second
	DefaultRateLimitWait = 10 * time.Second
)

const (
	logFieldCycleID   = "cycle_id"
	logFieldChatID    = "chat_id"
	logFieldMessageID = "message_id"
	logFieldClass     = "class"
	logFieldWait      = "wait"
	logFieldTargets   = "targets"
	logFieldSucceeded = "succeeded"
	logFieldFailed    = "failed"
	logFieldAttempted = "attempted"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds pacing parameters.
type Config struct {
	// ForwardDelay is the pause after each successful delivery.
	ForwardDelay time.Duration
	// RateLimitWait is the extra pause after a rate-limit error that carries no wait hint.
	RateLimitWait time.Duration
}

type Engine struct {
	sender     ports.MessageSender
	quarantine *ledger.Quarantine
	cfg        Config
	sleep      SleepFunc
	logger     *zerolog.Logger
}

type Option func(*Engine)

// WithSleep replaces the real sleep, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = fn
	}
}

func New(sender ports.MessageSender, quarantine *ledger.Quarantine, cfg Config, logger *zerolog.Logger, opts ...Option) *Engine {
	if cfg.ForwardDelay < 0 {
		cfg.ForwardDelay = 0
	}

	if cfg.RateLimitWait <= 0 {
		cfg.RateLimitWait = DefaultRateLimitWait
	}

	e := &Engine{
		sender:     sender,
		quarantine: quarantine,
		cfg:        cfg,
		sleep:      worker.Wait,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Deliver runs one delivery cycle. Each destination is attempted at most once,
// in list order. Per-destination errors never escape; a canceled context stops
// the cycle and the partial report is returned. Deliver does not deduplicate
// messages.
func (e *Engine) Deliver(ctx context.Context, msg domain.Message, ids []int64) domain.Report {
	started := time.Now()
	report := domain.Report{CycleID: uuid.New(), MessageID: msg.ID}
	log := e.logger.With().Str(logFieldCycleID, report.CycleID.String()).Int64(logFieldMessageID, msg.ID).Logger()

	targets := e.quarantine.Exclude(ids)
	if len(targets) == 0 && len(ids) > 0 {
		log.Warn().Int(logFieldTargets, len(ids)).Msg("every destination is quarantined, attempting all of them")

		targets = slices.Clone(ids)
		report.Forced = true
	}

	if len(targets) == 0 {
		report.NoDestinations = true

		observability.Cycles.WithLabelValues(observability.CycleNoDestinations).Inc()
		log.Warn().Msg("no destinations configured")

		return report
	}

	log.Info().Int(logFieldTargets, len(targets)).Msg("delivery cycle started")

	canceled := false

	for i, id := range targets {
		if ctx.Err() != nil {
			canceled = true

			break
		}

		report.Attempted++

		err := e.send(ctx, msg, id)
		if err == nil {
			report.Succeeded++

			observability.Deliveries.WithLabelValues(observability.StatusSuccess).Inc()
			log.Info().Int64(logFieldChatID, id).Msg("delivered")

			if i < len(targets)-1 && e.sleep(ctx, e.cfg.ForwardDelay) != nil {
				canceled = true

				break
			}

			continue
		}

		report.Failed++

		class := Classify(err)

		observability.Deliveries.WithLabelValues(observability.StatusFailed).Inc()
		observability.DeliveryErrors.WithLabelValues(string(class)).Inc()

		switch {
		case class == ClassCanceled:
			canceled = true
		case class == ClassRateLimit:
			wait := e.cfg.RateLimitWait

			var rl *errors.RateLimitError
			if errors.As(err, &rl) && rl.Wait > 0 {
				wait = rl.Wait
			}

			log.Warn().Err(err).Int64(logFieldChatID, id).Dur(logFieldWait, wait).Msg("rate limited, pausing")

			if e.sleep(ctx, wait) != nil {
				canceled = true
			}
		case class.Quarantines():
			e.quarantine.Add(id)
			log.Warn().Err(err).Int64(logFieldChatID, id).Str(logFieldClass, string(class)).Msg("destination quarantined")
		default:
			log.Error().Err(err).Int64(logFieldChatID, id).Msg("delivery failed")
		}

		if canceled {
			break
		}
	}

	observability.QuarantineSize.Set(float64(e.quarantine.Len()))
	observability.CycleDurationSeconds.Observe(time.Since(started).Seconds())
	observability.Cycles.WithLabelValues(cycleOutcome(report, canceled)).Inc()

	log.Info().
		Int(logFieldSucceeded, report.Succeeded).
		Int(logFieldFailed, report.Failed).
		Int(logFieldAttempted, report.Attempted).
		Bool("forced", report.Forced).
		Bool("canceled", canceled).
		Msg("delivery cycle finished")

	return report
}

func (e *Engine) send(ctx context.Context, msg domain.Message, chatID int64) error {
	if msg.Media == nil {
		return e.sender.SendText(ctx, chatID, msg.Text)
	}

	caption := ""
	if msg.Media.SupportsCaption() {
		caption = msg.Text
	}

	return e.sender.SendMedia(ctx, chatID, *msg.Media, caption)
}

func cycleOutcome(report domain.Report, canceled bool) string {
	switch {
	case canceled:
		return observability.CycleCanceled
	case report.Forced:
		return observability.CycleForced
	default:
		return observability.CycleDelivered
	}
}

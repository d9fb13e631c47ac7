package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-relay-bot/internal/bot"
	"github.com/lueurxax/telegram-relay-bot/internal/conversation"
	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/core/ports"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/config"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-relay-bot/internal/process/delivery"
	"github.com/lueurxax/telegram-relay-bot/internal/process/discovery"
	"github.com/lueurxax/telegram-relay-bot/internal/process/ledger"
)

const (
	logFieldMessageID = "message_id"
	logFieldSenderID  = "sender_id"
	logFieldUserID    = "user_id"
)

// Runtime is the process-wide state shared by the bot and relay sessions.
// It implements bot.Backend.
type Runtime struct {
	cfg        *config.Config
	quarantine *ledger.Quarantine
	processed  *ledger.Processed
	machine    *conversation.Machine
	requesters *requesterQueue
	engineOpts []delivery.Option
	logger     *zerolog.Logger

	mu         sync.RWMutex
	client     ports.ChatClient
	discoverer *discovery.Discoverer
	engine     *delivery.Engine
	notifier   ports.Notifier
	botID      int64

	adminOnce sync.Once
	adminID   int64

	// cycleMu keeps delivery cycles strictly one at a time.
	cycleMu    sync.Mutex
	finished   chan struct{}
	finishOnce sync.Once
}

type RuntimeOption func(*Runtime)

// WithEngineOptions passes options to the delivery engine built on AttachRelay.
func WithEngineOptions(opts ...delivery.Option) RuntimeOption {
	return func(r *Runtime) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// NewRuntime builds the ledgers and the conversation machine. Until a relay
// session is attached, destinations come from the manual list.
func NewRuntime(cfg *config.Config, logger *zerolog.Logger, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		cfg:        cfg,
		quarantine: ledger.NewQuarantine(),
		processed:  ledger.NewProcessed(ledger.DefaultProcessedCapacity),
		machine:    conversation.NewMachine(),
		requesters: &requesterQueue{},
		logger:     logger,
		finished:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.discoverer = discovery.New(r.discoveryConfig(), nil, nil, nil, logger)

	return r
}

func (r *Runtime) Machine() *conversation.Machine {
	return r.machine
}

// Finished is closed after the one-shot delivery cycle.
func (r *Runtime) Finished() <-chan struct{} {
	return r.finished
}

// AttachBot registers the bot account that forwards messages to the relay.
func (r *Runtime) AttachBot(notifier ports.Notifier, botID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifier = notifier
	r.botID = botID
}

// AttachRelay switches discovery and delivery to the relay session and
// initializes the destination set.
func (r *Runtime) AttachRelay(ctx context.Context, client ports.ChatClient) {
	dcfg := r.cfg.DiscoveryCfg()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if dcfg.ProbeRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(dcfg.ProbeRPS), 1)
	}

	var detector *discovery.Detector
	if dcfg.AutoDetect {
		detector = discovery.NewDetector(client, r.quarantine, limiter, r.logger)
	}

	discoverer := discovery.New(r.discoveryConfig(), client, detector, limiter, r.logger)
	engine := delivery.New(client, r.quarantine, delivery.Config(r.cfg.DeliveryCfg()), r.logger, r.engineOpts...)

	r.mu.Lock()
	r.client = client
	r.discoverer = discoverer
	r.engine = engine
	r.mu.Unlock()

	discoverer.Refresh(ctx)
}

func (r *Runtime) discoveryConfig() discovery.Config {
	dcfg := r.cfg.DiscoveryCfg()

	return discovery.Config{
		Auto:       dcfg.Auto,
		ManualIDs:  dcfg.ManualIDs,
		Filter:     r.cfg.FilterCfg(),
		AutoDetect: dcfg.AutoDetect,
	}
}

func (r *Runtime) snapshot() (ports.ChatClient, *discovery.Discoverer, *delivery.Engine, ports.Notifier, int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.client, r.discoverer, r.engine, r.notifier, r.botID
}

// HandleForward runs one delivery cycle for a message the bot forwarded to
// the relay account. Anything else, and any message already processed, is
// ignored.
func (r *Runtime) HandleForward(ctx context.Context, msg domain.Message) error {
	_, discoverer, engine, notifier, botID := r.snapshot()

	// Bot API forwards name the original user in the header, so the sender is checked instead.
	if !msg.Forwarded || botID == 0 || msg.SenderID != botID {
		r.logger.Debug().Int64(logFieldMessageID, msg.ID).Int64(logFieldSenderID, msg.SenderID).Msg("ignoring message not forwarded by the bot")

		return nil
	}

	if engine == nil {
		return errors.ErrRelayUnavailable
	}

	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	if r.processed.Contains(msg.ID) {
		observability.Cycles.WithLabelValues(observability.CycleDuplicate).Inc()
		r.logger.Info().Int64(logFieldMessageID, msg.ID).Msg("message already processed, skipping")

		return nil
	}

	report := engine.Deliver(ctx, msg, discoverer.Destinations())
	r.notifyReport(ctx, notifier, FormatReport(report))

	// Nothing was sent: the message stays retryable and the session stays up
	// so the admin can refresh destinations.
	if report.NoDestinations {
		return nil
	}

	r.processed.Add(msg.ID)

	if r.cfg.OneShot {
		r.finishOnce.Do(func() { close(r.finished) })
	}

	return nil
}

func (r *Runtime) notifyReport(ctx context.Context, notifier ports.Notifier, text string) {
	if notifier == nil {
		return
	}

	req, ok := r.requesters.pop()
	if ok {
		if err := notifier.NotifyUser(ctx, req.UserID, req.StatusMsgID, text); err != nil {
			r.logger.Error().Err(err).Int64(logFieldUserID, req.UserID).Msg("failed to send report to requester")
		}
	}

	adminID := r.AdminID(ctx)
	if adminID == 0 || (ok && req.UserID == adminID) {
		return
	}

	if err := notifier.NotifyAdmin(ctx, text); err != nil {
		r.logger.Error().Err(err).Msg("failed to send report to admin")
	}
}

// RelayIdentity returns the relay account when its session is attached.
func (r *Runtime) RelayIdentity(ctx context.Context) (domain.Identity, bool) {
	client, _, _, _, _ := r.snapshot()
	if client == nil {
		return domain.Identity{}, false
	}

	self, err := client.Self(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read relay identity")

		return domain.Identity{}, false
	}

	return self, true
}

// AdminID is the relay account itself, else the first authorized user, else
// 0. The first call fixes the value.
func (r *Runtime) AdminID(ctx context.Context) int64 {
	r.adminOnce.Do(func() {
		if self, ok := r.RelayIdentity(ctx); ok && self.ID != 0 {
			r.adminID = self.ID

			return
		}

		if len(r.cfg.AuthorizedUsers) > 0 {
			r.adminID = r.cfg.AuthorizedUsers[0]
		}
	})

	return r.adminID
}

func (r *Runtime) Enqueue(req bot.Requester) {
	r.requesters.push(req)
}

func (r *Runtime) Withdraw(userID int64) {
	r.requesters.withdraw(userID)
}

func (r *Runtime) Status(ctx context.Context) bot.Status {
	self, connected := r.RelayIdentity(ctx)
	_, discoverer, _, _, _ := r.snapshot()

	return bot.Status{
		RelayConnected: connected,
		RelayUsername:  self.Username,
		Destinations:   len(discoverer.Destinations()),
		Quarantined:    r.quarantine.Len(),
		Processed:      r.processed.Len(),
		OneShot:        r.cfg.OneShot,
	}
}

func (r *Runtime) Groups(limit int) ([]domain.ChatInfo, int) {
	_, discoverer, _, _, _ := r.snapshot()

	return discoverer.Summary(limit)
}

func (r *Runtime) RefreshDestinations(ctx context.Context) (int, error) {
	client, discoverer, _, _, _ := r.snapshot()
	if client == nil {
		return 0, errors.ErrRelayUnavailable
	}

	return len(discoverer.Refresh(ctx)), nil
}

func (r *Runtime) ClearQuarantine() int {
	n := r.quarantine.Clear()
	observability.QuarantineSize.Set(0)

	return n
}

func (r *Runtime) ClearProcessed() int {
	return r.processed.Clear()
}

// Package relay runs the relay account: an MTProto user session that posts
// relayed content to destinations and watches for messages forwarded to it by
// the bot.
package relay

import (
	"context"
	"fmt"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay-bot/internal/core/domain"
	"github.com/lueurxax/telegram-relay-bot/internal/core/errors"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/config"
)

// Source names where the relay credentials come from.
type Source string

const (
	SourceString Source = "string_session"
	SourceFile   Source = "file_session"
)

const incomingBuffer = 16

const (
	logFieldSource    = "source"
	logFieldMessageID = "message_id"
	logFieldSenderID  = "sender_id"
)

// ForwardHandler receives every incoming message in a private chat.
type ForwardHandler func(ctx context.Context, msg domain.Message) error

type Session struct {
	cfg     config.TelegramMTProtoConfig
	source  Source
	handler ForwardHandler
	logger  *zerolog.Logger

	client   *telegram.Client
	api      *tg.Client
	peers    *peerCache
	self     domain.Identity
	incoming chan domain.Message
	ready    chan struct{}
	done     chan error
}

// Connect brings up the relay session, trying the string session first and
// then the local file session. Hosted deployments never use the file session.
func Connect(ctx context.Context, cfg config.TelegramMTProtoConfig, handler ForwardHandler, logger *zerolog.Logger) (*Session, error) {
	sources := Sources(cfg)
	if len(sources) == 0 {
		return nil, errors.ErrNoCredentials
	}

	var failures []error

	for _, src := range sources {
		s, err := newSession(ctx, cfg, src, handler, logger)
		if err == nil {
			err = s.start(ctx)
		}

		if err != nil {
			logger.Warn().Err(err).Str(logFieldSource, string(src)).Msg("relay session failed to start")
			failures = append(failures, err)

			continue
		}

		logger.Info().Str(logFieldSource, string(src)).Int64("user_id", s.self.ID).Str("username", s.self.Username).Msg("relay session ready")

		return s, nil
	}

	return nil, fmt.Errorf("%w: %w", errors.ErrRelayUnavailable, errors.Join(failures...))
}

// Sources lists the credential sources Connect tries, in order.
func Sources(cfg config.TelegramMTProtoConfig) []Source {
	var out []Source

	if cfg.SessionString != "" {
		out = append(out, SourceString)
	}

	if !cfg.Hosted {
		out = append(out, SourceFile)
	}

	return out
}

func newSession(ctx context.Context, cfg config.TelegramMTProtoConfig, src Source, handler ForwardHandler, logger *zerolog.Logger) (*Session, error) {
	if handler == nil {
		handler = func(context.Context, domain.Message) error { return nil }
	}

	s := &Session{
		cfg:      cfg,
		source:   src,
		handler:  handler,
		logger:   logger,
		peers:    newPeerCache(),
		incoming: make(chan domain.Message, incomingBuffer),
		ready:    make(chan struct{}),
		done:     make(chan error, 1),
	}

	storage, err := s.storage(ctx)
	if err != nil {
		return nil, err
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(s.onNewMessage)

	s.client = telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: storage,
		UpdateHandler:  dispatcher,
	})

	return s, nil
}

func (s *Session) storage(ctx context.Context) (telegram.SessionStorage, error) {
	if s.source == SourceFile {
		return &telegram.FileSessionStorage{Path: s.cfg.SessionPath}, nil
	}

	data, err := session.TelethonSession(s.cfg.SessionString)
	if err != nil {
		return nil, fmt.Errorf("decoding session string: %w", err)
	}

	storage := new(session.StorageMemory)

	loader := session.Loader{Storage: storage}
	if err := loader.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("loading session string: %w", err)
	}

	return storage, nil
}

// start runs the client in the background and returns once the account is
// authorized and its chats are cached.
func (s *Session) start(ctx context.Context) error {
	go func() {
		s.done <- s.client.Run(ctx, s.run)
	}()

	select {
	case <-s.ready:
		return nil
	case err := <-s.done:
		if err == nil {
			err = errors.ErrRelayUnavailable
		}

		return fmt.Errorf("relay %s: %w", s.source, err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the session stops. Cancellation is not an error.
func (s *Session) Wait() error {
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (s *Session) run(ctx context.Context) error {
	if err := s.authorize(ctx); err != nil {
		return err
	}

	self, err := s.client.Self(ctx)
	if err != nil {
		return fmt.Errorf("fetching relay identity: %w", err)
	}

	s.api = s.client.API()
	s.self = domain.Identity{ID: self.ID, Username: self.Username}
	s.peers.putUser(self)

	if _, err := s.ListChats(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to warm chat cache")
	}

	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.incoming:
			if err := s.handler(ctx, msg); err != nil {
				s.logger.Error().Err(err).Int64(logFieldMessageID, msg.ID).Msg("failed to handle incoming message")
			}
		}
	}
}

func (s *Session) authorize(ctx context.Context) error {
	if s.source == SourceFile {
		if err := s.client.Auth().IfNecessary(ctx, s.authFlow()); err != nil {
			return fmt.Errorf("authenticating relay account: %w", err)
		}

		s.logger.Info().Msg("Successfully authenticated as user")

		return nil
	}

	status, err := s.client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("checking session string: %w", err)
	}

	if !status.Authorized {
		return fmt.Errorf("session string: %w", errors.ErrNoCredentials)
	}

	return nil
}

// Package app wires the bot session, the relay session and the delivery core
// into one process and runs them until interrupted or, in one-shot mode,
// until the first delivery cycle completes.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/telegram-relay-bot/internal/bot"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/config"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-relay-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-relay-bot/internal/relay"
)

const errBotInit = "bot initialization failed: %w"

// App holds the application dependencies.
type App struct {
	cfg     *config.Config
	runtime *Runtime
	logger  *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	return &App{
		cfg:     cfg,
		runtime: NewRuntime(cfg, logger),
		logger:  logger,
	}
}

// Run starts the bot session, then the relay session, and blocks. It returns
// nil on interrupt and after the one-shot cycle.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := bot.New(a.cfg.TelegramBotCfg(), bot.Deps{
		Machine: a.runtime.Machine(),
		Backend: a.runtime,
		Access:  a.cfg.AccessCfg(),
	}, a.logger)
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	a.runtime.AttachBot(b, b.Identity().ID)
	a.logger.Info().Int64("bot_id", b.Identity().ID).Str("username", b.Identity().Username).Msg("Bot session ready")

	session, err := relay.Connect(ctx, a.cfg.TelegramMTProtoCfg(), a.runtime.HandleForward, a.logger)
	if err != nil {
		if !a.cfg.FallbackToBotOnly {
			return fmt.Errorf("relay session: %w", err)
		}

		a.logger.Warn().Err(err).Msg("Relay session unavailable, running in bot-only mode")
	} else {
		a.runtime.AttachRelay(ctx, session)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(b.Run(gctx))
	})

	if session != nil {
		g.Go(func() error {
			if err := session.Wait(); err != nil {
				return fmt.Errorf("relay session: %w", err)
			}

			return nil
		})
	}

	if interval := a.cfg.DiscoveryCfg().RefreshInterval; session != nil && !a.cfg.OneShot && interval > 0 {
		g.Go(func() error {
			return ignoreCanceled(worker.TickerLoop(gctx, worker.TickerConfig{
				Name:     "destinations-refresh",
				Interval: interval,
				OnTick: func(ctx context.Context) {
					if _, err := a.runtime.RefreshDestinations(ctx); err != nil {
						a.logger.Warn().Err(err).Msg("periodic destination refresh failed")
					}
				},
				Logger: a.logger,
			}))
		})
	}

	if a.cfg.HealthPort > 0 {
		srv := observability.NewServer(a.cfg.HealthPort, b.Ready, a.logger)

		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	g.Go(func() error {
		select {
		case <-a.runtime.Finished():
			a.logger.Info().Msg("Delivery cycle finished, shutting down")
			cancel()
		case <-gctx.Done():
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

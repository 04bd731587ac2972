package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/fanout"
	"github.com/vovakirdan/wirechat-presence/internal/fanout/natsbus"
	"github.com/vovakirdan/wirechat-presence/internal/fanout/redisbus"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
	"github.com/vovakirdan/wirechat-presence/internal/presence"
	"github.com/vovakirdan/wirechat-presence/internal/presence/redisstore"
	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-presence/internal/transport/http"
)

const subscribeRetryWait = 2 * time.Second

// App wires together core and transport layers.
type App struct {
	server          *transporthttp.Server
	shutdownTimeout time.Duration
	channel         string
	hub             *core.Hub
	directory       store.UserStore
	presence        presence.Store
	bus             fanout.Bus
	metrics         *metrics.Metrics
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	directory, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init directory: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("user directory initialized")

	ps := redisstore.New(newRedisClient(cfg), cfg.Presence.Key)
	if cfg.Presence.ResetOnStart {
		if err := ps.Reset(ctx); err != nil {
			logger.Warn().Err(err).Str("key", cfg.Presence.Key).Msg("presence reset failed")
		} else {
			logger.Info().Str("key", cfg.Presence.Key).Msg("presence store reset")
		}
	}

	bus, err := newBus(cfg)
	if err != nil {
		_ = ps.Close()
		_ = directory.Close()
		return nil, fmt.Errorf("init bus: %w", err)
	}
	logger.Info().Str("driver", cfg.Bus.Driver).Str("channel", cfg.Bus.Channel).Msg("fanout bus initialized")

	authService := auth.NewService(directory, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	m := metrics.New()
	hub := core.NewHub(logger, m)
	server := transporthttp.NewServer(cfg, transporthttp.Deps{
		Hub:     hub,
		Tracker: core.NewTracker(ps, fanout.NewPublisher(bus, cfg.Bus.Channel), logger, m),
		Query:   core.NewQuery(ps, directory, logger),
		Auth:    authService,
		Metrics: m,
	}, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		channel:         cfg.Bus.Channel,
		hub:             hub,
		directory:       directory,
		presence:        ps,
		bus:             bus,
		metrics:         m,
		log:             logger,
	}, nil
}

// The presence store and the redis bus use separate clients: a subscribed
// connection cannot issue list commands.
func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newBus(cfg *config.Config) (fanout.Bus, error) {
	switch cfg.Bus.Driver {
	case config.BusDriverNATS:
		return natsbus.Connect(cfg.Bus.NATSURL, "wirechat-presence-"+cfg.ServerID)
	case config.BusDriverRedis:
		return redisbus.New(newRedisClient(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Bus.Driver)
	}
}

// Run subscribes the hub to the bus, then starts the HTTP server and blocks
// until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	if err := a.subscribe(ctx); err != nil {
		// cancelled before the bus came up
		a.cleanup()
		return nil
	}

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// subscribe attaches the hub to the bus, retrying until the bus is reachable.
// Sockets are not accepted before this succeeds, so every session sees its
// own users.connection. It returns ctx.Err() if ctx ends first.
func (a *App) subscribe(ctx context.Context) error {
	for {
		err := a.bus.Subscribe(ctx, a.channel, a.hub.HandleFanout)
		if err == nil {
			a.log.Info().Str("channel", a.channel).Msg("subscribed to fanout channel")
			return nil
		}
		a.metrics.BusError("subscribe")
		a.log.Warn().Err(err).Str("channel", a.channel).Msg("fanout subscribe failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(subscribeRetryWait):
		}
	}
}

// cleanup closes the bus, the presence store and the directory.
func (a *App) cleanup() {
	closers := []struct {
		name  string
		close func() error
	}{
		{"bus", a.bus.Close},
		{"presence store", a.presence.Close},
		{"user directory", a.directory.Close},
	}
	for _, c := range closers {
		if err := c.close(); err != nil {
			a.log.Warn().Err(err).Msgf("failed to close %s", c.name)
		} else {
			a.log.Info().Msgf("%s closed", c.name)
		}
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-presence/internal/app"
	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	logpkg "github.com/vovakirdan/wirechat-presence/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "wirechat-presence",
		Short:        "Distributed presence and fanout server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./config.yaml)")

	serve := newServeCmd(&configPath)
	root.AddCommand(serve, newTokenCmd(&configPath))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)
			if cfg.ServerID == "" {
				cfg.ServerID = uuid.NewString()
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logpkg.New(cfg.LogLevel, cfg.ServerID)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, &cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to initialize application")
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Str("bus", cfg.Bus.Driver).Msg("starting wirechat presence server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&overrides.ServerID, "server-id", "", "process identifier used in logs (default random)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&overrides.Redis.Addr, "redis-addr", "", "redis address for the presence store and redis bus")
	flags.StringVar(&overrides.Bus.Driver, "bus-driver", "", "fanout bus driver: redis or nats")
	flags.StringVar(&overrides.Bus.NATSURL, "nats-url", "", "NATS server URL when --bus-driver=nats")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	return cmd
}

func newTokenCmd(configPath *string) *cobra.Command {
	var id auth.Identity

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed session token for an identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(&auth.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				TTL:      cfg.JWTTTL,
			}, id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&id.Email, "email", "", "identity email")
	flags.StringVar(&id.Firstname, "firstname", "", "identity first name")
	flags.StringVar(&id.Lastname, "lastname", "", "identity last name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func loadConfig(path string) (config.Config, error) {
	bootstrap := logpkg.New("info", "")
	cfg, resolved, err := config.Load(bootstrap, path)
	if err != nil {
		bootstrap.Error().Err(err).Str("path", resolved).Msg("failed to load config")
		return cfg, err
	}
	bootstrap.Debug().Str("path", resolved).Msg("config loaded")
	return cfg, nil
}

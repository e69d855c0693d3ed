package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wiredm-server/internal/app"
	"github.com/vovakirdan/wiredm-server/internal/auth"
	"github.com/vovakirdan/wiredm-server/internal/config"
	"github.com/vovakirdan/wiredm-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	overrides  config.Config
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "server",
		Short:        "Direct-messaging server with realtime delivery",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file (default config.yaml or $WIREDM_CONFIG_DEFAULT_PATH)")
	pf.StringVar(&flags.overrides.Addr, "addr", "", "HTTP listen address")
	pf.DurationVar(&flags.overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	pf.DurationVar(&flags.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	pf.DurationVar(&flags.overrides.HandshakeTimeout, "handshake-timeout", 0, "time allowed to present a credential on /ws")
	pf.StringVar(&flags.overrides.Log.Level, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.overrides.Storage.Driver, "storage-driver", "", "message store driver (sqlite or memory)")
	pf.StringVar(&flags.overrides.Storage.Path, "db", "", "sqlite database path")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and WebSocket server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), flags)
			},
		},
		newTokenCmd(flags),
	)

	return root
}

// loadConfig resolves configuration and builds the process logger.
func loadConfig(flags *rootFlags) (config.Config, *zerolog.Logger, error) {
	bootLogger := log.New("info", "console")

	cfg, path, err := config.Load(bootLogger, flags.configPath)
	if err != nil {
		return cfg, bootLogger, fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(flags.overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, bootLogger, err
	}

	logger := log.New(cfg.Log.Level, cfg.Log.Format)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func runServe(parent context.Context, flags *rootFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting wiredm server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var subject, name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}

			token, err := auth.GenerateToken(app.JWTConfig(&cfg), subject, name)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "user id to embed as the token subject")
	cmd.Flags().StringVar(&name, "name", "", "optional display name claim")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}

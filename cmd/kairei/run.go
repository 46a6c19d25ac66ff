package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kairei-run/kairei/internal/api"
	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/system"
)

// newRunCmd boots a full system.System plus its HTTP/websocket façade
// and blocks until a termination signal arrives. Grounded on
// cmd/thane/main.go's runServe: load config, build the logger from
// cfg.LogLevel, wire components in order, install a signal-driven
// graceful shutdown, then block on the server.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "start a kairei system and its API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem(cmd.Context())
		},
	}
}

func runSystem(ctx context.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	var secrets config.SecretConfig
	if secretsPath != "" {
		s, err := config.LoadSecrets(secretsPath)
		if err != nil {
			return fmt.Errorf("load secrets: %w", err)
		}
		secrets = *s
	}

	logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port)

	sys := system.New(logger, *cfg)

	nfCtx, cancelNF := context.WithCancel(ctx)
	defer cancelNF()
	if err := sys.RegisterNativeFeatures(nfCtx); err != nil {
		return fmt.Errorf("register native features: %w", err)
	}
	if err := sys.RegisterProviders(secrets); err != nil {
		return fmt.Errorf("register providers: %w", err)
	}
	sys.RegisterWorld()
	sys.RegisterBuiltinAgents()
	sys.RegisterUserAgents(nil)
	sys.Start()

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, sys, logger)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
		_ = sys.Shutdown(context.Background(), cfg.ShutdownTimeout.Duration)
	}()

	if err := server.Start(sigCtx); err != nil && sigCtx.Err() == nil {
		return fmt.Errorf("api server: %w", err)
	}

	logger.Info("kairei stopped")
	return nil
}

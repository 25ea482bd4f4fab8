package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/intrinsic/internal/api"
	"github.com/newthinker/intrinsic/internal/app"
	"github.com/newthinker/intrinsic/internal/logger"
	"github.com/newthinker/intrinsic/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.Must(debug || cfg.Log.Development)
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults and environment")
	}
	if !cfg.Auth.Enabled() {
		log.Warn("debug mode without credentials: /stock routes are open")
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}
	defer a.Close()

	log.Info("starting intrinsic server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("auth", cfg.Auth.Enabled()),
		zap.Bool("archive", cfg.Archive.Enabled),
	)

	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		JWTSecret:   cfg.Auth.JWTSecret,
		APIKey:      cfg.Auth.APIKey,
		MetricsPath: cfg.Metrics.Path,
	}, api.Dependencies{App: a, Metrics: reg}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down intrinsic server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/blackout/api"
	"github.com/kilianp07/blackout/app"
	"github.com/kilianp07/blackout/config"
	coremon "github.com/kilianp07/blackout/core/monitoring"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "blackout",
	Short: "Grid cascade simulation and crew dispatch service",
	RunE:  serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation and dispatch API",
	RunE:  serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("main")
	if cfg.Sentry.DSN != "" {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		coremon.Init(mon)
		defer coremon.Flush(2 * time.Second)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	var opts []api.Option
	if cfg.Logging.JournalEnabled() {
		opts = append(opts, api.WithLogs(cfg.HTTP.LogToken))
	}
	if cfg.Metrics.PrometheusEnabled() && cfg.Metrics.PrometheusPort == "" {
		opts = append(opts, api.WithMetrics())
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.NewRouter(svc, opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	coremon.Go(func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
			stop()
		}
	})

	runErr := svc.Run(ctx)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	return runErr
}

// loadOffline loads the configuration for the offline commands, which run
// on defaults when no configuration file exists.
func loadOffline() (*config.Config, error) {
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/activity-collector/internal/collector"
	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/push"
	"github.com/activity-collector/internal/scheduler"
	"github.com/activity-collector/internal/service"
	"github.com/activity-collector/internal/source/builtin"
	"github.com/activity-collector/pkg/logger"
	"github.com/activity-collector/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "activity-collector-scheduler",
		Short: "Background scheduler for the activity collector",
		Long: `Validates the configured sources and collects each one on its schedule
until it receives SIGINT or SIGTERM. Run it as a user service.`,
		RunE:         runScheduler,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	pidFile, err := service.Acquire(cfg.Service.PIDFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to release pid file")
		}
	}()

	log.Info().Int("pid", os.Getpid()).Str("pid_file", pidFile.Path()).Msg("Starting activity collector scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := collector.NewMetrics(registry)

	// Push client
	limiter := ratelimit.NewDefaultLimiter(cfg.API.RateLimitPerMinute)
	client := push.NewClient(cfg.API, limiter, log)
	client.SetRetryObserver(func(attempt int, err error, delay time.Duration) {
		metrics.ObserveRetry()
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", cfg.API.Retry.Attempts).
			Dur("retry_in", delay).
			Msg("Push failed, retrying")
	})

	// Cycles outlive the signal context so a running one can finish.
	sched := scheduler.New(context.Background(), log)
	c := collector.New(builtin.NewRegistry(), cfg.Sources, client, sched, metrics, log)

	if _, err := c.ValidateSources(ctx); err != nil {
		return err
	}

	var server *http.Server
	if cfg.Service.HealthAddr != "" {
		server = startHealthServer(cfg.Service.HealthAddr, registry, c)
	}

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down scheduler")

	// No new cycles start; a running one is given a grace period.
	select {
	case <-c.Stop().Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Collection still running after grace period, exiting")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Health server shutdown failed")
		}
	}

	return nil
}

// startHealthServer serves /health and /metrics on addr
func startHealthServer(addr string, registry *prometheus.Registry, c *collector.Collector) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK %d sources\n", len(c.Sources()))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health server failed")
		}
	}()

	return server
}

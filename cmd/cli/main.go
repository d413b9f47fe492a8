package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/activity-collector/internal/collector"
	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
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
		Use:   "activity-collector",
		Short: "Collects local activity and sends it to the ingestion API",
		Long: `Reads recent git commits, browser history, file changes and AI chat
sessions from this machine and pushes them to the ingestion API.`,
		PersistentPreRunE: initializeApp,
		SilenceUsage:      true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(stopCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	return nil
}

// onlySource returns sources with every type but t disabled and t enabled
func onlySource(sources config.SourcesConfig, t models.SourceType) config.SourcesConfig {
	sources.Git.Enabled = t == models.SourceTypeGit
	sources.Browser.Enabled = t == models.SourceTypeBrowser
	sources.Filesystem.Enabled = t == models.SourceTypeFilesystem
	sources.Chatbot.Enabled = t == models.SourceTypeChatbot
	return sources
}

func newCollector(sources config.SourcesConfig) *collector.Collector {
	limiter := ratelimit.NewDefaultLimiter(cfg.API.RateLimitPerMinute)
	client := push.NewClient(cfg.API, limiter, log)
	return collector.New(builtin.NewRegistry(), sources, client, nil, nil, log)
}

// ============ COLLECT ============

func collectCmd() *cobra.Command {
	var (
		sourceName string
		dryRun     bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect every enabled source once and push the results",
		Example: `  activity-collector collect
  activity-collector collect --source git --dry-run --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if !dryRun {
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid config: %w", err)
				}
			}

			sources := cfg.Sources
			if sourceName != "" {
				t, err := models.ParseSourceType(sourceName)
				if err != nil {
					return err
				}
				sources = onlySource(sources, t)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := newCollector(sources)
			c.SetDryRun(dryRun)

			if _, err := c.ValidateSources(ctx); err != nil {
				return err
			}

			reports, runErr := c.RunAll(ctx)
			if err := renderReports(cmd.OutOrStdout(), format, reports); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "Collect this source only (git, browser, filesystem, chatbot)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Collect without pushing")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table, json, yaml)")
	return cmd
}

// ============ VALIDATE ============

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and every enabled source",
		RunE: func(cmd *cobra.Command, args []string) error {
			configErr := cfg.Validate()

			c := newCollector(cfg.Sources)
			validated, err := c.ValidateSources(cmd.Context())

			ok := make(map[models.SourceType]bool, len(validated))
			for _, t := range validated {
				ok[t] = true
			}

			var rows []sourceStatus
			for _, t := range models.AllSourceTypes {
				settings, _ := cfg.Sources.Settings(t)
				status := sourceStatus{Type: t, Enabled: settings.Enabled, Schedule: settings.Schedule}
				switch {
				case !settings.Enabled:
					status.State = stateDisabled
				case ok[t]:
					status.State = stateReady
				default:
					status.State = stateFailed
				}
				rows = append(rows, status)
			}

			renderValidation(cmd.OutOrStdout(), configErr, rows)

			if configErr != nil {
				return configErr
			}
			return err
		},
	}
}

// ============ SOURCES ============

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List source types with their schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []sourceStatus
			for _, t := range builtin.NewRegistry().Types() {
				settings, _ := cfg.Sources.Settings(t)
				spec, _ := scheduler.CronExpression(settings.Schedule)
				rows = append(rows, sourceStatus{
					Type:     t,
					Enabled:  settings.Enabled,
					Schedule: settings.Schedule,
					Cron:     spec,
				})
			}
			renderSources(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

// ============ HEALTH ============

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the ingestion API",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := push.NewClient(cfg.API, ratelimit.NewDefaultLimiter(cfg.API.RateLimitPerMinute), log)
			healthy := client.HealthCheck(cmd.Context())
			renderHealth(cmd.OutOrStdout(), cfg.API.URL, healthy)
			if !healthy {
				return errors.New("ingestion API is not healthy")
			}
			return nil
		},
	}
}

// ============ STOP ============

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running scheduler service",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, running, err := service.Running(cfg.Service.PIDFile)
			if err != nil {
				return err
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("Service is not running"))
				return nil
			}

			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to signal process %d: %w", pid, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Sent stop signal to service (pid %d)", pid)))
			return nil
		},
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/activity-collector/internal/models"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Sources SourcesConfig `mapstructure:"sources"`
	Service ServiceConfig `mapstructure:"service"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds ingestion endpoint settings
type APIConfig struct {
	URL                string        `mapstructure:"url"`
	Key                string        `mapstructure:"key"`
	Timeout            time.Duration `mapstructure:"timeout"`        // per push attempt
	HealthTimeout      time.Duration `mapstructure:"health_timeout"` // liveness probe
	Retry              RetryConfig   `mapstructure:"retry"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
}

// RetryConfig holds push retry settings
type RetryConfig struct {
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// SourceSettings are the fields shared by every source
type SourceSettings struct {
	Enabled  bool                     `mapstructure:"enabled"`
	Schedule models.ScheduleFrequency `mapstructure:"schedule"`
}

// SourcesConfig holds all source configurations
type SourcesConfig struct {
	Git        GitConfig        `mapstructure:"git"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	Chatbot    ChatbotConfig    `mapstructure:"chatbot"`
}

// GitConfig holds git source settings
type GitConfig struct {
	SourceSettings `mapstructure:",squash"`
	ScanPaths      []string `mapstructure:"scan_paths"`
	ExcludeRepos   []string `mapstructure:"exclude_repos"`
	AuthorEmail    string   `mapstructure:"author_email"` // empty collects every author
	SinceDays      int      `mapstructure:"since_days"`
	MaxDepth       int      `mapstructure:"max_depth"`
}

// BrowserConfig holds browser history settings
type BrowserConfig struct {
	SourceSettings `mapstructure:",squash"`
	Browsers       []string `mapstructure:"browsers"` // chrome, edge, brave, arc, chromium, vivaldi, safari
	SinceDays      int      `mapstructure:"since_days"`
	ExcludeDomains []string `mapstructure:"exclude_domains"`
	MaxItems       int      `mapstructure:"max_items"` // per profile
}

// FilesystemConfig holds filesystem scanner settings
type FilesystemConfig struct {
	SourceSettings  `mapstructure:",squash"`
	WatchPaths      []string `mapstructure:"watch_paths"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
	FileTypes       []string `mapstructure:"file_types"` // empty means every type
	SinceDays       int      `mapstructure:"since_days"`
	MaxFileSize     string   `mapstructure:"max_file_size"` // e.g. "10MB"
	MaxDepth        int      `mapstructure:"max_depth"`
	IncludePreview  bool     `mapstructure:"include_preview"`
}

// ChatbotConfig holds AI chat client settings
type ChatbotConfig struct {
	SourceSettings     `mapstructure:",squash"`
	Client             string   `mapstructure:"client"`
	DBPath             string   `mapstructure:"db_path"` // empty uses the client's default location
	SinceDays          int      `mapstructure:"since_days"`
	IncludeContent     bool     `mapstructure:"include_content"`
	MaxMessagesPerChat int      `mapstructure:"max_messages_per_chat"` // 0 keeps everything
	ExcludeModels      []string `mapstructure:"exclude_models"`
}

// ServiceConfig holds settings for the long-running scheduler
type ServiceConfig struct {
	PIDFile    string `mapstructure:"pid_file"`
	HealthAddr string `mapstructure:"health_addr"` // empty disables /health and /metrics
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or file path
}

// Settings returns the shared settings of a source type
func (s SourcesConfig) Settings(t models.SourceType) (SourceSettings, bool) {
	switch t {
	case models.SourceTypeGit:
		return s.Git.SourceSettings, true
	case models.SourceTypeBrowser:
		return s.Browser.SourceSettings, true
	case models.SourceTypeFilesystem:
		return s.Filesystem.SourceSettings, true
	case models.SourceTypeChatbot:
		return s.Chatbot.SourceSettings, true
	}
	return SourceSettings{}, false
}

// SinceDays returns the lookback of a source type, zero for unknown types
func (s SourcesConfig) SinceDays(t models.SourceType) int {
	switch t {
	case models.SourceTypeGit:
		return s.Git.SinceDays
	case models.SourceTypeBrowser:
		return s.Browser.SinceDays
	case models.SourceTypeFilesystem:
		return s.Filesystem.SinceDays
	case models.SourceTypeChatbot:
		return s.Chatbot.SinceDays
	}
	return 0
}

// MaxFileSizeBytes parses MaxFileSize. Zero means no limit.
func (f FilesystemConfig) MaxFileSizeBytes() (int64, error) {
	if strings.TrimSpace(f.MaxFileSize) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(f.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max_file_size %q: %w", f.MaxFileSize, err)
	}
	return int64(n), nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".activity-collector"))
		}
	}

	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for the secrets most deployments inject
	_ = v.BindEnv("api.url", "COLLECTOR_API_URL")
	_ = v.BindEnv("api.key", "COLLECTOR_API_KEY")
	_ = v.BindEnv("logging.level", "COLLECTOR_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.expandPaths()

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", "http://localhost:3000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.health_timeout", 5*time.Second)
	v.SetDefault("api.retry.attempts", 3)
	v.SetDefault("api.retry.initial_delay", time.Second)
	v.SetDefault("api.retry.multiplier", 2.0)
	v.SetDefault("api.rate_limit_per_minute", 30)

	// Git defaults
	v.SetDefault("sources.git.enabled", true)
	v.SetDefault("sources.git.schedule", string(models.ScheduleDaily))
	v.SetDefault("sources.git.scan_paths", []string{"~/Projects"})
	v.SetDefault("sources.git.since_days", 1)
	v.SetDefault("sources.git.max_depth", 5)

	// Browser defaults
	v.SetDefault("sources.browser.enabled", true)
	v.SetDefault("sources.browser.schedule", string(models.ScheduleDaily))
	v.SetDefault("sources.browser.browsers", []string{"chrome", "safari", "edge", "brave", "arc"})
	v.SetDefault("sources.browser.since_days", 1)
	v.SetDefault("sources.browser.exclude_domains", []string{"localhost", "127.0.0.1"})
	v.SetDefault("sources.browser.max_items", 5000)

	// Filesystem defaults
	v.SetDefault("sources.filesystem.enabled", false)
	v.SetDefault("sources.filesystem.schedule", string(models.ScheduleDaily))
	v.SetDefault("sources.filesystem.watch_paths", []string{"~/Documents", "~/Desktop"})
	v.SetDefault("sources.filesystem.exclude_patterns", []string{
		"**/node_modules/**",
		"**/.cache/**",
		"**/dist/**",
		"**/build/**",
		"**/__pycache__/**",
	})
	v.SetDefault("sources.filesystem.since_days", 1)
	v.SetDefault("sources.filesystem.max_file_size", "10MB")
	v.SetDefault("sources.filesystem.max_depth", 8)
	v.SetDefault("sources.filesystem.include_preview", true)

	// Chatbot defaults
	v.SetDefault("sources.chatbot.enabled", false)
	v.SetDefault("sources.chatbot.schedule", string(models.ScheduleDaily))
	v.SetDefault("sources.chatbot.client", "chatwise")
	v.SetDefault("sources.chatbot.since_days", 1)
	v.SetDefault("sources.chatbot.include_content", true)
	v.SetDefault("sources.chatbot.max_messages_per_chat", 0)

	// Service defaults
	v.SetDefault("service.pid_file", "~/.activity-collector/collector.pid")
	v.SetDefault("service.health_addr", "127.0.0.1:9464")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

func (c *Config) expandPaths() {
	c.Sources.Git.ScanPaths = ExpandPaths(c.Sources.Git.ScanPaths)
	c.Sources.Git.ExcludeRepos = ExpandPaths(c.Sources.Git.ExcludeRepos)
	c.Sources.Filesystem.WatchPaths = ExpandPaths(c.Sources.Filesystem.WatchPaths)
	c.Sources.Chatbot.DBPath = ExpandPath(c.Sources.Chatbot.DBPath)
	c.Service.PIDFile = ExpandPath(c.Service.PIDFile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Key == "" {
		return fmt.Errorf("api.key is required")
	}
	if c.API.Retry.Attempts < 1 {
		return fmt.Errorf("api.retry.attempts must be at least 1")
	}
	for _, t := range models.AllSourceTypes {
		s, _ := c.Sources.Settings(t)
		if !s.Enabled {
			continue
		}
		if !s.Schedule.Valid() {
			return fmt.Errorf("sources.%s.schedule: unknown frequency %q", t, s.Schedule)
		}
		if days := c.Sources.SinceDays(t); days < 1 {
			return fmt.Errorf("sources.%s.since_days must be at least 1, got %d", t, days)
		}
	}
	if _, err := c.Sources.Filesystem.MaxFileSizeBytes(); err != nil {
		return fmt.Errorf("sources.filesystem: %w", err)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ExpandPaths applies ExpandPath to every entry
func ExpandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, ExpandPath(p))
	}
	return out
}

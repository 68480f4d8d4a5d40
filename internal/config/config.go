package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification modes for delete sync summaries
const (
	NotifyNone        = "none"
	NotifyAll         = "all"
	NotifyBoth        = "both"
	NotifyDiscordOnly = "discord-only"
	NotifyWebhookOnly = "webhook-only"
	NotifyAppriseOnly = "apprise-only"
)

var validNotifyModes = map[string]bool{
	NotifyNone:        true,
	NotifyAll:         true,
	NotifyBoth:        true,
	NotifyDiscordOnly: true,
	NotifyWebhookOnly: true,
	NotifyAppriseOnly: true,
}

const defaultDatabaseFile = "pulsarr.db"

// DefaultProtectionPlaylistName is the Plex playlist that shields content from delete sync
const DefaultProtectionPlaylistName = "Do Not Delete"

// Config holds all configuration for the application
type Config struct {
	Sonarr []InstanceConfig
	Radarr []InstanceConfig
	Plex   PlexConfig

	DeleteSync DeleteSyncConfig
	Notify     NotifyConfig

	// Global settings
	RequestTimeout time.Duration
	RequestDelay   time.Duration
	LogLevel       string
	DryRun         bool
	DatabaseFile   string
	MetricsAddr    string
}

// InstanceConfig holds the connection settings of one Sonarr or Radarr server
type InstanceConfig struct {
	ID     int
	Name   string
	URL    string
	APIKey string
	// ExcludedTags hides tagged content from routing views; delete sync bypasses it.
	ExcludedTags []string
}

// PlexConfig holds Plex Media Server configuration
type PlexConfig struct {
	URL   string
	Token string
}

// DeleteSyncConfig holds the delete sync policy
type DeleteSyncConfig struct {
	DeleteMovie                  bool
	DeleteEndedShow              bool
	DeleteContinuingShow         bool
	DeleteFiles                  bool
	RespectUserSyncSetting       bool
	EnablePlexPlaylistProtection bool
	PlexProtectionPlaylistName   string
	MaxDeletionPrevention        float64 // percentage ceiling, 0-100
	Schedule                     string  // cron expression for serve mode
}

// Enabled reports whether any content type may be deleted
func (c DeleteSyncConfig) Enabled() bool {
	return c.DeleteMovie || c.DeleteEndedShow || c.DeleteContinuingShow
}

// NotifyConfig holds notification settings for delete sync
type NotifyConfig struct {
	Mode              string
	OnlyOnDeletion    bool
	DiscordWebhookURL string
	AppriseURL        string
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (ignore errors - .env file is optional)
	_ = godotenv.Load()

	config := &Config{
		// Default values
		RequestTimeout: 30 * time.Second,
		RequestDelay:   500 * time.Millisecond,
		LogLevel:       "INFO",
		DryRun:         false,
		DatabaseFile:   defaultDatabaseFile,
		MetricsAddr:    ":9090",
	}

	config.Sonarr = loadInstances("SONARR")
	config.Radarr = loadInstances("RADARR")

	config.Plex.URL = getEnvOrDefault("PLEX_URL", "")
	config.Plex.Token = getEnvOrDefault("PLEX_TOKEN", "")

	config.DeleteSync = DeleteSyncConfig{
		DeleteMovie:                  getEnvBool("DELETE_MOVIE", false),
		DeleteEndedShow:              getEnvBool("DELETE_ENDED_SHOW", false),
		DeleteContinuingShow:         getEnvBool("DELETE_CONTINUING_SHOW", false),
		DeleteFiles:                  getEnvBool("DELETE_FILES", true),
		RespectUserSyncSetting:       getEnvBool("RESPECT_USER_SYNC_SETTING", true),
		EnablePlexPlaylistProtection: getEnvBool("ENABLE_PLEX_PLAYLIST_PROTECTION", false),
		PlexProtectionPlaylistName:   getEnvOrDefault("PLEX_PROTECTION_PLAYLIST_NAME", DefaultProtectionPlaylistName),
		MaxDeletionPrevention:        getEnvFloat("MAX_DELETION_PREVENTION", 10),
		Schedule:                     getEnvOrDefault("DELETE_SYNC_SCHEDULE", "0 3 * * *"),
	}

	config.Notify = NotifyConfig{
		Mode:              strings.ToLower(getEnvOrDefault("DELETE_SYNC_NOTIFY", NotifyNone)),
		OnlyOnDeletion:    getEnvBool("DELETE_SYNC_NOTIFY_ONLY_ON_DELETION", false),
		DiscordWebhookURL: getEnvOrDefault("DISCORD_WEBHOOK_URL", ""),
		AppriseURL:        getEnvOrDefault("APPRISE_URL", ""),
	}

	// Load global settings
	if timeoutStr := os.Getenv("REQUEST_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.RequestTimeout = timeout
		}
	}

	if delayStr := os.Getenv("REQUEST_DELAY"); delayStr != "" {
		if delay, err := time.ParseDuration(delayStr); err == nil {
			config.RequestDelay = delay
		}
	}

	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")
	config.DryRun = getEnvBool("DRY_RUN", false)
	config.DatabaseFile = getEnvOrDefault("DATABASE_FILE", config.DatabaseFile)
	config.MetricsAddr = getEnvOrDefault("METRICS_ADDR", config.MetricsAddr)

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// DatabaseFile resolves DATABASE_FILE (including .env) without validating the
// rest of the configuration
func DatabaseFile() string {
	_ = godotenv.Load()
	return getEnvOrDefault("DATABASE_FILE", defaultDatabaseFile)
}

// loadInstances reads PREFIX_URL/PREFIX_API_KEY as instance 1 and
// PREFIX_<n>_URL/PREFIX_<n>_API_KEY for n >= 2 until a gap is found.
func loadInstances(prefix string) []InstanceConfig {
	var instances []InstanceConfig

	for n := 1; ; n++ {
		key := prefix
		if n > 1 {
			key = fmt.Sprintf("%s_%d", prefix, n)
		}

		url := os.Getenv(key + "_URL")
		apiKey := os.Getenv(key + "_API_KEY")
		if url == "" && apiKey == "" {
			break
		}

		instances = append(instances, InstanceConfig{
			ID:           n,
			Name:         getEnvOrDefault(key+"_NAME", fmt.Sprintf("%s-%d", strings.ToLower(prefix), n)),
			URL:          url,
			APIKey:       apiKey,
			ExcludedTags: getEnvList(key + "_EXCLUDED_TAGS"),
		})
	}

	return instances
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Sonarr) == 0 && len(c.Radarr) == 0 {
		return fmt.Errorf("at least one Sonarr or Radarr instance is required (SONARR_URL or RADARR_URL)")
	}

	for _, inst := range c.Sonarr {
		if err := inst.validate("SONARR"); err != nil {
			return err
		}
	}
	for _, inst := range c.Radarr {
		if err := inst.validate("RADARR"); err != nil {
			return err
		}
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.RequestDelay < 0 {
		return fmt.Errorf("REQUEST_DELAY must not be negative")
	}

	if c.DeleteSync.MaxDeletionPrevention < 0 || c.DeleteSync.MaxDeletionPrevention > 100 {
		return fmt.Errorf("MAX_DELETION_PREVENTION must be between 0 and 100")
	}

	if c.DeleteSync.EnablePlexPlaylistProtection {
		if c.Plex.URL == "" || c.Plex.Token == "" {
			return fmt.Errorf("PLEX_URL and PLEX_TOKEN are required when playlist protection is enabled")
		}
		if strings.TrimSpace(c.DeleteSync.PlexProtectionPlaylistName) == "" {
			return fmt.Errorf("PLEX_PROTECTION_PLAYLIST_NAME must not be empty")
		}
	}

	if !validNotifyModes[c.Notify.Mode] {
		return fmt.Errorf("DELETE_SYNC_NOTIFY has unknown mode %q", c.Notify.Mode)
	}

	return nil
}

func (i InstanceConfig) validate(prefix string) error {
	key := prefix
	if i.ID > 1 {
		key = fmt.Sprintf("%s_%d", prefix, i.ID)
	}
	if i.URL == "" {
		return fmt.Errorf("%s_URL is required", key)
	}
	if i.APIKey == "" {
		return fmt.Errorf("%s_API_KEY is required", key)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a boolean or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

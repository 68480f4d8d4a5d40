package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_WithDefaults(t *testing.T) {
	// Clear all environment variables first
	clearTestEnv()

	// Set only required variables
	os.Setenv("SONARR_URL", "http://test-sonarr:8989")
	os.Setenv("SONARR_API_KEY", "test-api-key")
	defer clearTestEnv()

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if len(config.Sonarr) != 1 {
		t.Fatalf("Expected 1 Sonarr instance, got %d", len(config.Sonarr))
	}
	if config.Sonarr[0].URL != "http://test-sonarr:8989" {
		t.Errorf("Expected Sonarr URL 'http://test-sonarr:8989', got '%s'", config.Sonarr[0].URL)
	}
	if config.Sonarr[0].ID != 1 || config.Sonarr[0].Name != "sonarr-1" {
		t.Errorf("Unexpected instance identity: %d/%s", config.Sonarr[0].ID, config.Sonarr[0].Name)
	}
	if len(config.Radarr) != 0 {
		t.Errorf("Expected no Radarr instances, got %d", len(config.Radarr))
	}

	// Test defaults
	if config.RequestTimeout != 30*time.Second {
		t.Errorf("Expected RequestTimeout '30s', got '%v'", config.RequestTimeout)
	}
	if config.RequestDelay != 500*time.Millisecond {
		t.Errorf("Expected RequestDelay '500ms', got '%v'", config.RequestDelay)
	}
	if config.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel 'INFO', got '%s'", config.LogLevel)
	}
	if config.DryRun {
		t.Errorf("Expected DryRun 'false', got '%t'", config.DryRun)
	}

	ds := config.DeleteSync
	if ds.DeleteMovie || ds.DeleteEndedShow || ds.DeleteContinuingShow {
		t.Error("Expected all delete policies to default to off")
	}
	if ds.Enabled() {
		t.Error("Expected delete sync to be disabled by default")
	}
	if !ds.DeleteFiles {
		t.Error("Expected DeleteFiles to default to true")
	}
	if !ds.RespectUserSyncSetting {
		t.Error("Expected RespectUserSyncSetting to default to true")
	}
	if ds.PlexProtectionPlaylistName != "Do Not Delete" {
		t.Errorf("Expected default playlist name 'Do Not Delete', got '%s'", ds.PlexProtectionPlaylistName)
	}
	if ds.MaxDeletionPrevention != 10 {
		t.Errorf("Expected MaxDeletionPrevention 10, got %v", ds.MaxDeletionPrevention)
	}
	if config.Notify.Mode != NotifyNone {
		t.Errorf("Expected notify mode 'none', got '%s'", config.Notify.Mode)
	}
}

func TestLoadConfig_WithCustomValues(t *testing.T) {
	clearTestEnv()

	os.Setenv("RADARR_URL", "http://radarr:7878")
	os.Setenv("RADARR_API_KEY", "radarr-key")
	os.Setenv("RADARR_2_URL", "http://radarr4k:7878")
	os.Setenv("RADARR_2_API_KEY", "radarr4k-key")
	os.Setenv("RADARR_2_NAME", "radarr-4k")
	os.Setenv("RADARR_2_EXCLUDED_TAGS", "keep, pinned ,")
	os.Setenv("DELETE_MOVIE", "true")
	os.Setenv("DELETE_FILES", "false")
	os.Setenv("MAX_DELETION_PREVENTION", "25.5")
	os.Setenv("DELETE_SYNC_NOTIFY", "Discord-Only")
	os.Setenv("REQUEST_TIMEOUT", "60s")
	os.Setenv("LOG_LEVEL", "DEBUG")
	os.Setenv("DRY_RUN", "true")
	defer clearTestEnv()

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if len(config.Radarr) != 2 {
		t.Fatalf("Expected 2 Radarr instances, got %d", len(config.Radarr))
	}
	second := config.Radarr[1]
	if second.ID != 2 || second.Name != "radarr-4k" || second.URL != "http://radarr4k:7878" {
		t.Errorf("Unexpected second instance: %+v", second)
	}
	if len(second.ExcludedTags) != 2 || second.ExcludedTags[0] != "keep" || second.ExcludedTags[1] != "pinned" {
		t.Errorf("Unexpected excluded tags: %v", second.ExcludedTags)
	}
	if !config.DeleteSync.DeleteMovie {
		t.Error("Expected DeleteMovie to be true")
	}
	if config.DeleteSync.DeleteFiles {
		t.Error("Expected DeleteFiles to be false")
	}
	if config.DeleteSync.MaxDeletionPrevention != 25.5 {
		t.Errorf("Expected MaxDeletionPrevention 25.5, got %v", config.DeleteSync.MaxDeletionPrevention)
	}
	if config.Notify.Mode != NotifyDiscordOnly {
		t.Errorf("Expected notify mode lowercased to 'discord-only', got '%s'", config.Notify.Mode)
	}
	if config.RequestTimeout != 60*time.Second {
		t.Errorf("Expected RequestTimeout '60s', got '%v'", config.RequestTimeout)
	}
	if config.LogLevel != "DEBUG" {
		t.Errorf("Expected LogLevel 'DEBUG', got '%s'", config.LogLevel)
	}
	if !config.DryRun {
		t.Errorf("Expected DryRun 'true', got '%t'", config.DryRun)
	}
}

func TestLoadConfig_InstanceGapStopsScan(t *testing.T) {
	clearTestEnv()
	os.Setenv("SONARR_URL", "http://sonarr:8989")
	os.Setenv("SONARR_API_KEY", "key")
	os.Setenv("SONARR_3_URL", "http://ignored:8989")
	os.Setenv("SONARR_3_API_KEY", "key3")
	defer clearTestEnv()
	defer os.Unsetenv("SONARR_3_URL")
	defer os.Unsetenv("SONARR_3_API_KEY")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if len(config.Sonarr) != 1 {
		t.Errorf("Expected scan to stop at the first gap, got %d instances", len(config.Sonarr))
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		errCheck func(error) bool
	}{
		{
			name:    "missing SONARR_API_KEY only",
			envVars: map[string]string{"SONARR_URL": "http://test:8989"},
			wantErr: true,
			errCheck: func(err error) bool {
				return err.Error() == "configuration validation failed: SONARR_API_KEY is required"
			},
		},
		{
			name: "missing second instance URL",
			envVars: map[string]string{
				"RADARR_URL":       "http://test:7878",
				"RADARR_API_KEY":   "key",
				"RADARR_2_API_KEY": "key2",
			},
			wantErr: true,
			errCheck: func(err error) bool {
				return err.Error() == "configuration validation failed: RADARR_2_URL is required"
			},
		},
		{
			name:    "no instances configured",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "protection without plex",
			envVars: map[string]string{
				"SONARR_URL":                      "http://test:8989",
				"SONARR_API_KEY":                  "key",
				"ENABLE_PLEX_PLAYLIST_PROTECTION": "true",
			},
			wantErr: true,
		},
		{
			name: "unknown notify mode",
			envVars: map[string]string{
				"SONARR_URL":         "http://test:8989",
				"SONARR_API_KEY":     "key",
				"DELETE_SYNC_NOTIFY": "carrier-pigeon",
			},
			wantErr: true,
		},
		{
			name: "percentage out of range",
			envVars: map[string]string{
				"SONARR_URL":              "http://test:8989",
				"SONARR_API_KEY":          "key",
				"MAX_DELETION_PREVENTION": "150",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv()
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}
			defer clearTestEnv()

			_, err := LoadConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errCheck != nil && !tt.errCheck(err) {
				t.Errorf("LoadConfig() error = %v, did not match expected pattern", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	validSonarr := []InstanceConfig{{ID: 1, URL: "http://test:8989", APIKey: "test-key"}}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Sonarr:         validSonarr,
				RequestTimeout: 30 * time.Second,
				Notify:         NotifyConfig{Mode: NotifyNone},
			},
			wantErr: false,
		},
		{
			name: "valid protection config",
			config: &Config{
				Sonarr:         validSonarr,
				Plex:           PlexConfig{URL: "http://plex:32400", Token: "token"},
				RequestTimeout: 30 * time.Second,
				DeleteSync: DeleteSyncConfig{
					EnablePlexPlaylistProtection: true,
					PlexProtectionPlaylistName:   DefaultProtectionPlaylistName,
				},
				Notify: NotifyConfig{Mode: NotifyAll},
			},
			wantErr: false,
		},
		{
			name: "blank playlist name",
			config: &Config{
				Sonarr:         validSonarr,
				Plex:           PlexConfig{URL: "http://plex:32400", Token: "token"},
				RequestTimeout: 30 * time.Second,
				DeleteSync: DeleteSyncConfig{
					EnablePlexPlaylistProtection: true,
					PlexProtectionPlaylistName:   "  ",
				},
				Notify: NotifyConfig{Mode: NotifyNone},
			},
			wantErr: true,
		},
		{
			name: "zero timeout",
			config: &Config{
				Sonarr:         validSonarr,
				RequestTimeout: 0,
				Notify:         NotifyConfig{Mode: NotifyNone},
			},
			wantErr: true,
		},
		{
			name: "negative delay",
			config: &Config{
				Sonarr:         validSonarr,
				RequestTimeout: time.Second,
				RequestDelay:   -time.Second,
				Notify:         NotifyConfig{Mode: NotifyNone},
			},
			wantErr: true,
		},
		{
			name: "negative percentage",
			config: &Config{
				Sonarr:         validSonarr,
				RequestTimeout: time.Second,
				DeleteSync:     DeleteSyncConfig{MaxDeletionPrevention: -1},
				Notify:         NotifyConfig{Mode: NotifyNone},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		setEnv       bool
		expected     string
	}{
		{
			name:         "env var set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			setEnv:       true,
			expected:     "custom",
		},
		{
			name:         "env var not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			setEnv:       false,
			expected:     "default",
		},
		{
			name:         "env var empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			setEnv:       true,
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnvOrDefault(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getEnvOrDefault() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		setEnv       bool
		expected     bool
	}{
		{
			name:         "env var true",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "true",
			setEnv:       true,
			expected:     true,
		},
		{
			name:         "env var not set",
			key:          "TEST_BOOL_MISSING",
			defaultValue: true,
			setEnv:       false,
			expected:     true,
		},
		{
			name:         "env var invalid",
			key:          "TEST_BOOL_INVALID",
			defaultValue: false,
			envValue:     "not-a-bool",
			setEnv:       true,
			expected:     false, // should return default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnvBool(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getEnvBool() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	os.Setenv("TEST_FLOAT", "12.5")
	defer os.Unsetenv("TEST_FLOAT")
	os.Setenv("TEST_FLOAT_BAD", "abc")
	defer os.Unsetenv("TEST_FLOAT_BAD")

	if got := getEnvFloat("TEST_FLOAT", 1); got != 12.5 {
		t.Errorf("getEnvFloat() = %v, expected 12.5", got)
	}
	if got := getEnvFloat("TEST_FLOAT_BAD", 7); got != 7 {
		t.Errorf("getEnvFloat() = %v, expected default 7", got)
	}
	if got := getEnvFloat("TEST_FLOAT_MISSING", 3); got != 3 {
		t.Errorf("getEnvFloat() = %v, expected default 3", got)
	}
}

// clearTestEnv clears all environment variables that might affect tests
func clearTestEnv() {
	envVars := []string{
		"SONARR_URL", "SONARR_API_KEY", "SONARR_NAME", "SONARR_EXCLUDED_TAGS",
		"SONARR_2_URL", "SONARR_2_API_KEY",
		"RADARR_URL", "RADARR_API_KEY", "RADARR_NAME",
		"RADARR_2_URL", "RADARR_2_API_KEY", "RADARR_2_NAME", "RADARR_2_EXCLUDED_TAGS",
		"PLEX_URL", "PLEX_TOKEN",
		"DELETE_MOVIE", "DELETE_ENDED_SHOW", "DELETE_CONTINUING_SHOW", "DELETE_FILES",
		"RESPECT_USER_SYNC_SETTING", "ENABLE_PLEX_PLAYLIST_PROTECTION",
		"PLEX_PROTECTION_PLAYLIST_NAME", "MAX_DELETION_PREVENTION", "DELETE_SYNC_SCHEDULE",
		"DELETE_SYNC_NOTIFY", "DELETE_SYNC_NOTIFY_ONLY_ON_DELETION",
		"DISCORD_WEBHOOK_URL", "APPRISE_URL",
		"REQUEST_TIMEOUT", "REQUEST_DELAY",
		"LOG_LEVEL", "DRY_RUN", "DATABASE_FILE", "METRICS_ADDR",
	}
	for _, envVar := range envVars {
		os.Unsetenv(envVar)
	}
}

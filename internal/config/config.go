// Package config provides configuration loading and structs for the quizcast server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file. Secrets belong here rather than in the YAML.
const (
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Intake   IntakeConfig   `yaml:"intake"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the SQLite database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// TelegramConfig holds the Bot API target settings.
type TelegramConfig struct {
	Token       string `yaml:"token,omitempty"`
	ChatID      int64  `yaml:"chat_id"`
	APIEndpoint string `yaml:"api_endpoint,omitempty"`
	Anonymous   *bool  `yaml:"anonymous"`
}

// AnonymousOrDefault returns whether quizzes are posted anonymously; defaults to true when unset.
func (t *TelegramConfig) AnonymousOrDefault() bool {
	if t.Anonymous != nil {
		return *t.Anonymous
	}
	return true
}

// DispatchConfig holds batching and pacing settings for publishing.
type DispatchConfig struct {
	BatchSize        int           `yaml:"batch_size"`
	PacingDelay      time.Duration `yaml:"pacing_delay"`
	BatchDelay       time.Duration `yaml:"batch_delay"`
	ExtendedEvery    int           `yaml:"extended_every"`
	ExtendedDelay    time.Duration `yaml:"extended_delay"`
	RateLimitDefault time.Duration `yaml:"rate_limit_default"`
	RetryPadding     time.Duration `yaml:"retry_padding"`
}

// IntakeConfig holds submission limits and extraction settings.
type IntakeConfig struct {
	MinInterval   time.Duration `yaml:"min_interval"`
	MaxFileSizeMB int           `yaml:"max_file_size_mb"`
	ExcerptLength int           `yaml:"excerpt_length"`
	FillerOption  string        `yaml:"filler_option"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (i *IntakeConfig) MaxFileSizeBytes() int64 {
	return int64(i.MaxFileSizeMB) << 20
}

// WatchConfig holds inbox directory settings.
type WatchConfig struct {
	Directories  []string `yaml:"directories"`
	Extensions   []string `yaml:"extensions"`
	ProcessedDir string   `yaml:"processed_dir"`
}

// Load reads and parses the config file at path, applies environment
// overrides, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// ApplyEnv loads a .env file from the working directory when present and
// overrides Telegram settings from the environment.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()
	if v, ok := os.LookupEnv(EnvTelegramToken); ok && v != "" {
		cfg.Telegram.Token = v
	}
	if v, ok := os.LookupEnv(EnvTelegramChatID); ok && v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTelegramChatID, v, err)
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}

// Save writes the config to path. The bot token is never written back.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Telegram.Token = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

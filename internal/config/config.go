// Package config holds the runtime settings: data paths, channel credentials,
// audit and event sinks. The menu document itself lives elsewhere and is
// managed by the store.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".kiosk"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// Config is the runtime configuration.
type Config struct {
	Paths    PathsConfig    `json:"paths"`
	Channels ChannelsConfig `json:"channels"`
	Audit    AuditConfig    `json:"audit"`
	Events   EventsConfig   `json:"events"`
	Sessions SessionsConfig `json:"sessions"`
}

// PathsConfig locates the data directory and the menu document.
type PathsConfig struct {
	DataDir  string `json:"data_dir" envconfig:"DATA_DIR"`
	MenuPath string `json:"menu_path" envconfig:"MENU_PATH"`
}

// ChannelsConfig groups the transport adapters.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

type TelegramConfig struct {
	Enabled bool `json:"enabled" envconfig:"ENABLED"`
	Debug   bool `json:"debug" envconfig:"DEBUG"`
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken string `json:"bot_token" envconfig:"BOT_TOKEN"`
	AppToken string `json:"app_token" envconfig:"APP_TOKEN"`
}

type WhatsAppConfig struct {
	Enabled bool `json:"enabled" envconfig:"ENABLED"`
}

// AuditConfig controls the sqlite interaction trail.
type AuditConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	DBPath  string `json:"db_path" envconfig:"DB_PATH"`
}

// EventsConfig controls the optional Kafka audit-event stream.
type EventsConfig struct {
	Enabled bool     `json:"enabled" envconfig:"ENABLED"`
	Brokers []string `json:"brokers" envconfig:"BROKERS"`
	Topic   string   `json:"topic" envconfig:"TOPIC"`
}

// SessionsConfig controls idle session eviction.
type SessionsConfig struct {
	IdleTimeoutMinutes   int `json:"idle_timeout_minutes" envconfig:"IDLE_TIMEOUT_MINUTES"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes" envconfig:"SWEEP_INTERVAL_MINUTES"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ConfigDir)
	return &Config{
		Paths: PathsConfig{
			DataDir:  dataDir,
			MenuPath: filepath.Join(dataDir, "menu.json"),
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{Enabled: true},
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  filepath.Join(dataDir, "audit.db"),
		},
		Events: EventsConfig{
			Topic: "kiosk.audit",
		},
		Sessions: SessionsConfig{
			IdleTimeoutMinutes:   120,
			SweepIntervalMinutes: 10,
		},
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("KIOSK_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("KIOSK_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("KIOSK_PATHS", &cfg.Paths)
	envconfig.Process("KIOSK_CHANNELS_TELEGRAM", &cfg.Channels.Telegram)
	envconfig.Process("KIOSK_CHANNELS_SLACK", &cfg.Channels.Slack)
	envconfig.Process("KIOSK_CHANNELS_WHATSAPP", &cfg.Channels.WhatsApp)
	envconfig.Process("KIOSK_AUDIT", &cfg.Audit)
	envconfig.Process("KIOSK_EVENTS", &cfg.Events)
	envconfig.Process("KIOSK_SESSIONS", &cfg.Sessions)

	// Expand ~ in paths
	expandHome := func(p *string) {
		if strings.HasPrefix(*p, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				*p = filepath.Join(home, (*p)[1:])
			}
		}
	}
	expandHome(&cfg.Paths.DataDir)
	expandHome(&cfg.Paths.MenuPath)
	expandHome(&cfg.Audit.DBPath)

	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	LLM       LLMConfig       `toml:"llm"`
	Storage   StorageConfig   `toml:"storage"`
	UI        UIConfig        `toml:"ui"`
	DevServer DevServerConfig `toml:"devserver"`
}

// ServerConfig holds the scheduling service connection.
type ServerConfig struct {
	BaseURL         string `toml:"base_url"`         // e.g., "http://localhost:8080"
	Token           string `toml:"token"`            // bearer token, optional
	Timeout         string `toml:"timeout"`          // e.g., "10s"
	RefreshInterval string `toml:"refresh_interval"` // e.g., "30s", "0" disables
}

// SlotTimes is the default window of a named slot.
type SlotTimes struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

// ScheduleConfig holds the default slot windows shown before the service
// reports real ones.
type ScheduleConfig struct {
	Morning   SlotTimes `toml:"morning"`
	Afternoon SlotTimes `toml:"afternoon"`
	Evening   SlotTimes `toml:"evening"`
}

// LLMConfig holds the conflict explainer settings.
type LLMConfig struct {
	Provider string `toml:"provider"` // "none", "openai", "lmstudio", "ollama"
	Model    string `toml:"model"`    // e.g., "gpt-4o-mini"
	BaseURL  string `toml:"base_url"` // e.g., "http://localhost:11434"
	APIKey   string `toml:"api_key"`  // openai only
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// UIConfig holds TUI settings.
type UIConfig struct {
	Theme      string `toml:"theme"`      // "mocha", "macchiato", "frappe", "latte"
	Optimistic bool   `toml:"optimistic"` // apply placements before the commit returns
}

// DevServerConfig holds settings for the local development service.
type DevServerConfig struct {
	Addr   string `toml:"addr"`
	Secret string `toml:"secret"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:         "http://localhost:8080",
			Timeout:         "10s",
			RefreshInterval: "30s",
		},
		Schedule: ScheduleConfig{
			Morning:   SlotTimes{Start: "09:00", End: "12:00"},
			Afternoon: SlotTimes{Start: "13:00", End: "16:00"},
			Evening:   SlotTimes{Start: "17:00", End: "20:00"},
		},
		LLM: LLMConfig{
			Provider: "none",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		UI: UIConfig{
			Theme: "frappe",
		},
		DevServer: DevServerConfig{
			Addr:   "127.0.0.1:8080",
			Secret: "examdesk-dev",
		},
	}
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "examdesk.db"
	}
	return filepath.Join(home, ".local", "share", "examdesk", "examdesk.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "examdesk", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if v := os.Getenv("EXAMDESK_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("EXAMDESK_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("EXAMDESK_TIMEOUT"); v != "" {
		cfg.Server.Timeout = v
	}
	if v := os.Getenv("EXAMDESK_REFRESH_INTERVAL"); v != "" {
		cfg.Server.RefreshInterval = v
	}

	// LLM overrides
	if v := os.Getenv("EXAMDESK_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("EXAMDESK_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("EXAMDESK_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("EXAMDESK_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	// Storage overrides
	if v := os.Getenv("EXAMDESK_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}

	// UI overrides
	if v := os.Getenv("EXAMDESK_UI_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	if v := os.Getenv("EXAMDESK_OPTIMISTIC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UI.Optimistic = b
		}
	}

	// Dev server overrides
	if v := os.Getenv("EXAMDESK_DEV_ADDR"); v != "" {
		cfg.DevServer.Addr = v
	}
	if v := os.Getenv("EXAMDESK_DEV_SECRET"); v != "" {
		cfg.DevServer.Secret = v
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

var validProviders = map[string]bool{
	"none":     true,
	"openai":   true,
	"lmstudio": true,
	"ollama":   true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server base_url must be an absolute URL, got %q", c.Server.BaseURL)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.RefreshInterval(); err != nil {
		return err
	}

	for _, name := range exam.SlotNames {
		w := c.Schedule.window(name)
		field := strings.ToLower(string(name))
		if err := exam.ValidateWindow(w.Start, w.End); err != nil {
			return fmt.Errorf("schedule %s: %w", field, err)
		}
	}

	if !validProviders[strings.ToLower(c.LLM.Provider)] {
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.Storage.DBPath == "" {
		return errors.New("db_path must be set")
	}
	return nil
}

// Timeout returns the parsed request timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("server timeout must be a positive duration, got %q", c.Server.Timeout)
	}
	return d, nil
}

// RefreshInterval returns the idle refresh period. Zero disables refreshing.
func (c *Config) RefreshInterval() (time.Duration, error) {
	if c.Server.RefreshInterval == "" || c.Server.RefreshInterval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.RefreshInterval)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("server refresh_interval must be a duration, got %q", c.Server.RefreshInterval)
	}
	return d, nil
}

func (s ScheduleConfig) window(name exam.SlotName) SlotTimes {
	switch name {
	case exam.Morning:
		return s.Morning
	case exam.Afternoon:
		return s.Afternoon
	default:
		return s.Evening
	}
}

// Windows returns the default slot windows keyed by slot name.
func (c *Config) Windows() map[exam.SlotName][2]string {
	out := make(map[exam.SlotName][2]string, len(exam.SlotNames))
	for _, name := range exam.SlotNames {
		w := c.Schedule.window(name)
		out[name] = [2]string{w.Start, w.End}
	}
	return out
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// The file can hold a bearer token.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

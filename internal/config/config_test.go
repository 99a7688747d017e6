package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("expected base_url http://localhost:8080, got %s", cfg.Server.BaseURL)
	}
	if cfg.Schedule.Morning.Start != "09:00" {
		t.Errorf("expected morning start 09:00, got %s", cfg.Schedule.Morning.Start)
	}
	if cfg.LLM.Provider != "none" {
		t.Errorf("expected provider none, got %s", cfg.LLM.Provider)
	}
	if cfg.UI.Optimistic {
		t.Error("expected optimistic updates off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFrom_FileNotExists(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Timeout != "10s" {
		t.Errorf("expected default timeout, got %s", cfg.Server.Timeout)
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[server]
base_url = "https://exams.example.edu/"
token = "abc"
timeout = "5s"
refresh_interval = "1m"

[schedule.morning]
start = "08:00"
end = "11:00"

[llm]
provider = "ollama"
model = "llama3.2"

[storage]
db_path = "/tmp/test.db"

[ui]
theme = "latte"
optimistic = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.BaseURL != "https://exams.example.edu" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Server.BaseURL)
	}
	if cfg.Server.Token != "abc" {
		t.Errorf("expected token abc, got %s", cfg.Server.Token)
	}
	if cfg.Schedule.Morning.Start != "08:00" {
		t.Errorf("expected morning start 08:00, got %s", cfg.Schedule.Morning.Start)
	}
	if cfg.Schedule.Afternoon.Start != "13:00" {
		t.Errorf("expected default afternoon start, got %s", cfg.Schedule.Afternoon.Start)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.Storage.DBPath != "/tmp/test.db" {
		t.Errorf("expected db_path /tmp/test.db, got %s", cfg.Storage.DBPath)
	}
	if cfg.UI.Theme != "latte" || !cfg.UI.Optimistic {
		t.Errorf("unexpected ui config: %+v", cfg.UI)
	}

	d, _ := cfg.RefreshInterval()
	if d != time.Minute {
		t.Errorf("expected refresh interval 1m, got %s", d)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[server]
base_url = "http://file.example:8080"
timeout = "3s"

[storage]
db_path = "/tmp/test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("EXAMDESK_BASE_URL", "http://env.example:9090")
	t.Setenv("EXAMDESK_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("EXAMDESK_OPTIMISTIC", "true")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.BaseURL != "http://env.example:9090" {
		t.Errorf("expected base_url from env, got %s", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != "3s" {
		t.Errorf("expected timeout 3s from file, got %s", cfg.Server.Timeout)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model from env, got %s", cfg.LLM.Model)
	}
	if !cfg.UI.Optimistic {
		t.Error("expected optimistic from env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"relative base url", func(c *Config) { c.Server.BaseURL = "localhost:8080" }, true},
		{"bad timeout", func(c *Config) { c.Server.Timeout = "soon" }, true},
		{"zero timeout", func(c *Config) { c.Server.Timeout = "0s" }, true},
		{"refresh disabled", func(c *Config) { c.Server.RefreshInterval = "0" }, false},
		{"bad refresh", func(c *Config) { c.Server.RefreshInterval = "often" }, true},
		{"bad slot time", func(c *Config) { c.Schedule.Morning.Start = "9:00" }, true},
		{"slot ends before start", func(c *Config) { c.Schedule.Evening = SlotTimes{Start: "20:00", End: "17:00"} }, true},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "copilot" }, true},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestWindows(t *testing.T) {
	cfg := Default()
	w := cfg.Windows()

	if len(w) != len(exam.SlotNames) {
		t.Fatalf("expected %d windows, got %d", len(exam.SlotNames), len(w))
	}
	if w[exam.Afternoon] != [2]string{"13:00", "16:00"} {
		t.Errorf("unexpected afternoon window: %v", w[exam.Afternoon])
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test.db", filepath.Join(home, "test.db")},
		{"/absolute/path.db", "/absolute/path.db"},
		{"relative/path.db", "relative/path.db"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := expandPath(tc.input)
			if got != tc.want {
				t.Errorf("expandPath(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.toml")

	cfg := Default()
	cfg.Server.Token = "secret"
	cfg.Schedule.Evening = SlotTimes{Start: "16:30", End: "19:30"}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Server.Token != "secret" {
		t.Errorf("expected token to round trip, got %q", loaded.Server.Token)
	}
	if loaded.Schedule.Evening.Start != "16:30" {
		t.Errorf("expected evening start 16:30, got %s", loaded.Schedule.Evening.Start)
	}
}

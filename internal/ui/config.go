package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/examdesk/internal/config"
	"github.com/javiermolinar/examdesk/internal/tui/theme"
)

func (a *App) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.

Example:
  examdesk config`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInteractive()
		},
	}
}

func runConfigInteractive() error {
	configPath := config.DefaultConfigPath()
	fmt.Printf("Config file: %s\n\n", configPath)

	// Load existing config or create defaults
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Check if file exists
	_, fileErr := os.Stat(configPath)
	isNew := os.IsNotExist(fileErr)

	if isNew {
		fmt.Println("No config file found. Creating with default values...")
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Created %s\n\n", configPath)
	}

	// Display current config
	printConfig(cfg)

	// Ask if user wants to edit
	if !promptYesNo("\nWould you like to edit the configuration?") {
		return nil
	}

	// Interactive editing
	reader := bufio.NewReader(os.Stdin)

	cfg.Server.BaseURL = promptValue(reader, "Service base URL", cfg.Server.BaseURL)
	cfg.Server.Token = promptValue(reader, "Bearer token (empty for none)", cfg.Server.Token)
	cfg.Server.Timeout = promptValue(reader, "Request timeout", cfg.Server.Timeout)
	cfg.Server.RefreshInterval = promptValue(reader, "Refresh interval (0 to disable)", cfg.Server.RefreshInterval)
	cfg.Schedule.Morning = promptWindow(reader, "Morning", cfg.Schedule.Morning)
	cfg.Schedule.Afternoon = promptWindow(reader, "Afternoon", cfg.Schedule.Afternoon)
	cfg.Schedule.Evening = promptWindow(reader, "Evening", cfg.Schedule.Evening)
	cfg.LLM.Provider = promptValue(reader, "LLM provider (none, openai, lmstudio, ollama)", cfg.LLM.Provider)
	cfg.LLM.Model = promptValue(reader, "LLM model", cfg.LLM.Model)
	cfg.LLM.BaseURL = promptValue(reader, "LLM base URL (Ollama/LM Studio)", cfg.LLM.BaseURL)
	cfg.Storage.DBPath = promptValue(reader, "Database path", cfg.Storage.DBPath)
	cfg.UI.Theme = promptTheme(reader, cfg.UI.Theme)
	cfg.UI.Optimistic = promptBool(reader, "Apply placements before the service confirms", cfg.UI.Optimistic)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Save
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("\nConfiguration saved!")
	return nil
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current configuration:")
	fmt.Println("──────────────────────")
	fmt.Println("[server]")
	fmt.Printf("  base_url         = %s\n", cfg.Server.BaseURL)
	fmt.Printf("  token            = %s\n", maskToken(cfg.Server.Token))
	fmt.Printf("  timeout          = %s\n", cfg.Server.Timeout)
	fmt.Printf("  refresh_interval = %s\n", cfg.Server.RefreshInterval)
	fmt.Println("\n[schedule]")
	fmt.Printf("  morning          = %s-%s\n", cfg.Schedule.Morning.Start, cfg.Schedule.Morning.End)
	fmt.Printf("  afternoon        = %s-%s\n", cfg.Schedule.Afternoon.Start, cfg.Schedule.Afternoon.End)
	fmt.Printf("  evening          = %s-%s\n", cfg.Schedule.Evening.Start, cfg.Schedule.Evening.End)
	fmt.Println("\n[llm]")
	fmt.Printf("  provider         = %s\n", cfg.LLM.Provider)
	fmt.Printf("  model            = %s\n", cfg.LLM.Model)
	fmt.Printf("  base_url         = %s\n", cfg.LLM.BaseURL)
	fmt.Println("\n[storage]")
	fmt.Printf("  db_path          = %s\n", cfg.Storage.DBPath)
	fmt.Println("\n[ui]")
	fmt.Printf("  theme            = %s\n", cfg.UI.Theme)
	fmt.Printf("  optimistic       = %t\n", cfg.UI.Optimistic)
}

// maskToken keeps the token out of terminal scrollback.
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func promptYesNo(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(reader *bufio.Reader, label, current string) string {
	if current == "" {
		fmt.Printf("  %s: ", label)
	} else {
		fmt.Printf("  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptWindow(reader *bufio.Reader, label string, current config.SlotTimes) config.SlotTimes {
	return config.SlotTimes{
		Start: promptValue(reader, label+" start", current.Start),
		End:   promptValue(reader, label+" end", current.End),
	}
}

func promptBool(reader *bufio.Reader, label string, current bool) bool {
	value := strings.ToLower(promptValue(reader, label+" (y/n)", map[bool]string{true: "y", false: "n"}[current]))
	return value == "y" || value == "yes" || value == "true"
}

func promptTheme(reader *bufio.Reader, current string) string {
	options := strings.Join(theme.Available(), ", ")
	label := fmt.Sprintf("UI theme (%s)", options)
	for {
		value := strings.ToLower(promptValue(reader, label, current))
		if theme.IsAvailable(value) {
			return value
		}
		fmt.Printf("  Invalid theme %q. Available: %s\n", value, options)
	}
}

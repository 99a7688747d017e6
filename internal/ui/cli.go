package ui

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/examdesk/internal/api"
	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/config"
	"github.com/javiermolinar/examdesk/internal/db"
	"github.com/javiermolinar/examdesk/internal/llm"
	"github.com/javiermolinar/examdesk/internal/store"
	"github.com/javiermolinar/examdesk/internal/tui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config *config.Config
	root   *cobra.Command
	debug  bool // Enable debug logging

	// interactive routes warnings to the debug log instead of stderr.
	interactive bool

	// Built lazily, so config and version work without a service or database.
	client  *api.Client
	db      *db.SQLite
	console *assign.Console
}

// NewApp creates a new CLI application with the given config.
func NewApp(cfg *config.Config) *App {
	a := &App{config: cfg}

	a.root = &cobra.Command{
		Use:   "examdesk",
		Short: "Exam timetable assignment console",
		Long: `examdesk places course group exams into the slots of an exam period.

Carry a course or group onto a slot, and the scheduling service checks the
placement for student clashes before it is committed. When it clashes you
review the conflicts and the alternatives the service suggests.`,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runTUI()
		},
	}

	// Add global flags
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (logs to "+tui.DebugLogPath+")")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.showCmd())
	a.root.AddCommand(a.unscheduledCmd())
	a.root.AddCommand(a.placeCmd())
	a.root.AddCommand(a.moveCmd())
	a.root.AddCommand(a.removeCmd())
	a.root.AddCommand(a.slotTimeCmd())
	a.root.AddCommand(a.roomCmd())
	a.root.AddCommand(a.historyCmd())
	a.root.AddCommand(a.serveDevCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("examdesk %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases the database, if it was opened.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ensureDB opens the local database.
func (a *App) ensureDB() error {
	if a.db != nil {
		return nil
	}
	sqlite, err := db.New(a.config.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = sqlite
	return nil
}

// ensureConsole builds the service client and the console around it.
func (a *App) ensureConsole() error {
	if a.console != nil {
		return nil
	}
	if err := a.ensureDB(); err != nil {
		return err
	}

	timeout, err := a.config.Timeout()
	if err != nil {
		return err
	}
	session, err := api.ParseSession(a.config.Server.Token)
	if err != nil {
		return err
	}
	client, err := api.New(a.config.Server.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: timeout}),
		api.WithSession(session),
		api.WithRequestHook(tui.LogRequest),
	)
	if err != nil {
		return err
	}

	warn := func(err error) {
		if a.interactive {
			tui.LogError("local store", err)
			return
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", formatWarning("warning:"), err)
	}
	_, w := store.New()
	rec := assign.NewReconciler(client, w,
		assign.WithSnapshotCache(a.db, warn),
		assign.WithOptimistic(a.config.UI.Optimistic),
	)
	a.client = client
	a.console = assign.NewConsole(client, rec,
		assign.WithJournal(a.db, warn),
		assign.WithTransitionHook(tui.LogPhaseChange),
	)
	return nil
}

// explainer returns the configured conflict explainer, or nil when disabled.
func (a *App) explainer() (*llm.Explainer, error) {
	client, err := llm.NewClient(a.config.LLM.Provider, a.config.LLM.Model, a.config.LLM.BaseURL, a.config.LLM.APIKey)
	if errors.Is(err, llm.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return llm.NewExplainer(client), nil
}

func (a *App) runTUI() error {
	a.interactive = true
	if err := a.ensureConsole(); err != nil {
		return err
	}
	refresh, err := a.config.RefreshInterval()
	if err != nil {
		return err
	}

	opts := []tui.ModelOption{
		tui.WithRefreshInterval(refresh),
		tui.WithOperator(a.client.Session().Operator()),
	}
	explainer, err := a.explainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; explanations disabled\n", err)
	}
	if explainer != nil {
		opts = append(opts, tui.WithExplainer(explainer))
	}
	return tui.RunWithDebug(a.console, a.config, a.debug, opts...)
}

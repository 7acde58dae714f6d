package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/logging"
	"github.com/liubaotong/favsync/internal/settings"
	"github.com/liubaotong/favsync/internal/tui"
)

// Config holds the defaults read from the environment. Flags override them.
type Config struct {
	ServerURL       string
	SettingsDir     string
	SettingsBackend string
	PageSize        int
	LogLevel        string
	LogFormat       string
	LogFile         string
	DBPath          string
	Addr            string
}

type App struct {
	ServerURL       string
	SettingsDir     string
	SettingsBackend string
	PageSize        int
	PrettyJSON      bool
	LogLevel        string
	LogFormat       string
	LogFile         string

	defaults Config
	store    settings.Store
	settings *settings.Config
	logFile  *os.File
}

func NewRootCmd(cfg Config) *cobra.Command {
	app := &App{defaults: cfg}

	cmd := &cobra.Command{
		Use:          "favsync",
		Short:        "Browse and edit favorites on a favsync server",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive browser
  favsync

  # Scriptable commands
  favsync list --search golang --per-page 20
  favsync add --text "Go blog" --url https://go.dev/blog --tag go

  # Point at another server
  favsync config set server-url http://nas.local:3000
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive browser.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.initLogging(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.Close()
	}

	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", cfg.ServerURL, "Server base URL (overrides the stored serverUrl)")
	cmd.PersistentFlags().StringVar(&app.SettingsDir, "settings-dir", cfg.SettingsDir, "Directory holding local settings")
	cmd.PersistentFlags().StringVar(&app.SettingsBackend, "settings-backend", orDefault(cfg.SettingsBackend, settings.BackendFile), "Settings backend (file|badger)")
	cmd.PersistentFlags().IntVar(&app.PageSize, "page-size", cfg.PageSize, "Initial page size (10|20|50|100)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", orDefault(cfg.LogLevel, "info"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", orDefault(cfg.LogFormat, "text"), "Log format (text|json)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", cfg.LogFile, "Write logs to this file instead of stderr")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newCatalogCmd(app, apiclient.Categories, "categories", "category"))
	cmd.AddCommand(newCatalogCmd(app, apiclient.Tags, "tags", "tag"))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newHealthCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

func (a *App) initLogging(cmd *cobra.Command) error {
	var out io.Writer = cmd.ErrOrStderr()
	path := a.LogFile
	// The browser owns the terminal; keep log lines out of it.
	if path == "" && cmd == cmd.Root() && a.SettingsDir != "" {
		path = filepath.Join(a.SettingsDir, "favsync.log")
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	}
	logging.Init(out, logging.Options{Level: a.LogLevel, Format: a.LogFormat})
	return nil
}

// Settings opens the settings store on first use.
func (a *App) Settings() (*settings.Config, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	st, err := settings.Open(a.SettingsBackend, a.SettingsDir)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.settings = settings.NewConfig(st, a.ServerURL)
	return a.settings, nil
}

// Client returns an API client that resolves the server address on every
// request.
func (a *App) Client() (*apiclient.Client, error) {
	cfg, err := a.Settings()
	if err != nil {
		return nil, err
	}
	return apiclient.NewClient(cfg), nil
}

func (a *App) Close() error {
	var firstErr error
	if a.store != nil {
		firstErr = a.store.Close()
		a.store, a.settings = nil, nil
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.logFile = nil
	}
	return firstErr
}

func runTUI(cmd *cobra.Command, app *App) error {
	client, err := app.Client()
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), client, tui.Options{PageSize: app.PageSize})
}

func orDefault(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

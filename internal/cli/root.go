package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/docsession"
	"github.com/bamaolink/excalidraw/internal/format"
	"github.com/bamaolink/excalidraw/internal/logging"
	"github.com/bamaolink/excalidraw/internal/notify"
	"github.com/bamaolink/excalidraw/internal/store"
	"github.com/bamaolink/excalidraw/internal/tui"
)

type App struct {
	ConfigDir  string
	Server     string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg    *store.Config
	log    *zap.Logger
	st     store.Store
	client *api.Client
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "bamao",
		Short:        "Drawing file manager (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  bamao

  # Sign in once; the session is remembered
  bamao login --email you@example.com --password '...'

  # Scriptable commands
  bamao files list
  bamao files open 42 --out drawing.excalidraw
  bamao files save --in drawing.excalidraw
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.log != nil {
			_ = app.log.Sync()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("BAMAO_CONFIG_DIR", ""), "Config/session directory (default: ~/.bamao)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", "", "API base URL including the /api prefix (overrides config and BAMAO_SERVER)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("BAMAO_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug-level logging")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newFilesCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// setup resolves configuration in increasing precedence: .env, config.yaml, BAMAO_*
// environment, flags. It then opens the logger, session store and API client.
func (app *App) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if app.ConfigDir == "" {
		app.ConfigDir = strings.TrimSpace(os.Getenv("BAMAO_CONFIG_DIR"))
	}
	if app.ConfigDir != "" {
		abs, err := filepath.Abs(app.ConfigDir)
		if err != nil {
			return err
		}
		app.ConfigDir = abs
		if err := os.Setenv("BAMAO_CONFIG_DIR", abs); err != nil {
			return err
		}
	}

	cfg, err := store.LoadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if s := strings.TrimSpace(app.Server); s != "" {
		cfg.Server = strings.TrimRight(s, "/")
	}
	app.cfg = cfg

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Path: logPath, Verbose: app.Verbose})
	if err != nil {
		// Logging must never block the tool.
		log = zap.NewNop()
	}
	app.log = log

	st, err := store.Open()
	if err != nil {
		return err
	}
	app.st = st
	app.client = api.New(cfg.Server, st, api.WithTimeout(cfg.Timeout), api.WithLogger(log))
	app.log.Debug("configured", zap.String("server", cfg.Server), zap.String("dir", st.Dir))
	return nil
}

// controller builds a session controller for one command. Toasts never expire in the
// CLI; they are printed when the command finishes.
func (app *App) controller(editor docsession.Editor) *docsession.Controller {
	return docsession.New(docsession.Config{
		Repo:    app.client,
		Session: app.st,
		Toasts:  notify.New(notify.WithTTL(0)),
		Editor:  editor,
		Log:     app.log,
		Source:  app.cfg.Source,
	})
}

func runTUI(app *App) error {
	return tui.Run(tui.Options{
		Store:  app.st,
		Client: app.client,
		Config: app.cfg,
		Log:    app.log,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

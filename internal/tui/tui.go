package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/logging"
	"github.com/bamaolink/excalidraw/internal/store"
)

type Options struct {
	Store  store.Store
	Client *api.Client
	Config *store.Config
	Log    *zap.Logger
}

// Run starts the interactive UI. Signing out rebuilds it from the stored session, the
// same as a fresh launch.
func Run(opts Options) error {
	if opts.Config == nil {
		opts.Config = store.DefaultConfig()
	}
	opts.Log = logging.OrNop(opts.Log).Named("tui")

	applyColorProfilePreference()
	applyThemePreference(opts.Config.TUI.Theme)

	for {
		reload := &atomic.Bool{}
		m := newAppModel(opts, reload)
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		m.close()
		if err != nil {
			return err
		}
		if !reload.Load() {
			return nil
		}
		opts.Log.Info("reloading after sign-out")
	}
}

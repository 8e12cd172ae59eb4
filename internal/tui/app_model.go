package tui

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/docsession"
	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/notify"
	"github.com/bamaolink/excalidraw/internal/store"
)

// requestTimeout bounds a controller call made from a command.
const requestTimeout = 30 * time.Second

type appModel struct {
	store  store.Store
	repo   api.Repository
	log    *zap.Logger
	source string

	ctrl    *docsession.Controller
	surface *editorSurface
	// reload is set by the controller on sign-out; Run then starts over.
	reload *atomic.Bool

	width  int
	height int

	screen   screen
	username string
	// loaded is set after the first successful list load.
	loaded    bool
	quitArmed bool

	filesList list.Model
	spinner   spinner.Model
	pending   int

	// Sign-in form.
	emailInput    textinput.Model
	passwordInput textinput.Model
	signInFocus   signInField
	signingIn     bool

	toasts       *notify.Queue
	signInToasts *notify.Queue

	modal        modalKind
	modalForID   int64
	renameInput  textinput.Model
	confirmFocus confirmModalFocus

	showPreview  bool
	previewCache *previewCache
	tuiState     *store.TUIState

	minibufferText string
	flashSeq       int

	externalEditorPath   string
	externalEditorBefore string

	watcher *sessionWatcher
}

func newAppModel(opts Options, reload *atomic.Bool) appModel {
	surface := &editorSurface{}
	toasts := notify.New()
	var repo api.Repository
	if opts.Client != nil {
		repo = opts.Client
	}
	ctrl := docsession.New(docsession.Config{
		Repo:    repo,
		Session: opts.Store,
		Toasts:  toasts,
		Editor:  surface,
		Reload:  func() { reload.Store(true) },
		Log:     opts.Log,
		Source:  opts.Config.Source,
	})

	st, err := opts.Store.LoadTUIState()
	if err != nil || st == nil {
		st = &store.TUIState{Version: 1, ShowPreview: true}
	}

	m := appModel{
		store:        opts.Store,
		repo:         repo,
		log:          opts.Log,
		source:       opts.Config.Source,
		ctrl:         ctrl,
		surface:      surface,
		reload:       reload,
		screen:       screenSignIn,
		toasts:       toasts,
		signInToasts: notify.New(),
		showPreview:  st.ShowPreview,
		previewCache: &previewCache{},
		tuiState:     st,
	}

	m.filesList = newList("Drawings", nil)
	m.spinner = spinner.New(spinner.WithSpinner(spinner.MiniDot))

	m.emailInput = newInput("email", false)
	m.passwordInput = newInput("password", true)
	m.renameInput = newInput("title", false)
	m.emailInput.Focus()

	if w, err := watchSession(opts.Store); err != nil {
		m.log.Warn("session watcher unavailable", zap.Error(err))
	} else {
		m.watcher = w
	}
	return m
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, newFileRowDelegate(), 0, 0)
	l.Title = title
	// The header and footer are ours; keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("drawing", "drawings")
	// ESC closes modals here, it never quits.
	l.KeyMap.Quit.SetKeys("q")
	l.KeyMap.CursorUp.SetKeys(append(l.KeyMap.CursorUp.Keys(), "ctrl+p")...)
	l.KeyMap.CursorDown.SetKeys(append(l.KeyMap.CursorDown.Keys(), "ctrl+n")...)
	return l
}

func newInput(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = ""
	in.CharLimit = 256
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.restoreCmd(),
		waitForToasts(m.toasts, false),
		waitForToasts(m.signInToasts, true),
		m.watcher.waitCmd(),
	)
}

func (m *appModel) close() {
	m.toasts.Close()
	m.signInToasts.Close()
	m.watcher.Close()
}

// busy wraps a controller command so the header spinner runs until its result arrives.
func (m *appModel) busy(cmd tea.Cmd) tea.Cmd {
	m.pending++
	if m.pending == 1 {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *appModel) done() {
	if m.pending > 0 {
		m.pending--
	}
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (m appModel) restoreCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		sess, err := ctrl.Restore(ctx)
		return restoredMsg{username: sess.Username, signedIn: sess.SignedIn(), err: err}
	}
}

func (m appModel) loadCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		return loadDoneMsg{err: ctrl.Load(ctx)}
	}
}

func (m appModel) saveCmd() tea.Cmd {
	ctrl, surface, source := m.ctrl, m.surface, m.source
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		err := ctrl.SaveCurrent(ctx, surface.Snapshot(source))
		if err == nil {
			d, _ := ctrl.Document(ctrl.Current().ID())
			surface.MarkSaved(d)
		}
		return saveDoneMsg{err: err}
	}
}

func (m appModel) selectCmd(doc model.Document) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		return selectDoneMsg{id: doc.ID, err: ctrl.Select(ctx, doc)}
	}
}

func (m appModel) createCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		d, err := ctrl.CreateNew(ctx)
		return createDoneMsg{doc: d, err: err}
	}
}

func (m appModel) updateCmd(doc model.Document) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		return updateDoneMsg{id: doc.ID, err: ctrl.UpdateExisting(ctx, doc)}
	}
}

func (m appModel) removeCmd(doc model.Document) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		return removeDoneMsg{id: doc.ID, err: ctrl.Remove(ctx, doc)}
	}
}

func (m appModel) signOutCmd() tea.Cmd {
	ctrl, log := m.ctrl, m.log
	return func() tea.Msg {
		ctx, cancel := opContext()
		defer cancel()
		if err := ctrl.SignOut(ctx); err != nil {
			log.Error("sign out", zap.Error(err))
		}
		return signOutDoneMsg{}
	}
}

func (m *appModel) saveTUIState() {
	m.tuiState.ShowPreview = m.showPreview
	if d, ok := m.selectedDocument(); ok {
		m.tuiState.SelectedDocumentID = d.ID
	}
	if err := m.store.SaveTUIState(m.tuiState); err != nil {
		m.log.Warn("save tui state", zap.Error(err))
	}
}

func (m *appModel) showMinibuffer(text string) tea.Cmd {
	m.minibufferText = text
	m.flashSeq++
	seq := m.flashSeq
	return tea.Tick(notify.DefaultTTL, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

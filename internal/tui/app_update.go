package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/bamaolink/excalidraw/internal/docsession"
	"github.com/bamaolink/excalidraw/internal/model"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		// Pick up disabled flags while requests are in flight.
		m.refreshFiles(0)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.minibufferText = ""
		}
		return m, nil

	case toastsChangedMsg:
		if msg.signIn {
			return m, waitForToasts(m.signInToasts, true)
		}
		return m, waitForToasts(m.toasts, false)

	case externalEditorDoneMsg:
		return m, m.applyExternalEditorResult(msg)

	case restoredMsg:
		if msg.err != nil {
			m.log.Error("restore session", zap.Error(msg.err))
			return m, m.showMinibuffer("Session unreadable: " + msg.err.Error())
		}
		if !msg.signedIn {
			m.screen = screenSignIn
			return m, nil
		}
		m.screen = screenFiles
		m.username = msg.username
		return m, m.busy(m.loadCmd())

	case loadDoneMsg:
		m.done()
		first := !m.loaded
		m.loaded = true
		selectID := int64(0)
		if first {
			selectID = m.tuiState.SelectedDocumentID
		}
		m.refreshFiles(selectID)
		if msg.err != nil || !first {
			return m, nil
		}
		// Bring the restored document back into the editor.
		if cur := m.ctrl.Current(); cur.IsOpen() && !m.surface.State().loaded {
			if d, ok := m.ctrl.Document(cur.ID()); ok {
				return m, m.busy(m.selectCmd(d))
			}
		}
		return m, nil

	case saveDoneMsg:
		m.done()
		m.refreshFiles(m.ctrl.Current().ID())
		return m, m.reportErr("Save", msg.err)

	case selectDoneMsg:
		m.done()
		if msg.err == nil && m.surface.TakeScrollRequest() {
			m.refreshFiles(msg.id)
		} else {
			m.refreshFiles(0)
		}
		return m, m.reportErr("Open", msg.err)

	case createDoneMsg:
		m.done()
		m.refreshFiles(msg.doc.ID)
		return m, m.reportErr("Create", msg.err)

	case updateDoneMsg:
		m.done()
		m.refreshFiles(0)
		return m, m.reportErr("Rename", msg.err)

	case removeDoneMsg:
		m.done()
		if msg.err == nil {
			if st := m.surface.State(); st.loaded && st.doc.ID == msg.id {
				m.surface.Clear()
			}
		}
		m.refreshFiles(0)
		return m, m.reportErr("Delete", msg.err)

	case signInDoneMsg:
		m.done()
		m.signingIn = false
		if msg.err != nil {
			return m, nil
		}
		m.username = msg.user.Name
		m.passwordInput.SetValue("")
		m.screen = screenFiles
		m.loaded = false
		m.resizeLists()
		return m, m.busy(m.loadCmd())

	case signOutDoneMsg:
		m.done()
		if m.reload.Load() {
			m.saveTUIState()
			return m, tea.Quit
		}
		return m, nil

	case sessionChangedMsg:
		st := m.store
		return m, tea.Batch(
			func() tea.Msg {
				ctx, cancel := opContext()
				defer cancel()
				sess, err := st.Session(ctx)
				return sessionReadMsg{sess: sess, err: err}
			},
			m.watcher.waitCmd(),
		)

	case sessionReadMsg:
		if msg.err != nil {
			m.log.Warn("re-read session", zap.Error(msg.err))
			return m, nil
		}
		// Our own sign-in writes the session before its result arrives.
		if m.signingIn {
			return m, nil
		}
		signedIn := msg.sess.SignedIn()
		if signedIn != (m.screen == screenFiles) || (signedIn && msg.sess.Username != m.username) {
			m.log.Info("session changed by another process; reloading")
			m.reload.Store(true)
			m.saveTUIState()
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenSignIn {
			return m.updateSignIn(msg)
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		if m.filesList.FilterState() == list.Filtering {
			break
		}
		if msg.String() != "q" && msg.String() != "ctrl+c" {
			m.quitArmed = false
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.surface.State().dirty && !m.quitArmed {
				m.quitArmed = true
				return m, m.showMinibuffer("Unsaved changes: press q again to quit (ctrl+s saves)")
			}
			m.saveTUIState()
			return m, tea.Quit

		case "enter":
			d, ok := m.selectedDocument()
			if !ok || d.Disabled {
				return m, nil
			}
			return m, m.busy(m.selectCmd(d))

		case "n":
			return m, m.busy(m.createCmd())

		case "ctrl+s":
			if m.ctrl.Saving() {
				return m, m.showMinibuffer("Save in progress")
			}
			// Saving into an open drawing needs its scene in the editor; a blank
			// snapshot would overwrite it.
			if cur := m.ctrl.Current(); cur.IsOpen() && !m.surface.Holds(cur.ID()) {
				return m, m.showMinibuffer("Drawing not loaded yet: open it first (enter)")
			}
			return m, m.busy(m.saveCmd())

		case "e":
			cmd, err := m.openExternalEditorForScene()
			if errors.Is(err, errNothingOpen) {
				return m, m.showMinibuffer("Open a drawing first (enter)")
			}
			if err != nil {
				return m, m.showMinibuffer("Editor: " + err.Error())
			}
			return m, cmd

		case "r":
			d, ok := m.selectedDocument()
			if !ok || d.Disabled {
				return m, nil
			}
			on := true
			m.ctrl.ToggleEditing(d, &on)
			m.modal = modalRename
			m.modalForID = d.ID
			m.renameInput.SetValue(d.Title)
			m.renameInput.CursorEnd()
			m.renameInput.Width = modalBodyWidth(m.width) - 1
			m.refreshFiles(0)
			return m, m.renameInput.Focus()

		case "d":
			d, ok := m.selectedDocument()
			if !ok || d.Disabled {
				return m, nil
			}
			m.modal = modalConfirmDelete
			m.modalForID = d.ID
			m.confirmFocus = confirmFocusCancel
			return m, nil

		case "p":
			m.showPreview = !m.showPreview
			m.resizeLists()
			m.saveTUIState()
			return m, nil

		case "x":
			dismissNewest(m.toasts)
			return m, nil

		case "L":
			return m, m.busy(m.signOutCmd())

		case "?":
			m.modal = modalHelp
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.filesList, cmd = m.filesList.Update(msg)
	return m, cmd
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalHelp:
		switch msg.String() {
		case "esc", "ctrl+g", "?", "q", "enter":
			m.modal = modalNone
		}
		return m, nil

	case modalRename:
		d, ok := m.ctrl.Document(m.modalForID)
		switch msg.String() {
		case "esc", "ctrl+g":
			if ok {
				off := false
				m.ctrl.ToggleEditing(d, &off)
			}
			m.closeModal()
			return m, nil
		case "enter":
			m.closeModal()
			if !ok {
				return m, nil
			}
			m.ctrl.Rename(d, strings.TrimSpace(m.renameInput.Value()))
			d, _ = m.ctrl.Document(d.ID)
			m.refreshFiles(0)
			return m, m.busy(m.updateCmd(d))
		}
		var cmd tea.Cmd
		m.renameInput, cmd = m.renameInput.Update(msg)
		return m, cmd

	case modalConfirmDelete:
		confirm := false
		switch msg.String() {
		case "tab", "shift+tab", "left", "right", "h", "l":
			if m.confirmFocus == confirmFocusConfirm {
				m.confirmFocus = confirmFocusCancel
			} else {
				m.confirmFocus = confirmFocusConfirm
			}
			return m, nil
		case "esc", "ctrl+g", "n":
			m.closeModal()
			return m, nil
		case "y":
			confirm = true
		case "enter":
			confirm = m.confirmFocus == confirmFocusConfirm
		default:
			return m, nil
		}
		id := m.modalForID
		m.closeModal()
		if !confirm {
			return m, nil
		}
		d, ok := m.ctrl.Document(id)
		if !ok {
			return m, nil
		}
		return m, m.busy(m.removeCmd(d))
	}
	return m, nil
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.modalForID = 0
	m.renameInput.Blur()
}

// reportErr covers failures the controller did not already announce as a notification.
func (m *appModel) reportErr(op string, err error) tea.Cmd {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docsession.ErrBusy):
		return m.showMinibuffer(op + ": a request for this drawing is still running")
	case errors.Is(err, docsession.ErrSaveInFlight):
		return m.showMinibuffer(op + ": save in progress")
	case errors.Is(err, docsession.ErrNotFound):
		return m.showMinibuffer(op + ": drawing no longer exists")
	}
	m.log.Debug(strings.ToLower(op)+" failed", zap.Error(err))
	return nil
}

func (m *appModel) resizeLists() {
	// header + footer
	h := max(m.height-2, 1)
	w := m.width
	if m.previewVisible() {
		w = m.listWidth()
	}
	m.filesList.SetSize(w, h)
}

func (m appModel) previewVisible() bool { return m.showPreview && m.width >= 60 }

func (m appModel) listWidth() int { return m.width * 45 / 100 }

// refreshFiles rebuilds the list from the controller, keeping the cursor on selectID
// (or the current selection when selectID is 0).
func (m *appModel) refreshFiles(selectID int64) {
	if selectID == 0 {
		if d, ok := m.selectedDocument(); ok {
			selectID = d.ID
		}
	}
	docs := m.ctrl.Documents()
	cur := m.ctrl.Current()
	items := make([]list.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, fileItem{doc: d, current: cur.Is(d.ID)})
	}
	m.filesList.SetItems(items)
	selectListItemByID(&m.filesList, selectID)
}

func (m appModel) selectedDocument() (model.Document, bool) {
	it, ok := m.filesList.SelectedItem().(fileItem)
	if !ok {
		return model.Document{}, false
	}
	return it.doc, true
}

func selectListItemByID(l *list.Model, id int64) {
	for i, it := range l.Items() {
		if fi, ok := it.(fileItem); ok && fi.doc.ID == id {
			l.Select(i)
			return
		}
	}
}

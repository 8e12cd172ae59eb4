package tui

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/api/apitest"
	"github.com/bamaolink/excalidraw/internal/docsession"
	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/notify"
	"github.com/bamaolink/excalidraw/internal/scene"
	"github.com/bamaolink/excalidraw/internal/store"
)

// harness drives an appModel without a terminal. Controller commands are executed
// explicitly with the same constructors the key handlers use.
type harness struct {
	t      *testing.T
	m      appModel
	srv    *apitest.Server
	st     store.Store
	reload *atomic.Bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	st := store.Store{Dir: t.TempDir()}
	reload := &atomic.Bool{}
	m := newAppModel(Options{
		Store:  st,
		Client: api.New(srv.BaseURL(), st),
		Config: store.DefaultConfig(),
		Log:    zap.NewNop(),
	}, reload)
	h := &harness{t: t, m: m, srv: srv, st: st, reload: reload}
	t.Cleanup(func() { h.m.close() })
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

// signedIn stores credentials directly and runs startup: restore, then load.
func (h *harness) signedIn() *harness {
	h.t.Helper()
	if err := h.st.SetAuth(context.Background(), h.srv.Token, h.srv.Name); err != nil {
		h.t.Fatalf("set auth: %v", err)
	}
	h.exec(h.m.restoreCmd())
	if h.m.screen != screenFiles {
		h.t.Fatalf("expected files screen after restore; got %v", h.m.screen)
	}
	h.exec(h.m.loadCmd())
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	mm, cmd := h.m.Update(msg)
	h.m = mm.(appModel)
	return cmd
}

func (h *harness) exec(cmd tea.Cmd) {
	h.t.Helper()
	h.send(cmd())
}

func (h *harness) key(k string) tea.Cmd {
	h.t.Helper()
	switch k {
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "tab":
		return h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "ctrl+s":
		return h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func (h *harness) selectedDoc() model.Document {
	h.t.Helper()
	d, ok := h.m.selectedDocument()
	if !ok {
		h.t.Fatalf("expected a selected document")
	}
	return d
}

func messages(q *notify.Queue) []string {
	var out []string
	for n := range q.All() {
		out = append(out, n.Message)
	}
	return out
}

func hasMessage(q *notify.Queue, msg string) bool {
	for _, m := range messages(q) {
		if m == msg {
			return true
		}
	}
	return false
}

func TestStartup_SignedOutShowsSignIn(t *testing.T) {
	h := newHarness(t)
	h.exec(h.m.restoreCmd())

	if h.m.screen != screenSignIn {
		t.Fatalf("expected sign-in screen")
	}
	if v := h.m.View(); !strings.Contains(v, "Sign in") {
		t.Fatalf("expected sign-in form in view; got:\n%s", v)
	}
}

func TestSignIn_EmptySubmitShowsValidationToast(t *testing.T) {
	h := newHarness(t)
	h.exec(h.m.restoreCmd())

	h.key("tab")
	h.key("tab")
	if h.m.signInFocus != signInSubmit {
		t.Fatalf("expected focus on submit; got %v", h.m.signInFocus)
	}
	if cmd := h.key("enter"); cmd == nil || !h.m.signingIn {
		t.Fatalf("expected submit to start signing in")
	}
	h.exec(h.m.signInCmd())

	if h.m.signingIn || h.m.screen != screenSignIn {
		t.Fatalf("expected to stay on the sign-in screen")
	}
	if !hasMessage(h.m.signInToasts, docsession.MsgNeedCreds) {
		t.Fatalf("expected %q; got %v", docsession.MsgNeedCreds, messages(h.m.signInToasts))
	}
	if len(h.srv.Requests()) != 0 {
		t.Fatalf("expected no request to the server")
	}
}

func TestSignIn_ThenLoadAndOpen(t *testing.T) {
	h := newHarness(t)
	h.srv.Seed("plan", "notes")
	h.exec(h.m.restoreCmd())

	h.key(h.srv.Email)
	h.key("enter") // moves to password
	h.key(h.srv.Password)
	h.key("enter")
	h.exec(h.m.signInCmd())

	if h.m.screen != screenFiles || h.m.username != h.srv.Name {
		t.Fatalf("expected files screen as %q; got screen=%v user=%q", h.srv.Name, h.m.screen, h.m.username)
	}
	if h.m.passwordInput.Value() != "" {
		t.Fatalf("expected password to be cleared")
	}

	h.exec(h.m.loadCmd())
	if n := len(h.m.filesList.Items()); n != 2 {
		t.Fatalf("expected 2 drawings; got %d", n)
	}

	d := h.selectedDoc()
	h.key("enter")
	h.exec(h.m.selectCmd(d))

	if !h.m.ctrl.Current().Is(d.ID) {
		t.Fatalf("expected %d to be current; got %v", d.ID, h.m.ctrl.Current())
	}
	if st := h.m.surface.State(); !st.loaded || st.doc.ID != d.ID {
		t.Fatalf("expected surface to hold %d; got %+v", d.ID, st.doc)
	}
	if v := h.m.View(); !strings.Contains(v, d.DisplayTitle()) || !strings.Contains(v, h.srv.Name) {
		t.Fatalf("expected header with user and open drawing; got:\n%s", v)
	}
	if h.m.pending != 0 {
		t.Fatalf("expected no pending requests; got %d", h.m.pending)
	}
}

func TestStartup_RestoresOpenDocumentIntoSurface(t *testing.T) {
	h := newHarness(t)
	docs := h.srv.Seed("plan", "notes")
	if err := h.st.SetCurrentDocument(context.Background(), model.OpenDocument(docs[1].ID, docs[1].Title)); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if err := h.st.SetAuth(context.Background(), h.srv.Token, h.srv.Name); err != nil {
		t.Fatalf("set auth: %v", err)
	}

	h.exec(h.m.restoreCmd())
	cmd := h.send(h.m.loadCmd()())
	if cmd == nil {
		t.Fatalf("expected the restored document to be reopened")
	}
	h.exec(h.m.selectCmd(docs[1]))

	if st := h.m.surface.State(); !st.loaded || st.doc.ID != docs[1].ID {
		t.Fatalf("expected surface to hold %d; got %+v", docs[1].ID, st.doc)
	}
}

func TestSave_CreatesWhenNothingOpen(t *testing.T) {
	h := newHarness(t).signedIn()

	sc, err := scene.Decode(`{"elements":[{"type":"ellipse"}],"appState":{"zoom":{"value":2}}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h.m.surface.Replace(sc)
	h.key("ctrl+s")
	h.exec(h.m.saveCmd())

	docs := h.srv.Documents()
	if len(docs) != 1 {
		t.Fatalf("expected one document on the server; got %d", len(docs))
	}
	if !h.m.ctrl.Current().Is(docs[0].ID) {
		t.Fatalf("expected the new document to be current")
	}
	if h.m.surface.State().dirty {
		t.Fatalf("expected surface to be clean after save")
	}
	if !h.m.surface.Holds(docs[0].ID) {
		t.Fatalf("expected surface to be bound to the created document")
	}
	if !hasMessage(h.m.toasts, docsession.MsgSaved) {
		t.Fatalf("expected %q; got %v", docsession.MsgSaved, messages(h.m.toasts))
	}
	stored, err := scene.Decode(docs[0].Content)
	if err != nil || len(stored.Elements) != 1 {
		t.Fatalf("unexpected stored scene: %v %+v", err, stored)
	}
	if _, ok := stored.AppState["zoom"]; ok {
		t.Fatalf("expected session-only appState to be dropped")
	}
}

func TestSave_RefusesWhenOpenDrawingNotLoaded(t *testing.T) {
	h := newHarness(t)
	docs := h.srv.Seed("plan")
	const content = `{"type":"excalidraw","version":2,"elements":[{"type":"rectangle"}],"appState":{},"files":{}}`
	h.srv.SetContent(docs[0].ID, content)
	if err := h.st.SetCurrentDocument(context.Background(), model.OpenDocument(docs[0].ID, docs[0].Title)); err != nil {
		t.Fatalf("set current: %v", err)
	}
	h.srv.FailStatus("/excalidraw/all", http.StatusBadGateway)
	h.signedIn()

	if !h.m.ctrl.Current().Is(docs[0].ID) {
		t.Fatalf("expected restored current to survive a failed load")
	}
	h.key("ctrl+s")
	if h.m.pending != 0 {
		t.Fatalf("expected no save to start")
	}
	if h.m.minibufferText == "" {
		t.Fatalf("expected a minibuffer message")
	}

	// The controller refuses on its own as well.
	h.exec(h.m.saveCmd())
	if got := h.srv.Documents()[0].Content; got != content {
		t.Fatalf("expected stored drawing untouched; got %s", got)
	}
	for _, r := range h.srv.Requests() {
		if strings.HasPrefix(r.Path, "/excalidraw/update") {
			t.Fatalf("unexpected update request %s", r.Path)
		}
	}
}

func TestCreateNew_OpensAndSelects(t *testing.T) {
	h := newHarness(t).signedIn()
	h.srv.Seed("old")
	h.exec(h.m.loadCmd())

	h.key("n")
	h.exec(h.m.createCmd())

	items := h.m.filesList.Items()
	if len(items) != 2 || items[0].(fileItem).doc.Title != docsession.NewDocumentTitle {
		t.Fatalf("expected new drawing first; got %#v", items)
	}
	if d := h.selectedDoc(); d.Title != docsession.NewDocumentTitle {
		t.Fatalf("expected cursor on the new drawing; got %q", d.Title)
	}
	if !h.m.surface.State().loaded {
		t.Fatalf("expected the new drawing to be open")
	}
	if !hasMessage(h.m.toasts, docsession.MsgCreated) {
		t.Fatalf("expected %q; got %v", docsession.MsgCreated, messages(h.m.toasts))
	}
}

func TestOpen_CorruptKeepsCurrent(t *testing.T) {
	h := newHarness(t)
	docs := h.srv.Seed("good", "broken")
	h.srv.SetContent(docs[1].ID, "not json")
	h.signedIn()

	good, _ := h.m.ctrl.Document(docs[0].ID)
	h.exec(h.m.selectCmd(good))
	broken, _ := h.m.ctrl.Document(docs[1].ID)
	h.exec(h.m.selectCmd(broken))

	if !h.m.ctrl.Current().Is(docs[0].ID) {
		t.Fatalf("expected current to stay on %d; got %v", docs[0].ID, h.m.ctrl.Current())
	}
	if st := h.m.surface.State(); st.doc.ID != docs[0].ID {
		t.Fatalf("expected surface to keep %d; got %d", docs[0].ID, st.doc.ID)
	}
	if !hasMessage(h.m.toasts, docsession.MsgCorrupt) {
		t.Fatalf("expected %q; got %v", docsession.MsgCorrupt, messages(h.m.toasts))
	}
}

func TestRename_Flow(t *testing.T) {
	h := newHarness(t)
	h.srv.Seed("draft")
	h.signedIn()

	h.key("r")
	if h.m.modal != modalRename {
		t.Fatalf("expected rename modal")
	}
	d := h.selectedDoc()
	if !d.IsEditing {
		t.Fatalf("expected the row to be marked editing")
	}

	h.m.renameInput.SetValue("  Roadmap ")
	h.key("enter")
	if h.m.modal != modalNone {
		t.Fatalf("expected modal to close")
	}
	d, _ = h.m.ctrl.Document(d.ID)
	h.exec(h.m.updateCmd(d))

	d = h.selectedDoc()
	if d.Title != "Roadmap" || d.IsEditing || d.Disabled {
		t.Fatalf("unexpected row after rename: %+v", d)
	}
	if h.srv.Documents()[0].Title != "Roadmap" {
		t.Fatalf("expected server title to change")
	}
	if !hasMessage(h.m.toasts, docsession.MsgUpdated) {
		t.Fatalf("expected %q; got %v", docsession.MsgUpdated, messages(h.m.toasts))
	}
}

func TestRename_EscCancels(t *testing.T) {
	h := newHarness(t)
	h.srv.Seed("draft")
	h.signedIn()

	h.key("r")
	h.m.renameInput.SetValue("ignored")
	h.key("esc")

	d := h.selectedDoc()
	if h.m.modal != modalNone || d.IsEditing || d.Title != "draft" {
		t.Fatalf("expected rename to be cancelled; modal=%v doc=%+v", h.m.modal, d)
	}
	for _, r := range h.srv.Requests() {
		if strings.Contains(r.Path, "/update/") {
			t.Fatalf("expected no update request")
		}
	}
}

func TestDelete_ConfirmFlow(t *testing.T) {
	h := newHarness(t)
	docs := h.srv.Seed("keep", "drop")
	h.signedIn()

	drop, _ := h.m.ctrl.Document(docs[1].ID)
	h.exec(h.m.selectCmd(drop))
	selectListItemByID(&h.m.filesList, drop.ID)

	// Enter on the default (cancel) button does nothing.
	h.key("d")
	if h.m.modal != modalConfirmDelete || h.m.confirmFocus != confirmFocusCancel {
		t.Fatalf("expected delete confirmation focused on cancel")
	}
	if cmd := h.key("enter"); cmd != nil || h.m.modal != modalNone {
		t.Fatalf("expected cancel without a request")
	}

	h.key("d")
	if !strings.Contains(h.m.View(), "Delete drawing") {
		t.Fatalf("expected confirmation in view")
	}
	h.key("y")
	h.exec(h.m.removeCmd(drop))

	if n := len(h.m.filesList.Items()); n != 1 {
		t.Fatalf("expected one drawing left; got %d", n)
	}
	if h.m.ctrl.Current().IsOpen() || h.m.surface.State().loaded {
		t.Fatalf("expected the deleted open drawing to be closed")
	}
	if !hasMessage(h.m.toasts, docsession.MsgDeleted) {
		t.Fatalf("expected %q; got %v", docsession.MsgDeleted, messages(h.m.toasts))
	}
}

func TestSignOut_ReloadsEvenWhenServerFails(t *testing.T) {
	h := newHarness(t).signedIn()
	h.srv.FailStatus("/user/signout", 500)

	h.key("L")
	cmd := h.send(h.m.signOutCmd()())

	if !h.reload.Load() {
		t.Fatalf("expected reload to be requested")
	}
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	sess, err := h.st.Session(context.Background())
	if err != nil || sess.SignedIn() {
		t.Fatalf("expected local session cleared; err=%v sess=%+v", err, sess)
	}
}

func TestSessionChangedElsewhere_Reloads(t *testing.T) {
	h := newHarness(t).signedIn()

	if cmd := h.send(sessionReadMsg{sess: model.Session{Token: h.srv.Token, HasToken: true, Username: h.srv.Name, HasUsername: true}}); cmd != nil || h.reload.Load() {
		t.Fatalf("expected no reload for an unchanged session")
	}
	h.send(sessionReadMsg{sess: model.Session{}})
	if !h.reload.Load() {
		t.Fatalf("expected reload after sign-out elsewhere")
	}
}

func TestQuit_WarnsOnUnsavedChanges(t *testing.T) {
	h := newHarness(t).signedIn()
	h.m.surface.Replace(scene.Empty("test"))

	h.key("q")
	if !h.m.quitArmed || h.m.minibufferText == "" {
		t.Fatalf("expected an unsaved-changes warning first")
	}
	cmd := h.key("q")
	if cmd == nil {
		t.Fatalf("expected quit on second q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestPreviewToggle_Persists(t *testing.T) {
	h := newHarness(t).signedIn()
	before := h.m.showPreview

	h.key("p")

	st, err := h.st.LoadTUIState()
	if err != nil {
		t.Fatalf("load tui state: %v", err)
	}
	if st.ShowPreview == before {
		t.Fatalf("expected showPreview=%v to be persisted", !before)
	}
}

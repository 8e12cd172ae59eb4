// Package docsession owns the client's document collection and the open document, and
// drives every remote mutation of them.
//
// A Controller is safe for concurrent use. Its lock is never held across a network call,
// so results are applied in completion order; every mutation is keyed by document id.
package docsession

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/logging"
	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/notify"
	"github.com/bamaolink/excalidraw/internal/scene"
)

// User-facing notification texts.
const (
	MsgSaved     = "保存成功"
	MsgCreated   = "新增成功"
	MsgDeleted   = "删除成功"
	MsgUpdated   = "编辑成功"
	MsgFallback  = "出现错误"
	MsgNetwork   = "网络错误"
	MsgCorrupt   = "文件内容已损坏"
	MsgNeedCreds = "请输入邮箱和密码"
)

// NewDocumentTitle is the title given to documents made by CreateNew.
const NewDocumentTitle = "New File"

var (
	// ErrSaveInFlight is returned by Save while another Save has not completed.
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrBusy is returned when a document already has a request in flight.
	ErrBusy = errors.New("document is busy")
	// ErrNotFound is returned for ids that are not in the collection.
	ErrNotFound = errors.New("document not found")
	// ErrNotSignedIn is returned when an operation needs a stored token and there is none.
	ErrNotSignedIn = errors.New("not signed in")
)

// SessionStore is the durable session the controller reads and writes.
type SessionStore interface {
	Session(ctx context.Context) (model.Session, error)
	SetAuth(ctx context.Context, token, username string) error
	ClearAuth(ctx context.Context) error
	SetCurrentDocument(ctx context.Context, cur model.Current) error
}

// Editor is the drawing surface a selected document is loaded into.
type Editor interface {
	LoadScene(doc model.Document, s scene.Scene)
	ScrollToContent(s scene.Scene)
}

type Config struct {
	Repo    api.Repository
	Session SessionStore
	Toasts  *notify.Queue
	// Editor may be nil; selection then only updates state.
	Editor Editor
	// Reload is called after sign-out to rebuild the UI from a clean session.
	Reload func()
	Log    *zap.Logger
	// Source is stamped into scenes written by this client.
	Source string
}

type Controller struct {
	repo    api.Repository
	session SessionStore
	toasts  *notify.Queue
	editor  Editor
	reload  func()
	log     *zap.Logger
	source  string

	mu       sync.Mutex
	docs     []model.Document
	current  model.Current
	saving   bool
	inflight map[int64]bool
}

func New(cfg Config) *Controller {
	toasts := cfg.Toasts
	if toasts == nil {
		toasts = notify.New()
	}
	return &Controller{
		repo:     cfg.Repo,
		session:  cfg.Session,
		toasts:   toasts,
		editor:   cfg.Editor,
		reload:   cfg.Reload,
		log:      logging.OrNop(cfg.Log).Named("docsession"),
		source:   cfg.Source,
		inflight: map[int64]bool{},
	}
}

func (c *Controller) Toasts() *notify.Queue { return c.toasts }

// SetEditor swaps the drawing surface. Nil detaches it.
func (c *Controller) SetEditor(e Editor) {
	c.mu.Lock()
	c.editor = e
	c.mu.Unlock()
}

// Restore reads the last open document from the session store. Call it before Load:
// until Load confirms it, the restored document may not be in the collection.
func (c *Controller) Restore(ctx context.Context) (model.Session, error) {
	if c.session == nil {
		return model.Session{}, nil
	}
	sess, err := c.session.Session(ctx)
	if err != nil {
		return model.Session{}, fmt.Errorf("read session: %w", err)
	}
	c.mu.Lock()
	c.current = sess.Current
	c.mu.Unlock()
	return sess, nil
}

func (c *Controller) Documents() []model.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.docs)
}

func (c *Controller) Document(id int64) (model.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return model.Document{}, false
	}
	return c.docs[i], true
}

func (c *Controller) Current() model.Current {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Saving reports whether a Save is in flight.
func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// Load replaces the collection with the server's list. On failure the collection is
// emptied and an error notification is pushed.
func (c *Controller) Load(ctx context.Context) error {
	env, err := c.repo.ListDocuments(ctx)
	if err == nil {
		err = env.Err()
	}

	c.mu.Lock()
	if err != nil {
		// A restored current stays so a later Load can confirm it; Save refuses to
		// write to it meanwhile.
		c.docs = nil
		c.mu.Unlock()
		return c.fail("load", err)
	}

	docs := make([]model.Document, 0, len(env.Data))
	seen := make(map[int64]bool, len(env.Data))
	for _, d := range env.Data {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		d.IsEditing = false
		d.Disabled = false
		docs = append(docs, d)
	}
	c.docs = docs

	cur := c.current
	dropped := false
	if cur.IsOpen() {
		if i := c.indexLocked(cur.ID()); i < 0 {
			c.current = model.NoDocument()
			dropped = true
		} else {
			c.current = cur.WithTitle(c.docs[i].Title)
		}
	}
	next := c.current
	c.mu.Unlock()

	c.log.Info("documents loaded", zap.Int("count", len(docs)))
	if dropped {
		c.log.Info("restored document no longer exists", zap.Int64("id", cur.ID()))
	}
	if next != cur {
		c.persistCurrent(ctx, next)
	}
	return nil
}

// Save writes title/content to target: an update when a document is open, otherwise a
// create whose result is appended. Either way target becomes the current document.
func (c *Controller) Save(ctx context.Context, target model.Current, title, content string) error {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	if target.IsOpen() {
		// Never overwrite a document we have not loaded, e.g. a restored current
		// whose list failed to load.
		if c.indexLocked(target.ID()) < 0 {
			c.mu.Unlock()
			return fmt.Errorf("save %d: %w", target.ID(), ErrNotFound)
		}
		if err := c.acquireLocked(target.ID()); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.saving = true
	c.mu.Unlock()

	var (
		env api.Envelope[model.Document]
		err error
	)
	if target.IsOpen() {
		env, err = c.repo.UpdateDocument(ctx, target.ID(), title, content)
	} else {
		env, err = c.repo.CreateDocument(ctx, title, content)
	}
	if err == nil {
		err = env.Err()
	}

	c.mu.Lock()
	c.saving = false
	if target.IsOpen() {
		c.releaseLocked(target.ID())
	}
	if err != nil {
		c.mu.Unlock()
		return c.fail("save", err)
	}
	saved := env.Data
	if i := c.indexLocked(saved.ID); i >= 0 {
		c.docs[i] = saved
	} else if target.IsOpen() {
		// Update of a document that vanished locally: a concurrent Remove won.
		c.mu.Unlock()
		c.log.Warn("saved document no longer in collection", zap.Int64("id", saved.ID))
		c.toasts.Success(MsgSaved)
		return nil
	} else {
		c.docs = append(c.docs, saved)
	}
	next := model.OpenDocument(saved.ID, saved.Title)
	c.current = next
	c.mu.Unlock()

	c.persistCurrent(ctx, next)
	c.log.Info("document saved", zap.Int64("id", saved.ID), zap.Bool("created", !target.IsOpen()))
	c.toasts.Success(MsgSaved)
	return nil
}

// SaveCurrent saves s into the current document (or a new one when none is open),
// keeping only the persisted parts of the scene.
func (c *Controller) SaveCurrent(ctx context.Context, s scene.Scene) error {
	content, err := scene.Encode(s.ForSave(c.source))
	if err != nil {
		return err
	}
	cur := c.Current()
	return c.Save(ctx, cur, cur.Title(), content)
}

// Select opens doc in the editor. A stored payload that does not decode is reported as
// *scene.DecodeError and leaves the current document unchanged.
func (c *Controller) Select(ctx context.Context, doc model.Document) error {
	c.mu.Lock()
	i := c.indexLocked(doc.ID)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("select %d: %w", doc.ID, ErrNotFound)
	}
	d := c.docs[i]
	editor := c.editor
	c.mu.Unlock()

	sc, err := scene.Decode(d.Content)
	if err != nil {
		c.log.Warn("stored scene does not decode", zap.Int64("id", d.ID), zap.Error(err))
		c.toasts.Error(MsgCorrupt)
		return err
	}

	next := model.OpenDocument(d.ID, d.Title)
	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
	c.persistCurrent(ctx, next)

	if editor != nil {
		editor.LoadScene(d, sc)
		editor.ScrollToContent(sc)
	}
	return nil
}

// CreateNew creates an empty document, puts it first in the collection and opens it.
func (c *Controller) CreateNew(ctx context.Context) (model.Document, error) {
	content, err := scene.Encode(scene.Empty(c.source))
	if err != nil {
		return model.Document{}, err
	}
	env, err := c.repo.CreateDocument(ctx, NewDocumentTitle, content)
	if err == nil {
		err = env.Err()
	}
	if err != nil {
		return model.Document{}, c.fail("create", err)
	}

	d := env.Data
	c.mu.Lock()
	if i := c.indexLocked(d.ID); i >= 0 {
		c.docs[i] = d
	} else {
		c.docs = slices.Insert(c.docs, 0, d)
	}
	c.mu.Unlock()

	c.log.Info("document created", zap.Int64("id", d.ID))
	if err := c.Select(ctx, d); err != nil {
		return d, err
	}
	c.toasts.Success(MsgCreated)
	return d, nil
}

// Rename changes the local title only; UpdateExisting or Save persists it.
func (c *Controller) Rename(doc model.Document, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(doc.ID); i >= 0 {
		c.docs[i].Title = title
	}
}

// ToggleEditing flips the editing flag of doc, or sets it to *value when value is non-nil.
func (c *Controller) ToggleEditing(doc model.Document, value *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(doc.ID); i >= 0 {
		c.docs[i].IsEditing = flip(c.docs[i].IsEditing, value)
	}
}

// ToggleDisabled flips the disabled flag of doc, or sets it to *value when value is non-nil.
func (c *Controller) ToggleDisabled(doc model.Document, value *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(doc.ID); i >= 0 {
		c.docs[i].Disabled = flip(c.docs[i].Disabled, value)
	}
}

// UpdateExisting persists the collection's copy of doc. The document is disabled for the
// round trip; a failure leaves it unchanged and still editing.
func (c *Controller) UpdateExisting(ctx context.Context, doc model.Document) error {
	c.mu.Lock()
	i := c.indexLocked(doc.ID)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("update %d: %w", doc.ID, ErrNotFound)
	}
	if err := c.acquireLocked(doc.ID); err != nil {
		c.mu.Unlock()
		return err
	}
	d := c.docs[i]
	c.mu.Unlock()

	env, err := c.repo.UpdateDocument(ctx, d.ID, d.Title, d.Content)
	if err == nil {
		err = env.Err()
	}

	c.mu.Lock()
	c.releaseLocked(d.ID)
	if err != nil {
		c.mu.Unlock()
		return c.fail("update", err)
	}
	var next model.Current
	changed := false
	if j := c.indexLocked(d.ID); j >= 0 {
		updated := env.Data
		updated.IsEditing = false
		updated.Disabled = false
		c.docs[j] = updated
		if c.current.Is(d.ID) {
			next = c.current.WithTitle(updated.Title)
			changed = next != c.current
			c.current = next
		}
	}
	c.mu.Unlock()

	if changed {
		c.persistCurrent(ctx, next)
	}
	c.log.Info("document updated", zap.Int64("id", d.ID))
	c.toasts.Success(MsgUpdated)
	return nil
}

// Remove deletes doc remotely and then locally. Removing the open document closes it.
func (c *Controller) Remove(ctx context.Context, doc model.Document) error {
	c.mu.Lock()
	if c.indexLocked(doc.ID) < 0 {
		c.mu.Unlock()
		return fmt.Errorf("remove %d: %w", doc.ID, ErrNotFound)
	}
	if err := c.acquireLocked(doc.ID); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	env, err := c.repo.DeleteDocument(ctx, doc.ID)
	if err == nil {
		err = env.Err()
	}

	c.mu.Lock()
	c.releaseLocked(doc.ID)
	if err != nil {
		c.mu.Unlock()
		return c.fail("remove", err)
	}
	c.docs = slices.DeleteFunc(c.docs, func(d model.Document) bool { return d.ID == doc.ID })
	closed := c.current.Is(doc.ID)
	if closed {
		c.current = model.NoDocument()
	}
	c.mu.Unlock()

	if closed {
		c.persistCurrent(ctx, model.NoDocument())
	}
	c.log.Info("document removed", zap.Int64("id", doc.ID), zap.Bool("was_current", closed))
	c.toasts.Success(MsgDeleted)
	return nil
}

// SignOut notifies the server on a best-effort basis, then always clears the stored
// credentials and reloads.
func (c *Controller) SignOut(ctx context.Context) error {
	if c.repo != nil {
		env, err := c.repo.SignOut(ctx)
		if err == nil {
			err = env.Err()
		}
		if err != nil {
			c.log.Info("remote sign-out failed; clearing local session anyway", zap.Error(err))
		}
	}

	var clearErr error
	if c.session != nil {
		if err := c.session.ClearAuth(ctx); err != nil {
			c.log.Error("clear auth", zap.Error(err))
			clearErr = fmt.Errorf("clear auth: %w", err)
		}
	}
	if c.reload != nil {
		c.reload()
	}
	return clearErr
}

// fail reports err through the notification queue and returns it. Application errors
// surface the server message; anything else is shown as a network error.
func (c *Controller) fail(op string, err error) error {
	var ae *api.AppError
	if errors.As(err, &ae) {
		msg := ae.Msg
		if msg == "" {
			msg = MsgFallback
		}
		c.log.Info(op+" rejected", zap.Int("code", ae.Code), zap.String("msg", ae.Msg))
		c.toasts.Error(msg)
		return err
	}
	c.log.Warn(op+" failed", zap.Error(err))
	c.toasts.Error(MsgNetwork)
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Controller) persistCurrent(ctx context.Context, cur model.Current) {
	if c.session == nil {
		return
	}
	if err := c.session.SetCurrentDocument(ctx, cur); err != nil {
		c.log.Warn("persist current document", zap.Int64("id", cur.ID()), zap.Error(err))
	}
}

func (c *Controller) indexLocked(id int64) int {
	return slices.IndexFunc(c.docs, func(d model.Document) bool { return d.ID == id })
}

// acquireLocked marks id as having a request in flight.
func (c *Controller) acquireLocked(id int64) error {
	if c.inflight[id] {
		return fmt.Errorf("document %d: %w", id, ErrBusy)
	}
	if i := c.indexLocked(id); i >= 0 {
		if c.docs[i].Disabled {
			return fmt.Errorf("document %d: %w", id, ErrBusy)
		}
		c.docs[i].Disabled = true
	}
	c.inflight[id] = true
	return nil
}

func (c *Controller) releaseLocked(id int64) {
	delete(c.inflight, id)
	if i := c.indexLocked(id); i >= 0 {
		c.docs[i].Disabled = false
	}
}

func flip(cur bool, value *bool) bool {
	if value != nil {
		return *value
	}
	return !cur
}

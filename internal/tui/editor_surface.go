package tui

import (
	"sync"

	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/scene"
)

// editorSurface is the TUI's drawing surface. The controller writes to it from command
// goroutines; Update reads it after the matching result message arrives.
type editorSurface struct {
	mu     sync.Mutex
	doc    model.Document
	scene  scene.Scene
	loaded bool
	dirty  bool
	// scrollReq is set when the controller asks to bring the content into view.
	scrollReq bool
	// rev changes whenever the scene does.
	rev int
}

func (e *editorSurface) LoadScene(doc model.Document, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc, e.scene, e.loaded, e.dirty = doc, s, true, false
	e.rev++
}

func (e *editorSurface) ScrollToContent(scene.Scene) {
	e.mu.Lock()
	e.scrollReq = true
	e.mu.Unlock()
}

// TakeScrollRequest reports and clears a pending scroll-to-content request.
func (e *editorSurface) TakeScrollRequest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	req := e.scrollReq
	e.scrollReq = false
	return req
}

// Replace swaps the scene after a local edit and marks it unsaved.
func (e *editorSurface) Replace(s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene, e.dirty, e.loaded = s, true, true
	e.rev++
}

// MarkSaved clears the dirty flag and binds the surface to the document the scene
// was saved into (a zero doc keeps the current binding).
func (e *editorSurface) MarkSaved(doc model.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = false
	if doc.ID > 0 {
		e.doc, e.loaded = doc, true
	}
}

// Holds reports whether the surface has document id loaded.
func (e *editorSurface) Holds(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded && e.doc.ID == id
}

// Clear detaches the surface from any document (the open one was deleted).
func (e *editorSurface) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc, e.scene, e.loaded, e.dirty = model.Document{}, scene.Scene{}, false, false
	e.rev++
}

// Snapshot returns the scene to save; a blank scene when nothing is loaded.
func (e *editorSurface) Snapshot(source string) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return scene.Empty(source)
	}
	return e.scene
}

type surfaceState struct {
	doc    model.Document
	scene  scene.Scene
	loaded bool
	dirty  bool
	rev    int
}

func (e *editorSurface) State() surfaceState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return surfaceState{doc: e.doc, scene: e.scene, loaded: e.loaded, dirty: e.dirty, rev: e.rev}
}

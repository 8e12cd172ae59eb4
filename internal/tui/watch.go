package tui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/bamaolink/excalidraw/internal/store"
)

// Writes arrive in bursts (db + wal); wait for them to settle before re-reading.
const sessionDebounce = 150 * time.Millisecond

// sessionWatcher reports writes to the session db made by other processes, e.g.
// `bamao logout` in another terminal.
type sessionWatcher struct {
	w     *fsnotify.Watcher
	base  string
	fired chan struct{}
	done  chan struct{}
}

func watchSession(st store.Store) (*sessionWatcher, error) {
	if err := st.Ensure(); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: the WAL file comes and goes with connections.
	if err := w.Add(st.Dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	sw := &sessionWatcher{
		w:     w,
		base:  filepath.Base(st.Path()),
		fired: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

func (sw *sessionWatcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-sw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if !sw.relevant(ev) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(sessionDebounce, func() {
				select {
				case sw.fired <- struct{}{}:
				default:
				}
			})
		case _, ok := <-sw.w.Errors:
			if !ok {
				return
			}
		}
	}
}

// relevant keeps writes to the db and its WAL. Opening and closing a connection only
// creates and removes sidecar files, so reading the session never retriggers the watcher.
func (sw *sessionWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(ev.Name)
	return name == sw.base || name == sw.base+"-wal"
}

// waitCmd blocks until the next settled change. A nil watcher never fires.
func (sw *sessionWatcher) waitCmd() tea.Cmd {
	if sw == nil {
		return nil
	}
	fired, done := sw.fired, sw.done
	return func() tea.Msg {
		select {
		case <-fired:
			return sessionChangedMsg{}
		case <-done:
			return nil
		}
	}
}

func (sw *sessionWatcher) Close() {
	if sw == nil {
		return
	}
	select {
	case <-sw.done:
		return
	default:
	}
	close(sw.done)
	_ = sw.w.Close()
}

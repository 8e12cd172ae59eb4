package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamaolink/excalidraw/internal/scene"
)

var errNothingOpen = errors.New("no drawing is open")

func externalEditorName() string {
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("EDITOR")); v != "" {
		return v
	}
	return "vi"
}

// openExternalEditorForScene writes the open drawing's scene to a temp file and hands the
// terminal to $VISUAL/$EDITOR. The result comes back as externalEditorDoneMsg.
func (m *appModel) openExternalEditorForScene() (tea.Cmd, error) {
	st := m.surface.State()
	if !st.loaded {
		return nil, errNothingOpen
	}
	b, err := json.MarshalIndent(st.scene, "", "  ")
	if err != nil {
		return nil, err
	}

	args := splitShellWords(externalEditorName())
	if len(args) == 0 {
		args = []string{"vi"}
	}

	f, err := os.CreateTemp("", "bamao-scene-*.excalidraw")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	_ = f.Close()

	m.externalEditorPath = path
	m.externalEditorBefore = string(b)

	cmd := exec.Command(args[0], append(args[1:], path)...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return externalEditorDoneMsg{err: err}
	}), nil
}

// applyExternalEditorResult loads the edited scene into the surface. Content that does not
// parse is discarded and the surface keeps its previous scene.
func (m *appModel) applyExternalEditorResult(msg externalEditorDoneMsg) tea.Cmd {
	path := m.externalEditorPath
	before := m.externalEditorBefore

	m.externalEditorPath = ""
	m.externalEditorBefore = ""
	if strings.TrimSpace(path) == "" {
		return nil
	}
	defer func() { _ = os.Remove(path) }()

	if msg.err != nil {
		return m.showMinibuffer("Editor failed: " + msg.err.Error())
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return m.showMinibuffer("Editor read failed: " + err.Error())
	}
	after := string(b)
	if strings.TrimSpace(after) == strings.TrimSpace(before) {
		return m.showMinibuffer(fmt.Sprintf("No changes from %s", externalEditorName()))
	}

	sc, err := scene.Decode(after)
	if err != nil {
		return m.showMinibuffer("Edit discarded: " + err.Error())
	}
	m.surface.Replace(sc)
	return m.showMinibuffer(fmt.Sprintf("Updated from %s (ctrl+s to save)", externalEditorName()))
}

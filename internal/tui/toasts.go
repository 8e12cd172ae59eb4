package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/bamaolink/excalidraw/internal/notify"
)

// maxToastsShown caps the stack; older entries stay queued until they expire.
const maxToastsShown = 4

// waitForToasts blocks until q changes. Re-arm it after every toastsChangedMsg.
func waitForToasts(q *notify.Queue, signIn bool) tea.Cmd {
	ch := q.Changes()
	return func() tea.Msg {
		<-ch
		return toastsChangedMsg{signIn: signIn}
	}
}

// dismissNewest removes the most recent notification, if any.
func dismissNewest(q *notify.Queue) bool {
	all := q.Snapshot()
	if len(all) == 0 {
		return false
	}
	return q.Remove(all[len(all)-1].ID)
}

func toastStyle(k notify.Kind) lipgloss.Style {
	bg := colorSuccessBg
	if k == notify.Error {
		bg = colorErrorBg
	}
	return lipgloss.NewStyle().
		Foreground(colorToastFg).
		Background(bg).
		Padding(0, 1)
}

// renderToasts stacks the newest notifications, right-aligned within width.
func renderToasts(q *notify.Queue, width int) string {
	all := q.Snapshot()
	if len(all) == 0 {
		return ""
	}
	if len(all) > maxToastsShown {
		all = all[len(all)-maxToastsShown:]
	}
	maxW := width - 4
	if maxW < 8 {
		maxW = 8
	}
	lines := make([]string, 0, len(all))
	for _, n := range all {
		glyph := "✓ "
		if n.Kind == notify.Error {
			glyph = "✗ "
		}
		txt := glyph + n.Message
		if xansi.StringWidth(txt) > maxW {
			txt = xansi.Truncate(txt, maxW, "…")
		}
		lines = append(lines, toastStyle(n.Kind).Render(txt))
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, strings.Join(lines, "\n"))
}

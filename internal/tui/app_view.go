package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/scene"
)

const filesFooterHelp = "enter open  n new  ctrl+s save  e edit  r rename  d delete  / filter  p preview  ? help  q quit"

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var body string
	var q = m.toasts
	if m.screen == screenSignIn {
		body = m.viewSignIn()
		q = m.signInToasts
	} else {
		body = m.viewFiles()
	}

	switch m.modal {
	case modalRename:
		body = m.placeCentered(m.renderRenameModal())
	case modalConfirmDelete:
		body = m.placeCentered(m.renderDeleteModal())
	case modalHelp:
		body = m.placeCentered(m.renderHelpModal())
	}

	bodyH := max(m.height-2, 1)
	body = overlayBottom(fitHeight(body, bodyH), renderToasts(q, m.width))

	return strings.Join([]string{m.viewHeader(), body, m.viewFooter()}, "\n")
}

func (m appModel) placeCentered(s string) string {
	return lipgloss.Place(m.width, max(m.height-2, 1), lipgloss.Center, lipgloss.Center, s)
}

func (m appModel) viewHeader() string {
	parts := []string{"bamao"}
	if m.screen == screenFiles {
		parts = append(parts, emptyAsDash(m.username))
		cur := m.ctrl.Current()
		title := "no drawing open"
		if cur.IsOpen() {
			title = model.Document{Title: cur.Title()}.DisplayTitle()
			if m.surface.State().dirty {
				title += " •"
			}
		}
		parts = append(parts, title)
	}
	line := strings.Join(parts, "  ·  ")
	if m.pending > 0 {
		line += "  " + m.spinner.View()
	}
	return fitWidth(styleHeader().Render(line), m.width)
}

func (m appModel) viewFooter() string {
	txt := m.minibufferText
	if txt == "" {
		if m.screen == screenSignIn {
			txt = "tab next field  enter submit  ctrl+c quit"
		} else {
			txt = filesFooterHelp
		}
		return fitWidth(styleMuted().Render(txt), m.width)
	}
	return fitWidth(txt, m.width)
}

func (m appModel) viewFiles() string {
	var left string
	if len(m.filesList.Items()) == 0 {
		msg := "No drawings yet. Press n to create one."
		if !m.loaded {
			msg = "Loading…"
		}
		left = styleMuted().Padding(1, 2).Render(msg)
	} else {
		left = m.filesList.View()
	}
	if !m.previewVisible() {
		return left
	}

	listW := m.listWidth()
	rightW := m.width - listW - 1
	h := max(m.height-2, 1)
	left = lipgloss.NewStyle().Width(listW).MaxWidth(listW).Render(left)
	sep := faintIfDark(lipgloss.NewStyle().Foreground(colorModalBorder)).
		Render(strings.TrimRight(strings.Repeat("│\n", h), "\n"))
	right := lipgloss.NewStyle().Width(rightW).MaxWidth(rightW).Padding(0, 1).Render(m.viewPreview(rightW - 2))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func (m appModel) viewPreview(width int) string {
	d, ok := m.selectedDocument()
	if !ok {
		return styleMuted().Render("Nothing selected.")
	}
	st := m.surface.State()
	var live *scene.Scene
	key := fmt.Sprintf("%d|%s|%d|%d", d.ID, d.UpdatedAt, len(d.Content), width)
	if st.loaded && st.doc.ID == d.ID && m.ctrl.Current().Is(d.ID) {
		live = &st.scene
		key += fmt.Sprintf("|live:%d:%t", st.rev, st.dirty)
	}
	return m.previewCache.get(key, func() string {
		return renderMarkdown(previewMarkdown(d, live, st.dirty), width)
	})
}

func emptyAsDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func fitWidth(s string, w int) string {
	if w <= 0 || xansi.StringWidth(s) <= w {
		return s
	}
	return xansi.Truncate(s, w, "…")
}

// fitHeight pads or cuts s to exactly h lines.
func fitHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// overlayBottom replaces the last lines of body with overlay.
func overlayBottom(body, overlay string) string {
	if overlay == "" {
		return body
	}
	bl := strings.Split(body, "\n")
	ol := strings.Split(overlay, "\n")
	if len(ol) > len(bl) {
		ol = ol[len(ol)-len(bl):]
	}
	copy(bl[len(bl)-len(ol):], ol)
	return strings.Join(bl, "\n")
}

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/bamaolink/excalidraw/internal/model"
)

type fileItem struct {
	doc     model.Document
	current bool
}

func (it fileItem) FilterValue() string { return it.doc.DisplayTitle() }
func (it fileItem) Title() string       { return it.doc.DisplayTitle() }

// fileRowDelegate renders one drawing per line:
//
//	● Floor plan                      2024-05-01 10:12
type fileRowDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	disabled lipgloss.Style
}

func newFileRowDelegate() fileRowDelegate {
	return fileRowDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
		disabled: faintIfDark(lipgloss.NewStyle().Foreground(colorDisabledFg)),
	}
}

func (d fileRowDelegate) Height() int                             { return 1 }
func (d fileRowDelegate) Spacing() int                            { return 0 }
func (d fileRowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d fileRowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}
	it, ok := item.(fileItem)
	if !ok {
		fmt.Fprint(w, xansi.Truncate(fmt.Sprint(item), contentW, ""))
		return
	}

	style := d.normal
	switch {
	case it.doc.Disabled:
		style = d.disabled
	case index == m.Index():
		style = d.selected
	}

	fmt.Fprint(w, style.Render(fileRowLine(it, contentW)))
}

// fileRowLine lays out marker, title and the right-aligned timestamp in exactly width cells.
func fileRowLine(it fileItem, width int) string {
	mark := "  "
	switch {
	case it.doc.Disabled:
		mark = "… "
	case it.doc.IsEditing:
		mark = lipgloss.NewStyle().Foreground(colorEditingMark).Render("✎") + " "
	case it.current:
		mark = lipgloss.NewStyle().Foreground(colorCurrentMark).Render("●") + " "
	}

	stamp := it.doc.UpdatedAt
	if len(stamp) > 16 {
		// RFC 3339 and "2006-01-02 15:04:05" both start with the minute-precision prefix.
		stamp = strings.Replace(stamp[:16], "T", " ", 1)
	}

	title := it.doc.DisplayTitle()
	titleW := width - xansi.StringWidth(mark)
	if stamp != "" && titleW > len(stamp)+8 {
		titleW -= len(stamp) + 1
	} else {
		stamp = ""
	}
	if xansi.StringWidth(title) > titleW {
		title = xansi.Truncate(title, titleW, "…")
	}

	line := mark + title
	if stamp != "" {
		gap := width - xansi.StringWidth(line) - len(stamp)
		line += strings.Repeat(" ", max(gap, 1)) + stamp
	}
	if lw := xansi.StringWidth(line); lw < width {
		line += strings.Repeat(" ", width-lw)
	} else if lw > width {
		line = xansi.Cut(line, 0, width)
	}
	return line
}

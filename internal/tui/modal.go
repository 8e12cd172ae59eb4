package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// modalWidth is the outer width of a modal box for a terminal of width w.
func modalWidth(w int) int {
	mw := min(64, w-4)
	return max(mw, 24)
}

// modalBodyWidth is the usable text width inside a modal box.
func modalBodyWidth(w int) int {
	// border (2) + padding (2*2)
	return modalWidth(w) - 6
}

func renderModalBox(width int, title, body string) string {
	bodyW := modalBodyWidth(width)
	titleLine := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSurfaceFg).
		Background(colorSurfaceBg).
		Width(bodyW).
		Render(title)
	content := lipgloss.NewStyle().
		Foreground(colorSurfaceFg).
		Background(colorSurfaceBg).
		Width(bodyW).
		Render(body)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorModalBorder).
		BorderBackground(colorSurfaceBg).
		Background(colorSurfaceBg).
		Padding(1, 2).
		Render(strings.Join([]string{titleLine, "", content}, "\n"))
}

func renderInputLine(width int, in string) string {
	return lipgloss.NewStyle().
		Background(colorInputBg).
		Foreground(colorSurfaceFg).
		Width(width).
		Render(in)
}

func (m appModel) renderRenameModal() string {
	bodyW := modalBodyWidth(m.width)
	help := styleMuted().Width(bodyW).Render("enter: save   esc/ctrl+g: cancel")
	body := strings.Join([]string{
		renderInputLine(bodyW, m.renameInput.View()),
		"",
		help,
	}, "\n")
	return renderModalBox(m.width, "Rename drawing", body)
}

func (m appModel) renderHelpModal() string {
	rows := [][2]string{
		{"enter", "open the selected drawing"},
		{"n", "new drawing"},
		{"ctrl+s", "save the open drawing"},
		{"e", "edit the open drawing in " + externalEditorName()},
		{"r", "rename the selected drawing"},
		{"d", "delete the selected drawing"},
		{"/", "filter"},
		{"p", "toggle preview"},
		{"x", "dismiss the newest notification"},
		{"L", "sign out"},
		{"q", "quit"},
	}
	keyStyle := lipgloss.NewStyle().Bold(true).Width(8)
	lines := make([]string, 0, len(rows)+2)
	for _, r := range rows {
		lines = append(lines, keyStyle.Render(r[0])+r[1])
	}
	lines = append(lines, "", styleMuted().Render("esc/?: close"))
	return renderModalBox(m.width, "Keys", strings.Join(lines, "\n"))
}

package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"

	"github.com/bamaolink/excalidraw/internal/model"
)

func TestFileRowLine_FillsExactWidth(t *testing.T) {
	t.Parallel()

	cases := []fileItem{
		{doc: model.Document{ID: 1, Title: "Floor plan", UpdatedAt: "2024-05-01T10:12:33Z"}},
		{doc: model.Document{ID: 2, Title: ""}, current: true},
		{doc: model.Document{ID: 3, Title: strings.Repeat("长标题", 30), UpdatedAt: "2024-05-01 10:12:33"}},
		{doc: model.Document{ID: 4, Title: "busy", Disabled: true}},
	}
	for _, w := range []int{12, 40, 80} {
		for _, it := range cases {
			line := fileRowLine(it, w)
			if got := xansi.StringWidth(line); got != w {
				t.Fatalf("width %d, doc %d: got line width %d (%q)", w, it.doc.ID, got, line)
			}
		}
	}
}

func TestFileRowLine_Content(t *testing.T) {
	t.Parallel()

	line := xansi.Strip(fileRowLine(fileItem{doc: model.Document{ID: 1, Title: "Floor plan", UpdatedAt: "2024-05-01T10:12:33Z"}}, 60))
	if !strings.HasPrefix(line, "  Floor plan") {
		t.Fatalf("expected title after blank marker; got %q", line)
	}
	if !strings.HasSuffix(line, "2024-05-01 10:12") {
		t.Fatalf("expected minute-precision timestamp at the right edge; got %q", line)
	}

	untitled := xansi.Strip(fileRowLine(fileItem{doc: model.Document{ID: 2}, current: true}, 30))
	if !strings.Contains(untitled, "● "+model.UntitledLabel) {
		t.Fatalf("expected current marker and untitled label; got %q", untitled)
	}

	editing := xansi.Strip(fileRowLine(fileItem{doc: model.Document{ID: 3, Title: "x", IsEditing: true}, current: true}, 30))
	if !strings.HasPrefix(editing, "✎ x") {
		t.Fatalf("expected editing marker to win over current; got %q", editing)
	}
}

func TestFileRowLine_DropsTimestampWhenNarrow(t *testing.T) {
	t.Parallel()

	line := xansi.Strip(fileRowLine(fileItem{doc: model.Document{ID: 1, Title: "plan", UpdatedAt: "2024-05-01T10:12:33Z"}}, 20))
	if strings.Contains(line, "2024") {
		t.Fatalf("expected no timestamp in a narrow row; got %q", line)
	}
}

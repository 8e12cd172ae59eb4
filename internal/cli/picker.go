package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koki-develop/go-fzf"

	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/scene"
)

var errPickCancelled = errors.New("selection cancelled")

// pickDocument presents an interactive fuzzy finder over docs.
func pickDocument(docs []model.Document, cur model.Current) (model.Document, error) {
	if len(docs) == 0 {
		return model.Document{}, errors.New("no drawings found (run `bamao files new`)")
	}

	f, err := fzf.New(
		fzf.WithPrompt("Drawings > "),
		fzf.WithInputPosition(fzf.InputPositionTop),
		fzf.WithLimit(1),
	)
	if err != nil {
		return model.Document{}, err
	}

	idxs, err := f.Find(
		docs,
		func(i int) string { return pickerLine(docs[i], cur) },
		fzf.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 || i >= len(docs) {
				return ""
			}
			return pickerPreview(docs[i])
		}),
	)
	if err != nil {
		return model.Document{}, err
	}
	if len(idxs) == 0 {
		return model.Document{}, errPickCancelled
	}
	return docs[idxs[0]], nil
}

func pickerLine(d model.Document, cur model.Current) string {
	mark := " "
	if cur.Is(d.ID) {
		mark = "*"
	}
	return fmt.Sprintf("%s %5d  %s", mark, d.ID, d.DisplayTitle())
}

func pickerPreview(d model.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", d.DisplayTitle())
	fmt.Fprintf(&b, "id: %d\n", d.ID)
	if d.UpdatedAt != "" {
		fmt.Fprintf(&b, "updated: %s\n", d.UpdatedAt)
	}
	sc, err := scene.Decode(d.Content)
	if err != nil {
		b.WriteString("\n(unreadable content)\n")
		return b.String()
	}
	st := sc.Stats()
	fmt.Fprintf(&b, "\nelements: %d\n", st.Elements)
	for _, t := range st.Types() {
		fmt.Fprintf(&b, "  %-10s %d\n", t, st.ByType[t])
	}
	if st.Files > 0 {
		fmt.Fprintf(&b, "files: %d\n", st.Files)
	}
	return b.String()
}

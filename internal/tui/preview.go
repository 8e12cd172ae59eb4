package tui

import (
	"fmt"
	"strings"

	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/scene"
)

// previewMarkdown summarizes a drawing for the preview pane. The scene itself is not
// rendered; the terminal shows what is in it. live, when non-nil, is the open document's
// in-editor scene and takes precedence over the stored content.
func previewMarkdown(d model.Document, live *scene.Scene, dirty bool) string {
	open := live != nil
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(d.DisplayTitle()))

	var meta []string
	meta = append(meta, fmt.Sprintf("id `%d`", d.ID))
	if d.UpdatedAt != "" {
		meta = append(meta, "updated "+d.UpdatedAt)
	}
	if open {
		state := "open"
		if dirty {
			state = "open, unsaved changes"
		}
		meta = append(meta, "*"+state+"*")
	}
	b.WriteString(strings.Join(meta, " · "))
	b.WriteString("\n\n")

	if live != nil {
		b.WriteString(sceneMarkdown(*live))
		return b.String()
	}
	sc, err := scene.Decode(d.Content)
	if err != nil {
		b.WriteString("> The stored content of this drawing cannot be read.\n")
		return b.String()
	}
	b.WriteString(sceneMarkdown(sc))
	return b.String()
}

func sceneMarkdown(sc scene.Scene) string {
	st := sc.Stats()
	var b strings.Builder
	if st.Elements == 0 {
		b.WriteString("Empty drawing.\n")
	} else {
		b.WriteString("| element | count |\n|---|---:|\n")
		for _, t := range st.Types() {
			fmt.Fprintf(&b, "| `%s` | %d |\n", t, st.ByType[t])
		}
		fmt.Fprintf(&b, "| **total** | **%d** |\n", st.Elements)
	}
	var extra []string
	if st.Deleted > 0 {
		extra = append(extra, fmt.Sprintf("%d deleted", st.Deleted))
	}
	if st.Files > 0 {
		extra = append(extra, fmt.Sprintf("%d embedded files", st.Files))
	}
	if st.Background != "" {
		extra = append(extra, "background "+st.Background)
	}
	if len(extra) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(extra, " · "))
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`, "|", `\|`)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// previewCache holds the last rendered preview; glamour rendering is too slow to repeat
// on every frame.
type previewCache struct {
	key string
	out string
}

func (c *previewCache) get(key string, render func() string) string {
	if c == nil {
		return render()
	}
	if c.key != key || c.out == "" {
		c.key, c.out = key, render()
	}
	return c.out
}

package cli

import (
	"io"

	"github.com/fatih/color"

	"github.com/bamaolink/excalidraw/internal/notify"
)

var (
	toastOK  = color.New(color.FgGreen, color.Bold)
	toastBad = color.New(color.FgRed, color.Bold)
)

// flushToasts prints and dismisses every live notification, oldest first.
func flushToasts(w io.Writer, q *notify.Queue) {
	if q == nil {
		return
	}
	for n := range q.All() {
		switch n.Kind {
		case notify.Error:
			toastBad.Fprintf(w, "✗ %s\n", n.Message)
		default:
			toastOK.Fprintf(w, "✓ %s\n", n.Message)
		}
		q.Remove(n.ID)
	}
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamaolink/excalidraw/internal/docsession"
	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/scene"
)

func newFilesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file", "f"},
		Short:   "List, open, save, rename and delete drawings",
	}
	cmd.AddCommand(newFilesListCmd(app))
	cmd.AddCommand(newFilesNewCmd(app))
	cmd.AddCommand(newFilesOpenCmd(app))
	cmd.AddCommand(newFilesSaveCmd(app))
	cmd.AddCommand(newFilesRenameCmd(app))
	cmd.AddCommand(newFilesDeleteCmd(app))
	return cmd
}

// captureEditor is the CLI's drawing surface: it just keeps the last loaded scene.
type captureEditor struct {
	doc    model.Document
	scene  scene.Scene
	loaded bool
}

func (e *captureEditor) LoadScene(doc model.Document, s scene.Scene) {
	e.doc, e.scene, e.loaded = doc, s, true
}

func (e *captureEditor) ScrollToContent(scene.Scene) {}

type fileRow struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	DisplayTitle string `json:"displayTitle"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	Current      bool   `json:"current"`
	Elements     *int   `json:"elements,omitempty"`
	Content      string `json:"content,omitempty"`
}

func toRow(d model.Document, cur model.Current, withContent bool) fileRow {
	r := fileRow{
		ID:           d.ID,
		Title:        d.Title,
		DisplayTitle: d.DisplayTitle(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Current:      cur.Is(d.ID),
	}
	if sc, err := scene.Decode(d.Content); err == nil {
		n := sc.Stats().Elements
		r.Elements = &n
	}
	if withContent {
		r.Content = d.Content
	}
	return r
}

// loadSession restores the last open document and fetches the list.
func loadSession(cmd *cobra.Command, c *docsession.Controller) error {
	if _, err := c.Restore(cmd.Context()); err != nil {
		return err
	}
	return c.Load(cmd.Context())
}

func lookupDocument(c *docsession.Controller, raw string) (model.Document, error) {
	id, err := parseDocumentID(raw)
	if err != nil {
		return model.Document{}, err
	}
	d, ok := c.Document(id)
	if !ok {
		return model.Document{}, errNotFound("document", strconv.FormatInt(id, 10))
	}
	return d, nil
}

func newFilesListCmd(app *App) *cobra.Command {
	var withContent bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drawings on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.controller(nil)
			defer flushToasts(cmd.ErrOrStderr(), c.Toasts())

			if err := loadSession(cmd, c); err != nil {
				return err
			}
			cur := c.Current()
			docs := c.Documents()
			rows := make([]fileRow, 0, len(docs))
			for _, d := range docs {
				rows = append(rows, toRow(d, cur, withContent))
			}
			return writeOut(cmd, app, map[string]any{
				"data": rows,
				"meta": map[string]any{"count": len(rows), "current": cur.ID()},
			})
		},
	}
	cmd.Flags().BoolVar(&withContent, "content", false, "Include raw scene content")
	return cmd
}

func newFilesNewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create an empty drawing and make it current",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.controller(nil)
			defer flushToasts(cmd.ErrOrStderr(), c.Toasts())

			if err := loadSession(cmd, c); err != nil {
				return err
			}
			d, err := c.CreateNew(cmd.Context())
			if err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{
				"data":   toRow(d, c.Current(), false),
				"_hints": []string{fmt.Sprintf("bamao files open %d --out drawing.excalidraw", d.ID)},
			})
		},
	}
}

func newFilesOpenCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "open [id]",
		Short: "Make a drawing current and print its scene (fuzzy picker without id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed := &captureEditor{}
			c := app.controller(ed)
			defer flushToasts(cmd.ErrOrStderr(), c.Toasts())

			if err := loadSession(cmd, c); err != nil {
				return err
			}

			var (
				doc model.Document
				err error
			)
			if len(args) == 1 {
				doc, err = lookupDocument(c, args[0])
			} else {
				doc, err = pickDocument(c.Documents(), c.Current())
			}
			if err != nil {
				if errors.Is(err, errPickCancelled) {
					return nil
				}
				return writeErr(cmd, err)
			}

			if err := c.Select(cmd.Context(), doc); err != nil {
				return err
			}
			b, err := json.MarshalIndent(ed.scene, "", "  ")
			if err != nil {
				return err
			}

			if strings.TrimSpace(out) == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}
			if err := os.WriteFile(out, append(b, '\n'), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   toRow(doc, c.Current(), false),
				"meta":   map[string]any{"path": out},
				"_hints": []string{fmt.Sprintf("bamao files save --in %s", out)},
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the scene to a file instead of stdout")
	return cmd
}

func newFilesSaveCmd(app *App) *cobra.Command {
	var (
		in       string
		title    string
		asNew    bool
		titleSet bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a scene file into the current drawing (or a new one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			titleSet = cmd.Flags().Changed("title")

			b, err := readInput(cmd, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			sc, err := scene.Decode(string(b))
			if err != nil {
				return writeErr(cmd, err)
			}

			c := app.controller(nil)
			defer flushToasts(cmd.ErrOrStderr(), c.Toasts())
			if err := loadSession(cmd, c); err != nil {
				return err
			}

			target := c.Current()
			if asNew {
				target = model.NoDocument()
			}
			name := target.Title()
			if titleSet {
				name = title
			} else if !target.IsOpen() && in != "" && in != "-" {
				name = strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
			}

			content, err := scene.Encode(sc.ForSave(app.cfg.Source))
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Save(cmd.Context(), target, name, content); err != nil {
				return err
			}

			cur := c.Current()
			d, _ := c.Document(cur.ID())
			return writeOut(cmd, app, map[string]any{"data": toRow(d, cur, false)})
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Scene file to read (- for stdin)")
	cmd.Flags().StringVar(&title, "title", "", "Title to save under (default: current title)")
	cmd.Flags().BoolVar(&asNew, "new", false, "Create a new drawing even if one is current")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newFilesRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a drawing on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.controller(nil)
			defer flushToasts(cmd.ErrOrStderr(), c.Toasts())

			if err := loadSession(cmd, c); err != nil {
				return err
			}
			doc, err := lookupDocument(c, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			editing := true
			c.ToggleEditing(doc, &editing)
			c.Rename(doc, args[1])
			if err := c.UpdateExisting(cmd.Context(), doc); err != nil {
				return err
			}
			d, _ := c.Document(doc.ID)
			return writeOut(cmd, app, map[string]any{"data": toRow(d, c.Current(), false)})
		},
	}
}

func newFilesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a drawing",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.controller(nil)
			defer flushToasts(cmd.ErrOrStderr(), c.Toasts())

			if err := loadSession(cmd, c); err != nil {
				return err
			}
			doc, err := lookupDocument(c, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Remove(cmd.Context(), doc); err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"id": doc.ID, "deleted": true},
				"meta": map[string]any{"current": c.Current().ID()},
			})
		},
	}
}

package cli

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamaolink/excalidraw/internal/docsession"
	"github.com/bamaolink/excalidraw/internal/notify"
	"github.com/bamaolink/excalidraw/internal/store"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("BAMAO_PASSWORD")
			}
			toasts := notify.New(notify.WithTTL(0))
			defer flushToasts(cmd.ErrOrStderr(), toasts)

			u, err := docsession.SignIn(cmd.Context(), app.client, app.st, toasts, email, password)
			if err != nil {
				return err
			}
			out := map[string]any{
				"email": u.Email,
				"name":  u.Name,
			}
			if exp, ok := store.TokenExpiry(u.Token); ok {
				out["tokenExpiresAt"] = exp.UTC().Format(time.RFC3339)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   out,
				"_hints": []string{"bamao files list", "bamao"},
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("BAMAO_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (or BAMAO_PASSWORD)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out (always clears the local session)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := app.controller(nil)
			if err := c.SignOut(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"signedIn": false}})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := docsession.RequireSignIn(cmd.Context(), app.st)
			if err != nil {
				if errors.Is(err, docsession.ErrNotSignedIn) {
					return writeErr(cmd, errors.New("not signed in (run `bamao login`)"))
				}
				return writeErr(cmd, err)
			}
			env, err := app.client.UserInfo(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := env.Err(); err != nil {
				return writeErr(cmd, err)
			}
			out := map[string]any{
				"email":    env.Data.Email,
				"name":     env.Data.Name,
				"avatar":   env.Data.Avatar,
				"username": sess.Username,
			}
			if strings.TrimSpace(env.Data.Expired) != "" {
				out["expired"] = env.Data.Expired
			}
			if exp, ok := store.TokenExpiry(sess.Token); ok {
				out["tokenExpiresAt"] = exp.UTC().Format(time.RFC3339)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local session state (no network)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.st.Session(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			data := map[string]any{
				"server":    app.cfg.Server,
				"configDir": app.st.Dir,
				"sessionDb": app.st.Path(),
				"signedIn":  sess.SignedIn(),
				"username":  sess.Username,
			}
			if sess.Current.IsOpen() {
				data["current"] = map[string]any{"id": sess.Current.ID(), "title": sess.Current.Title()}
			} else {
				data["current"] = nil
			}
			hints := []string{"bamao files list"}
			if !sess.SignedIn() {
				hints = []string{"bamao login --email <email> --password <password>"}
			}
			return writeOut(cmd, app, map[string]any{"data": data, "_hints": hints})
		},
	}
}

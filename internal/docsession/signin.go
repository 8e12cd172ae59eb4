package docsession

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/model"
	"github.com/bamaolink/excalidraw/internal/notify"
)

// ErrInvalidCredentials is returned when email or password fail local validation.
var ErrInvalidCredentials = errors.New("email and password are required")

type signInForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// SignIn validates the form, signs in remotely and stores the returned credentials.
// Every failure is also pushed to toasts.
func SignIn(ctx context.Context, repo api.Repository, sess SessionStore, toasts *notify.Queue, email, password string) (model.UserInfo, error) {
	form := signInForm{Email: strings.TrimSpace(email), Password: password}
	if err := validate.Struct(form); err != nil {
		toasts.Error(MsgNeedCreds)
		return model.UserInfo{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	env, err := repo.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		toasts.Error(MsgNetwork)
		return model.UserInfo{}, fmt.Errorf("sign in: %w", err)
	}
	if err := env.Err(); err != nil {
		msg := env.Msg
		if strings.TrimSpace(msg) == "" {
			msg = MsgFallback
		}
		toasts.Error(msg)
		return model.UserInfo{}, err
	}

	if err := sess.SetAuth(ctx, env.Data.Token, env.Data.Name); err != nil {
		toasts.Error(MsgFallback)
		return model.UserInfo{}, fmt.Errorf("store credentials: %w", err)
	}
	return env.Data, nil
}

// RequireSignIn returns the stored session, or ErrNotSignedIn when it has no token.
func RequireSignIn(ctx context.Context, sess SessionStore) (model.Session, error) {
	s, err := sess.Session(ctx)
	if err != nil {
		return model.Session{}, err
	}
	if !s.SignedIn() {
		return s, ErrNotSignedIn
	}
	return s, nil
}

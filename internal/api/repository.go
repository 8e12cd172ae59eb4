package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bamaolink/excalidraw/internal/model"
)

const userInfoTTL = 5 * time.Minute

// Repository is the remote document/auth surface the session controller depends on.
type Repository interface {
	SignIn(ctx context.Context, email, password string) (Envelope[model.UserInfo], error)
	SignOut(ctx context.Context) (Envelope[json.RawMessage], error)
	ListDocuments(ctx context.Context) (Envelope[[]model.Document], error)
	CreateDocument(ctx context.Context, title, content string) (Envelope[model.Document], error)
	UpdateDocument(ctx context.Context, id int64, title, content string) (Envelope[model.Document], error)
	DeleteDocument(ctx context.Context, id int64) (Envelope[model.Document], error)
}

var _ Repository = (*Client)(nil)

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type documentBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Envelope[model.UserInfo], error) {
	c.userCache.Flush()
	return Do[model.UserInfo](ctx, c, http.MethodPost, "/user/signin", signInBody{Email: email, Password: password})
}

func (c *Client) SignOut(ctx context.Context) (Envelope[json.RawMessage], error) {
	c.userCache.Flush()
	return Do[json.RawMessage](ctx, c, http.MethodGet, "/user/signout", nil)
}

// UserInfo fetches the signed-in user's profile. Successful answers are cached per token.
func (c *Client) UserInfo(ctx context.Context) (Envelope[model.UserInfo], error) {
	key := ""
	if c.Credentials != nil {
		token, _, err := c.Credentials.Credentials(ctx)
		if err != nil {
			return Envelope[model.UserInfo]{}, fmt.Errorf("read credentials: %w", err)
		}
		key = token
	}
	if key != "" {
		if v, ok := c.userCache.Get(key); ok {
			if env, ok := v.(Envelope[model.UserInfo]); ok {
				return env, nil
			}
		}
	}

	env, err := Do[model.UserInfo](ctx, c, http.MethodGet, "/user/info", nil)
	if err != nil {
		return env, err
	}
	if key != "" && env.OK() {
		c.userCache.Set(key, env, cache.DefaultExpiration)
	}
	return env, nil
}

func (c *Client) ListDocuments(ctx context.Context) (Envelope[[]model.Document], error) {
	return Do[[]model.Document](ctx, c, http.MethodGet, "/excalidraw/all", nil)
}

func (c *Client) CreateDocument(ctx context.Context, title, content string) (Envelope[model.Document], error) {
	return Do[model.Document](ctx, c, http.MethodPost, "/excalidraw/create", documentBody{Title: title, Content: content})
}

func (c *Client) UpdateDocument(ctx context.Context, id int64, title, content string) (Envelope[model.Document], error) {
	return Do[model.Document](ctx, c, http.MethodPut, fmt.Sprintf("/excalidraw/update/%d", id), documentBody{Title: title, Content: content})
}

func (c *Client) DeleteDocument(ctx context.Context, id int64) (Envelope[model.Document], error) {
	return Do[model.Document](ctx, c, http.MethodDelete, fmt.Sprintf("/excalidraw/delete/%d", id), nil)
}

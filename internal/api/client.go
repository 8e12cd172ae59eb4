// Package api is the authenticated HTTP transport to the drawing service and the typed
// document/user endpoints built on it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Credential headers understood by the server.
const (
	HeaderToken     = "x-bm-token"
	HeaderUser      = "x-bm-user"
	HeaderRequestID = "X-Request-Id"
)

// CredentialSource supplies the session credentials attached to every request.
// It is read once per request; absent values are sent as empty strings.
type CredentialSource interface {
	Credentials(ctx context.Context) (token string, username string, err error)
}

type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Credentials CredentialSource
	Log         *zap.Logger

	userCache *cache.Cache
	timeout   time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTP = hc
		}
	}
}

// WithTimeout bounds every request. It applies on top of WithHTTPClient regardless of
// option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.Log = l
		}
	}
}

func New(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		BaseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		Credentials: creds,
		Log:         zap.NewNop(),
		userCache:   cache.New(userInfoTTL, 10*time.Minute),
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.HTTP
		hc.Timeout = c.timeout
		c.HTTP = &hc
	}
	c.Log = c.Log.Named("api")
	return c
}

// Do performs one request and decodes the response envelope.
//
// A non-2xx status returns *HTTPError and no envelope. A 2xx response with code != 0
// is NOT an error here: the envelope is returned as-is and callers inspect it (or use
// Envelope.Err). GET and DELETE never carry a body.
func Do[T any](ctx context.Context, c *Client, method, path string, body any) (Envelope[T], error) {
	var env Envelope[T]

	method = strings.ToUpper(strings.TrimSpace(method))
	if body != nil && (method == http.MethodGet || method == http.MethodDelete) {
		return env, fmt.Errorf("%s %s: request body not allowed", method, path)
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return env, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return env, err
	}

	token, user := "", ""
	if c.Credentials != nil {
		token, user, err = c.Credentials.Credentials(ctx)
		if err != nil {
			return env, fmt.Errorf("read credentials: %w", err)
		}
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderToken, token)
	req.Header.Set(HeaderUser, user)
	req.Header.Set(HeaderRequestID, reqID)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return env, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("duration", time.Since(start)),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.Log.Warn("http error", fields...)
		return env, &HTTPError{Method: method, Path: path, Status: resp.StatusCode}
	}

	// data is only meaningful on success; failures may carry anything there.
	var raw Envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.Log.Warn("decode envelope failed", append(fields, zap.Error(err))...)
		return env, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	env.Code, env.Msg = raw.Code, raw.Msg
	if raw.OK() && len(raw.Data) > 0 && !bytes.Equal(raw.Data, []byte("null")) {
		if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
			c.Log.Warn("decode envelope data failed", append(fields, zap.Error(err))...)
			return env, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	c.Log.Debug("request done", append(fields, zap.Int("code", int(env.Code)))...)
	return env, nil
}

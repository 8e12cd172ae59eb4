package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Code is the envelope status. Zero is the only success value.
//
// Some server builds send it as a numeric string, so both forms are accepted.
type Code int

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("envelope code %q: %w", s, err)
		}
		*c = Code(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Code(n)
	return nil
}

// Envelope is the fixed response shape of every endpoint.
type Envelope[T any] struct {
	Code Code   `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

func (e Envelope[T]) OK() bool { return e.Code == 0 }

// Err returns nil on success, or *AppError. Data must not be trusted when Err != nil.
func (e Envelope[T]) Err() error {
	if e.OK() {
		return nil
	}
	return &AppError{Code: int(e.Code), Msg: e.Msg}
}

// HTTPError is a transport-level failure: the server answered with a non-2xx status.
type HTTPError struct {
	Method string
	Path   string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http status %d (%s)", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// AppError is an application-level failure: 2xx status with code != 0.
type AppError struct {
	Code int
	Msg  string
}

func (e *AppError) Error() string {
	if strings.TrimSpace(e.Msg) == "" {
		return fmt.Sprintf("api error code %d", e.Code)
	}
	return fmt.Sprintf("api error code %d: %s", e.Code, e.Msg)
}

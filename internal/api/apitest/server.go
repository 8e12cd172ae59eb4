// Package apitest runs an in-memory drawing service for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bamaolink/excalidraw/internal/model"
)

// Request is one recorded call.
type Request struct {
	Method    string
	Path      string
	Token     string
	User      string
	RequestID string
	Body      string
}

type fault struct {
	status int
	code   int
	msg    string
	raw    string
}

// Server mimics the remote API under the "/api" base path.
//
// Valid credentials are Email/Password; any request is accepted regardless of token
// except /user/info, which requires the issued token.
type Server struct {
	*httptest.Server

	Email    string
	Password string
	Token    string
	Name     string

	mu       sync.Mutex
	docs     []model.Document
	nextID   int64
	requests []Request
	faults   map[string][]fault
	gate     map[string]chan struct{}
}

func New() *Server {
	s := &Server{
		Email:    "ada@example.com",
		Password: "secret",
		Token:    "tok-1",
		Name:     "ada",
		nextID:   1,
		faults:   map[string][]fault{},
		gate:     map[string]chan struct{}{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL includes the "/api" prefix.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Seed adds documents with server-assigned ids and returns them.
func (s *Server) Seed(titles ...string) []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, 0, len(titles))
	for _, t := range titles {
		d := s.newDocLocked(t, `{"type":"excalidraw","version":2,"source":"test","elements":[],"appState":{},"files":{}}`)
		s.docs = append(s.docs, d)
		out = append(out, d)
	}
	return out
}

// SetNextID sets the id the next created document receives.
func (s *Server) SetNextID(id int64) {
	s.mu.Lock()
	s.nextID = id
	s.mu.Unlock()
}

// SetContent overwrites a stored document's content.
func (s *Server) SetContent(id int64, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs[i].Content = content
		}
	}
}

func (s *Server) Documents() []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Document(nil), s.docs...)
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// FailStatus makes the next call whose path starts with prefix answer with an HTTP status.
func (s *Server) FailStatus(prefix string, status int) {
	s.addFault(prefix, fault{status: status})
}

// FailCode makes the next call whose path starts with prefix answer 200 with code/msg.
func (s *Server) FailCode(prefix string, code int, msg string) {
	s.addFault(prefix, fault{status: http.StatusOK, code: code, msg: msg})
}

// RespondRaw makes the next call whose path starts with prefix answer 200 with body.
func (s *Server) RespondRaw(prefix string, body string) {
	s.addFault(prefix, fault{status: http.StatusOK, raw: body})
}

// Hold blocks calls whose path starts with prefix until the returned func is called.
func (s *Server) Hold(prefix string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gate[prefix] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gate, prefix)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) addFault(prefix string, f fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[prefix] = append(s.faults[prefix], f)
}

func (s *Server) takeFault(path string) (fault, bool) {
	for prefix, fs := range s.faults {
		if strings.HasPrefix(path, prefix) && len(fs) > 0 {
			f := fs[0]
			if len(fs) == 1 {
				delete(s.faults, prefix)
			} else {
				s.faults[prefix] = fs[1:]
			}
			return f, true
		}
	}
	return fault{}, false
}

func (s *Server) takeGate(path string) chan struct{} {
	for prefix, ch := range s.gate {
		if strings.HasPrefix(path, prefix) {
			return ch
		}
	}
	return nil
}

func (s *Server) newDocLocked(title, content string) model.Document {
	now := time.Now().UTC().Format(time.RFC3339)
	d := model.Document{ID: s.nextID, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
	s.nextID++
	return d
}

type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope{Code: code, Msg: msg, Data: data})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api")

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Path:      path,
		Token:     r.Header.Get("x-bm-token"),
		User:      r.Header.Get("x-bm-user"),
		RequestID: r.Header.Get("X-Request-Id"),
		Body:      string(raw),
	})
	gate := s.takeGate(path)
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	f, faulted := s.takeFault(path)
	s.mu.Unlock()
	if faulted {
		switch {
		case f.status != http.StatusOK:
			http.Error(w, http.StatusText(f.status), f.status)
		case f.raw != "":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(f.raw))
		default:
			writeJSON(w, f.code, f.msg, nil)
		}
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Title    string `json:"title"`
		Content  string `json:"content"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && path == "/user/signin":
		if body.Email != s.Email || body.Password != s.Password {
			writeJSON(w, 1001, "账号或密码错误", nil)
			return
		}
		writeJSON(w, 0, "ok", model.UserInfo{Email: s.Email, Token: s.Token, Name: s.Name})
	case r.Method == http.MethodGet && path == "/user/signout":
		writeJSON(w, 0, "ok", nil)
	case r.Method == http.MethodGet && path == "/user/info":
		if r.Header.Get("x-bm-token") != s.Token {
			writeJSON(w, 401, "未登录", nil)
			return
		}
		writeJSON(w, 0, "ok", model.UserInfo{Email: s.Email, Token: s.Token, Name: s.Name})
	case r.Method == http.MethodGet && path == "/excalidraw/all":
		writeJSON(w, 0, "ok", s.docs)
	case r.Method == http.MethodPost && path == "/excalidraw/create":
		d := s.newDocLocked(body.Title, body.Content)
		s.docs = append(s.docs, d)
		writeJSON(w, 0, "ok", d)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/excalidraw/update/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/excalidraw/update/"), 10, 64)
		for i := range s.docs {
			if s.docs[i].ID == id {
				s.docs[i].Title = body.Title
				s.docs[i].Content = body.Content
				s.docs[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
				writeJSON(w, 0, "ok", s.docs[i])
				return
			}
		}
		writeJSON(w, 404, "文件不存在", nil)
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/excalidraw/delete/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/excalidraw/delete/"), 10, 64)
		for i := range s.docs {
			if s.docs[i].ID == id {
				d := s.docs[i]
				s.docs = append(s.docs[:i], s.docs[i+1:]...)
				writeJSON(w, 0, "ok", d)
				return
			}
		}
		writeJSON(w, 404, "文件不存在", nil)
	default:
		http.NotFound(w, r)
	}
}

package model

import "strings"

// NoDocumentID is the wire/storage form of "no document open".
const NoDocumentID int64 = -1

// UntitledLabel is shown for documents with an empty title.
const UntitledLabel = "未命名"

type Document struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	// Client-only flags. Never sent to or trusted from the server.
	IsEditing bool `json:"-"`
	Disabled  bool `json:"-"`
}

// DisplayTitle returns the title, or the untitled label when empty.
func (d Document) DisplayTitle() string {
	if strings.TrimSpace(d.Title) == "" {
		return UntitledLabel
	}
	return d.Title
}

// Persisted reports whether the document has a server-assigned identity.
func (d Document) Persisted() bool { return d.ID > 0 }

// Current identifies the document loaded into the editor surface, if any.
//
// The zero value is "no document".
type Current struct {
	open  bool
	id    int64
	title string
}

func NoDocument() Current { return Current{} }

// OpenDocument returns an open Current. Non-positive ids collapse to NoDocument.
func OpenDocument(id int64, title string) Current {
	if id <= 0 {
		return Current{}
	}
	return Current{open: true, id: id, title: title}
}

func (c Current) IsOpen() bool { return c.open }

// ID returns the open document id, or NoDocumentID.
func (c Current) ID() int64 {
	if !c.open {
		return NoDocumentID
	}
	return c.id
}

// Title returns the open document title, or "".
func (c Current) Title() string {
	if !c.open {
		return ""
	}
	return c.title
}

// Is reports whether id is the open document.
func (c Current) Is(id int64) bool { return c.open && c.id == id }

// WithTitle returns c with a new title; no-op when nothing is open.
func (c Current) WithTitle(title string) Current {
	if !c.open {
		return c
	}
	c.title = title
	return c
}

type UserInfo struct {
	Email   string `json:"email"`
	Token   string `json:"token"`
	Expired string `json:"expired"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
}

// Session is the durable client session: credentials plus the last open document.
type Session struct {
	Token       string
	HasToken    bool
	Username    string
	HasUsername bool
	Current     Current
}

// SignedIn reports whether a non-empty token is stored.
func (s Session) SignedIn() bool {
	return s.HasToken && strings.TrimSpace(s.Token) != ""
}

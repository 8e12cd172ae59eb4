// Package scene encodes and decodes the drawing payload stored in a document's content.
//
// The payload is treated as mostly opaque: elements and files are kept as raw JSON so
// a round trip never drops fields this client does not understand.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	TypeExcalidraw = "excalidraw"
	Version        = 2
)

// Keys of appState that survive a save. Everything else is editor session state.
var persistedAppStateKeys = []string{
	"gridSize",
	"gridStep",
	"gridModeEnabled",
	"viewBackgroundColor",
}

type Scene struct {
	Type     string                     `json:"type"`
	Version  int                        `json:"version"`
	Source   string                     `json:"source"`
	Elements []json.RawMessage          `json:"elements"`
	AppState map[string]any             `json:"appState"`
	Files    map[string]json.RawMessage `json:"files"`
}

// DecodeError reports a stored payload that could not be parsed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode scene: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errEmptyPayload = errors.New("empty payload")

// Empty returns a blank scene, used when creating a new document.
func Empty(source string) Scene {
	return Scene{
		Type:     TypeExcalidraw,
		Version:  Version,
		Source:   source,
		Elements: []json.RawMessage{},
		AppState: map[string]any{},
		Files:    map[string]json.RawMessage{},
	}
}

// Decode parses a document's content. Failures are returned as *DecodeError.
func Decode(content string) (Scene, error) {
	if strings.TrimSpace(content) == "" {
		return Scene{}, &DecodeError{Err: errEmptyPayload}
	}
	var s Scene
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return Scene{}, &DecodeError{Err: err}
	}
	if s.Elements == nil {
		s.Elements = []json.RawMessage{}
	}
	if s.AppState == nil {
		s.AppState = map[string]any{}
	}
	if s.Files == nil {
		s.Files = map[string]json.RawMessage{}
	}
	return s, nil
}

// Encode serializes s to the string form stored on the server.
func Encode(s Scene) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode scene: %w", err)
	}
	return string(b), nil
}

// ForSave returns a copy of s stamped with type/version/source and with appState
// reduced to the persisted keys.
func (s Scene) ForSave(source string) Scene {
	out := Scene{
		Type:     TypeExcalidraw,
		Version:  Version,
		Source:   source,
		Elements: s.Elements,
		AppState: map[string]any{},
		Files:    s.Files,
	}
	if out.Elements == nil {
		out.Elements = []json.RawMessage{}
	}
	if out.Files == nil {
		out.Files = map[string]json.RawMessage{}
	}
	for _, k := range persistedAppStateKeys {
		if v, ok := s.AppState[k]; ok {
			out.AppState[k] = v
		}
	}
	return out
}

type Stats struct {
	Elements   int
	Deleted    int
	ByType     map[string]int
	Files      int
	Background string
}

// Types returns element types sorted by descending count, then name.
func (st Stats) Types() []string {
	out := make([]string, 0, len(st.ByType))
	for k := range st.ByType {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if st.ByType[out[i]] != st.ByType[out[j]] {
			return st.ByType[out[i]] > st.ByType[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Stats summarizes the scene for previews. Unparseable elements count as "unknown".
func (s Scene) Stats() Stats {
	st := Stats{ByType: map[string]int{}, Files: len(s.Files)}
	for _, raw := range s.Elements {
		var el struct {
			Type      string `json:"type"`
			IsDeleted bool   `json:"isDeleted"`
		}
		if err := json.Unmarshal(raw, &el); err != nil || el.Type == "" {
			el.Type = "unknown"
		}
		if el.IsDeleted {
			st.Deleted++
			continue
		}
		st.Elements++
		st.ByType[el.Type]++
	}
	if bg, ok := s.AppState["viewBackgroundColor"].(string); ok {
		st.Background = bg
	}
	return st
}

package scene

import (
	"errors"
	"strings"
	"testing"
)

func TestDecode_WellFormed(t *testing.T) {
	s, err := Decode(`{"type":"excalidraw","version":2,"elements":[{"type":"rectangle"},{"type":"arrow","isDeleted":true}],"appState":{"viewBackgroundColor":"#fff"}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st := s.Stats()
	if st.Elements != 1 || st.Deleted != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.ByType["rectangle"] != 1 {
		t.Fatalf("expected one rectangle, got %+v", st.ByType)
	}
	if st.Background != "#fff" {
		t.Fatalf("expected background #fff, got %q", st.Background)
	}
	if s.Files == nil {
		t.Fatalf("expected files map to be non-nil")
	}
}

func TestDecode_EmptyObject(t *testing.T) {
	s, err := Decode("{}")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.Elements) != 0 {
		t.Fatalf("expected no elements")
	}
}

func TestDecode_MalformedIsDecodeError(t *testing.T) {
	for _, in := range []string{"", "   ", "{not json", `{"elements":"nope"}`} {
		_, err := Decode(in)
		if err == nil {
			t.Fatalf("input %q: expected error", in)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("input %q: expected *DecodeError, got %T", in, err)
		}
	}
}

func TestForSave_KeepsOnlyPersistedAppState(t *testing.T) {
	s := Scene{
		AppState: map[string]any{
			"gridSize":            20,
			"viewBackgroundColor": "#000",
			"zoom":                map[string]any{"value": 2},
			"selectedElementIds":  map[string]any{"a": true},
		},
	}
	out := s.ForSave("bamao")
	if out.Type != TypeExcalidraw || out.Version != Version || out.Source != "bamao" {
		t.Fatalf("unexpected header: %+v", out)
	}
	if len(out.AppState) != 2 {
		t.Fatalf("expected 2 appState keys, got %v", out.AppState)
	}
	if _, ok := out.AppState["zoom"]; ok {
		t.Fatalf("zoom must not be persisted")
	}
}

func TestEncode_EmptyRoundTrip(t *testing.T) {
	content, err := Encode(Empty("bamao"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(content, `"elements":[]`) || !strings.Contains(content, `"type":"excalidraw"`) {
		t.Fatalf("unexpected payload: %s", content)
	}
	if _, err := Decode(content); err != nil {
		t.Fatalf("decode own payload: %v", err)
	}
}

func TestStats_TypesOrdering(t *testing.T) {
	st := Stats{ByType: map[string]int{"text": 1, "arrow": 3, "ellipse": 1}}
	got := strings.Join(st.Types(), ",")
	if got != "arrow,ellipse,text" {
		t.Fatalf("unexpected order: %s", got)
	}
}

package docs

import "testing"

func TestTopicsAndGet(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("expected embedded topics")
	}
	for _, name := range topics {
		body, ok := Get(name)
		if !ok || body == "" {
			t.Fatalf("Get(%q) failed", name)
		}
	}
	if _, ok := Get("../docs"); ok {
		t.Fatalf("expected path traversal to be rejected")
	}
	if _, ok := Get("TUI"); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
}

func TestListTitles(t *testing.T) {
	for _, tp := range List() {
		if tp.Title == "" || tp.Title == tp.Name {
			t.Fatalf("topic %q has no heading title", tp.Name)
		}
	}
}

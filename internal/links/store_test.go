package links

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "links.json"))
}

func TestEmptyStore(t *testing.T) {
	s := newTestStore(t)
	got, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d links, want 0", len(got))
	}
}

func TestAddAndAll(t *testing.T) {
	s := newTestStore(t)

	l1, err := s.Add("NAS", "http://nas.local")
	if err != nil {
		t.Fatal(err)
	}
	l2, err := s.Add("Router", "http://192.168.1.1")
	if err != nil {
		t.Fatal(err)
	}
	if l1.ID == "" || l1.ID == l2.ID {
		t.Errorf("ids not unique: %q %q", l1.ID, l2.ID)
	}
	if l1.Created == "" {
		t.Error("created timestamp missing")
	}

	got, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d links, want 2", len(got))
	}
	if got[0].Name != "NAS" || got[1].URL != "http://192.168.1.1" {
		t.Errorf("unexpected order/content: %+v", got)
	}
}

func TestEdit(t *testing.T) {
	s := newTestStore(t)
	l, err := s.Add("old", "http://old")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Edit(l.ID, "new", "http://new"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.All()
	if got[0].Name != "new" || got[0].URL != "http://new" {
		t.Errorf("edit did not stick: %+v", got[0])
	}
	if got[0].ID != l.ID {
		t.Error("edit changed the id")
	}

	// Unknown id is a no-op, not an error.
	if err := s.Edit("nope", "x", "y"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.All()
	if len(got) != 1 || got[0].Name != "new" {
		t.Errorf("no-op edit mutated the store: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	l1, _ := s.Add("a", "http://a")
	l2, _ := s.Add("b", "http://b")

	if err := s.Delete(l1.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.All()
	if len(got) != 1 || got[0].ID != l2.ID {
		t.Errorf("got %+v, want only %q", got, l2.ID)
	}

	// Deleting an unknown id is fine.
	if err := s.Delete("nope"); err != nil {
		t.Fatal(err)
	}
}

func TestMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)

	got, err := s.All()
	if err != nil {
		t.Fatalf("malformed document should read as empty, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d links, want 0", len(got))
	}

	// The file is left untouched until the next mutation.
	b, _ := os.ReadFile(path)
	if string(b) != "{not json" {
		t.Error("lenient read rewrote the document")
	}
	if _, err := s.Add("a", "http://a"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.All()
	if len(got) != 1 {
		t.Errorf("got %d links after recovery, want 1", len(got))
	}
}

func TestConcurrentAdds(t *testing.T) {
	s := newTestStore(t)
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Add("x", "http://x"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Errorf("got %d links, want %d (lost updates)", len(got), n)
	}
}

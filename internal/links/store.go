// Package links persists the saved-links list: one JSON array document,
// rewritten in full on every mutation.
package links

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"duffel/internal/logging"
)

// Link is one saved bookmark.
type Link struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Created string `json:"created"` // minute precision, local time
}

// Store serializes all read-modify-write cycles behind a single mutex, so
// concurrent mutations cannot lose updates. Reads outside a mutation take
// the same lock; the list is small.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// All returns the stored links. A missing, empty, or malformed document is
// an empty list: the malformed case is a deliberate lenient-read policy, not
// silent loss — it is logged and the document is left untouched until the
// next mutation.
func (s *Store) All() ([]Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add appends a new link and rewrites the document.
func (s *Store) Add(name, url string) (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return Link{}, err
	}
	l := Link{
		ID:      uuid.NewString(),
		Name:    name,
		URL:     url,
		Created: time.Now().Format("2006-01-02 15:04"),
	}
	data = append(data, l)
	return l, s.write(data)
}

// Edit updates the link with the given ID in place. An unknown ID is a
// no-op.
func (s *Store) Edit(id, name, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	for i := range data {
		if data[i].ID == id {
			data[i].Name = name
			data[i].URL = url
		}
	}
	return s.write(data)
}

// Delete removes every link with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	kept := data[:0]
	for _, l := range data {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	return s.write(kept)
}

func (s *Store) load() ([]Link, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Link{}, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return []Link{}, nil
	}
	var data []Link
	if err := json.Unmarshal(b, &data); err != nil {
		logging.Warn("links store: malformed document treated as empty",
			zap.String("path", s.path), zap.Error(err))
		return []Link{}, nil
	}
	return data, nil
}

func (s *Store) write(data []Link) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

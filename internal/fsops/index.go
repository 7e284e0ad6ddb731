package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one child of a listed directory. Size is -1 for directories.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"` // relative to the root, slash-separated
	IsDir bool   `json:"is_dir"`
	Mtime int64  `json:"mtime"`
	Size  int64  `json:"size"`
}

// ListChildren returns the immediate children of rel, sorted by name
// ascending, with the reserved folder excluded. Entries are computed fresh
// per call; nothing is cached.
func (t *Tree) ListChildren(rel string) ([]Entry, error) {
	abs, err := t.resolve(rel)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !fi.IsDir() {
		return nil, ErrInvalidInput
	}
	ents, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	items := make([]Entry, 0, len(ents))
	for _, e := range ents {
		name := e.Name()
		if rel == "" && name == t.Reserved {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // vanished between ReadDir and Info
		}
		it := Entry{
			Name:  name,
			Path:  joinRel(rel, name),
			IsDir: e.IsDir(),
			Mtime: info.ModTime().Unix(),
			Size:  -1,
		}
		if !it.IsDir {
			it.Size = info.Size()
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// AllSubfolders enumerates every directory beneath the root, depth-first,
// parents before children, excluding the reserved folder and its subtree.
// Used to populate move/copy destination pickers.
func (t *Tree) AllSubfolders() ([]string, error) {
	res := []string{}
	err := t.collectFolders("", &res)
	return res, err
}

func (t *Tree) collectFolders(rel string, out *[]string) error {
	abs, err := t.resolve(rel)
	if err != nil {
		return err
	}
	ents, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	for _, e := range ents {
		name := e.Name()
		if rel == "" && name == t.Reserved {
			continue
		}
		// Directory symlinks are skipped: IsDir is false for them.
		if !e.IsDir() {
			continue
		}
		p := joinRel(rel, name)
		*out = append(*out, p)
		if err := t.collectFolders(p, out); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// basename of a relative path (slash-separated).
func baseOf(rel string) string {
	return filepath.Base(filepath.FromSlash(rel))
}

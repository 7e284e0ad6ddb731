package fsops

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// StorageStats summarizes the whole managed tree, reserved folder excluded.
type StorageStats struct {
	TotalSize int64
	Files     int
	Folders   int
	// FileTypes holds the top extensions by file count, most frequent first.
	FileTypes []TypeCount
}

// TypeCount is one extension bucket in the storage summary.
type TypeCount struct {
	Ext   string `json:"ext"`
	Count int    `json:"count"`
}

const topFileTypes = 10

// StorageStats walks the managed tree and aggregates totals plus an
// extension histogram capped at the ten most common types.
func (t *Tree) StorageStats() (StorageStats, error) {
	var st StorageStats
	types := map[string]int{}

	err := filepath.WalkDir(t.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == t.Root {
				return err
			}
			return nil
		}
		if p == t.Root {
			return nil
		}
		if d.IsDir() {
			if d.Name() == t.Reserved && filepath.Dir(p) == t.Root {
				return filepath.SkipDir
			}
			st.Folders++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		st.Files++
		st.TotalSize += info.Size()
		if ext := strings.ToLower(filepath.Ext(d.Name())); ext != "" {
			types[ext]++
		}
		return nil
	})
	if err != nil {
		return StorageStats{}, err
	}

	for ext, n := range types {
		st.FileTypes = append(st.FileTypes, TypeCount{Ext: ext, Count: n})
	}
	sort.Slice(st.FileTypes, func(i, j int) bool {
		if st.FileTypes[i].Count != st.FileTypes[j].Count {
			return st.FileTypes[i].Count > st.FileTypes[j].Count
		}
		return st.FileTypes[i].Ext < st.FileTypes[j].Ext
	})
	if len(st.FileTypes) > topFileTypes {
		st.FileTypes = st.FileTypes[:topFileTypes]
	}
	return st, nil
}

package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStat describes a single file.
type FileStat struct {
	Size     int64
	Created  time.Time
	Modified time.Time
}

// FolderStats aggregates a directory subtree. The folder itself is not
// counted in Folders.
type FolderStats struct {
	TotalSize int64
	Files     int
	Folders   int
}

// StatFile stats a path (file or directory) and returns its size and times.
func (t *Tree) StatFile(rel string) (FileStat, error) {
	abs, err := t.resolve(rel)
	if err != nil {
		return FileStat{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileStat{}, ErrNotFound
		}
		return FileStat{}, err
	}
	return FileStat{
		Size:     fi.Size(),
		Created:  createdTime(fi),
		Modified: fi.ModTime(),
	}, nil
}

// StatFolder walks all descendants of rel. Directory symlinks are not
// followed.
func (t *Tree) StatFolder(rel string) (FolderStats, error) {
	abs, err := t.resolve(rel)
	if err != nil {
		return FolderStats{}, err
	}
	var st FolderStats
	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == abs {
				return err
			}
			return nil // entry vanished mid-walk
		}
		if p == abs {
			return nil
		}
		if d.IsDir() {
			st.Folders++
			return nil
		}
		if info, err := d.Info(); err == nil {
			st.Files++
			st.TotalSize += info.Size()
		}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return FolderStats{}, ErrNotFound
		}
		return FolderStats{}, walkErr
	}
	return st, nil
}

// FormatSize renders a byte count in human units at divisor 1024, one
// decimal place, falling through to PB.
func FormatSize(n int64) string {
	v := float64(n)
	for _, u := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f %s", v, u)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f PB", v)
}

// FormatTime renders a timestamp for display, minute precision, local time.
func FormatTime(ts time.Time) string {
	return ts.Local().Format("2006-01-02 15:04")
}

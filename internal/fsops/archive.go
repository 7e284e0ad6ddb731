package fsops

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteZip streams the directory at rel into w as a deflate zip archive.
// Entry names are relative to the archived directory, so the archive root
// corresponds to the directory itself and no absolute path leaks into the
// archive. The reserved folder is left out, so zipping the root does not
// bundle internal state. The walk stops when ctx is cancelled.
func (t *Tree) WriteZip(ctx context.Context, w io.Writer, rel string) error {
	abs, err := t.resolve(rel)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if !fi.IsDir() {
		return ErrInvalidInput
	}

	zw := zip.NewWriter(w)

	reservedAbs := filepath.Join(t.Root, t.Reserved)
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // entry vanished mid-walk
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if t.Reserved != "" && p == reservedAbs {
				return filepath.SkipDir
			}
			return nil
		}
		relp, err := filepath.Rel(abs, p)
		if err != nil {
			return nil
		}
		h := &zip.FileHeader{
			Name:   filepath.ToSlash(relp),
			Method: zip.Deflate,
		}
		if info, err := d.Info(); err == nil {
			h.Modified = info.ModTime()
		}
		wr, err := zw.CreateHeader(h)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		_, cerr := io.Copy(wr, f)
		_ = f.Close()
		return cerr
	})
	if err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

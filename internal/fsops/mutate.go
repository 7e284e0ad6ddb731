package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"duffel/internal/logging"
)

// Delete removes the file or directory at rel, recursively for directories.
func (t *Tree) Delete(rel string) error {
	if t.reserved(rel) {
		return ErrForbidden
	}
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
	if fi.IsDir() {
		return os.RemoveAll(abs)
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound // vanished concurrently
		}
		return err
	}
	return nil
}

// Rename gives the entry at oldRel a new name in its own parent directory.
func (t *Tree) Rename(oldRel, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if strings.ContainsAny(newName, "/\\") {
		return fmt.Errorf("%w: name cannot contain path separators", ErrInvalidInput)
	}
	if t.reserved(oldRel) {
		return ErrForbidden
	}
	oldAbs, err := t.resolve(oldRel)
	if err != nil {
		return err
	}
	newAbs := filepath.Join(filepath.Dir(oldAbs), newName)
	if _, err := os.Lstat(newAbs); err == nil {
		return ErrConflict
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Move relocates the entry at srcRel into destFolderRel, keeping its name.
// The destination folder is created if absent.
func (t *Tree) Move(srcRel, destFolderRel string) error {
	if t.reserved(srcRel) || t.reserved(destFolderRel) {
		return ErrForbidden
	}
	srcAbs, err := t.resolve(srcRel)
	if err != nil {
		return err
	}
	dstAbs, err := t.resolve(destFolderRel, baseOf(srcRel))
	if err != nil {
		return err
	}
	if _, err := os.Lstat(dstAbs); err == nil {
		return ErrConflict
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return err
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Copy duplicates the entry at srcRel into destFolderRel. On a name
// collision the copy gets a " (copy N)" suffix before the extension, N
// counting up from 1 until a free name is found. Copy never overwrites.
func (t *Tree) Copy(srcRel, destFolderRel string) error {
	if t.reserved(srcRel) || t.reserved(destFolderRel) {
		return ErrForbidden
	}
	srcAbs, err := t.resolve(srcRel)
	if err != nil {
		return err
	}
	fi, err := os.Stat(srcAbs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	destDirAbs, err := t.resolve(destFolderRel)
	if err != nil {
		return err
	}
	dstAbs := filepath.Join(destDirAbs, baseOf(srcRel))
	if _, err := os.Lstat(dstAbs); err == nil {
		dstAbs = freeName(destDirAbs, baseOf(srcRel))
	}
	if err := os.MkdirAll(destDirAbs, 0o755); err != nil {
		return err
	}
	if fi.IsDir() {
		return copyDir(srcAbs, dstAbs)
	}
	return copyFile(srcAbs, dstAbs)
}

// BulkCopy applies Copy per path, best effort. Reserved and nonexistent
// sources are skipped silently; a failure on one path does not block the
// rest. All paths are sandbox-checked up front so an unsafe path aborts the
// whole operation before any side effects.
func (t *Tree) BulkCopy(rels []string, destFolderRel string) error {
	if err := t.checkAll(append([]string{destFolderRel}, rels...)); err != nil {
		return err
	}
	for _, rel := range rels {
		if t.reserved(rel) {
			continue
		}
		if err := t.Copy(rel, destFolderRel); err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
				continue
			}
			// Best effort, no rollback: keep going with the rest.
			logging.Warn("bulk copy: item failed", zap.String("path", rel), zap.Error(err))
		}
	}
	return nil
}

// BulkDelete applies Delete per path, best effort. Already-deleted paths are
// not an error.
func (t *Tree) BulkDelete(rels []string) error {
	if err := t.checkAll(rels); err != nil {
		return err
	}
	for _, rel := range rels {
		if t.reserved(rel) {
			continue
		}
		if err := t.Delete(rel); err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
				continue
			}
			logging.Warn("bulk delete: item failed", zap.String("path", rel), zap.Error(err))
		}
	}
	return nil
}

func (t *Tree) checkAll(rels []string) error {
	for _, rel := range rels {
		if _, err := t.resolve(rel); err != nil {
			return err
		}
	}
	return nil
}

// CreateFolder creates the directory at rel, with intermediate directories.
func (t *Tree) CreateFolder(rel string) error {
	if strings.TrimSpace(rel) == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidInput)
	}
	if t.reserved(rel) {
		return ErrForbidden
	}
	abs, err := t.resolve(rel)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err == nil {
		return ErrConflict
	}
	return os.MkdirAll(abs, 0o755)
}

// CreateFile creates an empty file named filename inside folderRel, creating
// parent directories as needed.
func (t *Tree) CreateFile(folderRel, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrInvalidInput)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: filename cannot contain path separators", ErrInvalidInput)
	}
	if t.reserved(folderRel) {
		return ErrForbidden
	}
	abs, err := t.resolve(folderRel, filename)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err == nil {
		return ErrConflict
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrConflict // lost the creation race
		}
		return err
	}
	return f.Close()
}

// ReadText returns the full content of a file as UTF-8 text.
func (t *Tree) ReadText(rel string) (string, error) {
	abs, err := t.resolve(rel)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrNotText
	}
	return string(b), nil
}

// WriteText replaces the full content of the file at rel.
func (t *Tree) WriteText(rel, content string) error {
	if t.reserved(rel) {
		return ErrForbidden
	}
	abs, err := t.resolve(rel)
	if err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// freeName finds an unused name in dirAbs by appending " (copy N)" before
// the extension.
func freeName(dirAbs, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for n := 1; ; n++ {
		cand := filepath.Join(dirAbs, fmt.Sprintf("%s (copy %d)%s", base, n, ext))
		if _, err := os.Lstat(cand); errors.Is(err, fs.ErrNotExist) {
			return cand
		}
	}
}

// copyFile copies src to dst and preserves the source's modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	_ = out.Sync()
	if err := out.Close(); err != nil {
		return err
	}
	if fi, err := os.Stat(src); err == nil {
		_ = os.Chtimes(dst, time.Now(), fi.ModTime())
	}
	return nil
}

// copyDir copies a directory tree. Symlinked entries are skipped rather than
// followed.
func copyDir(srcDir, dstDir string) error {
	ents, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	for _, e := range ents {
		src := filepath.Join(srcDir, e.Name())
		dst := filepath.Join(dstDir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			continue
		}
		if e.IsDir() {
			if err := copyDir(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

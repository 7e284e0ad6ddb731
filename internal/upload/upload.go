// Package upload lands multipart file uploads in the managed tree.
//
// Each file is spooled to <stateDir>/uploads, hashed while copying, then
// renamed into its destination (with a copy fallback when the spool and the
// tree sit on different filesystems). A half-written upload therefore never
// appears under the root.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

type Saver struct {
	dir string // spool directory
}

func New(stateDir string) (*Saver, error) {
	dir := filepath.Join(stateDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Saver{dir: dir}, nil
}

// Save streams src into dstAbs. Existing files are overwritten. Returns the
// sha256 of the content and the byte count.
func (s *Saver) Save(ctx context.Context, dstAbs string, src io.Reader) (sha256hex string, size int64, err error) {
	tmp := filepath.Join(s.dir, fmt.Sprintf("mp-%d.tmp", time.Now().UnixNano()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, err
	}

	h := sha256.New()
	buf := make([]byte, 1024*1024)
	for {
		if ctx.Err() != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return "", 0, ctx.Err()
		}
		rn, rerr := src.Read(buf)
		if rn > 0 {
			_, _ = h.Write(buf[:rn])
			wn, werr := f.Write(buf[:rn])
			size += int64(wn)
			if werr != nil {
				_ = f.Close()
				_ = os.Remove(tmp)
				return "", 0, werr
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return "", 0, rerr
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		_ = os.Remove(tmp)
		return "", 0, err
	}
	if err := os.Rename(tmp, dstAbs); err != nil {
		// Cross-device spool: fall back to copy+fsync.
		if err2 := copyFile(tmp, dstAbs); err2 != nil {
			_ = os.Remove(tmp)
			return "", 0, fmt.Errorf("land upload: rename=%v copy=%v", err, err2)
		}
		_ = os.Remove(tmp)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

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
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// Package sandbox confines user-supplied relative paths to a managed root.
// Every filesystem access in the server resolves through Resolve first; it is
// the single trust boundary between untrusted request paths and the disk.
package sandbox

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when a resolved path would fall outside the root.
var ErrUnsafePath = errors.New("unsafe path")

// CleanRel takes a user path like "", ".", "/a/b", "a//b", "a/../b" and
// returns a slash-based, no-leading-slash relative path ("" means root).
func CleanRel(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p) // force absolute for stable cleaning
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// FirstSegment returns the leading path segment of a cleaned relative path,
// or "" for the root.
func FirstSegment(rel string) string {
	rel = CleanRel(rel)
	if rel == "" {
		return ""
	}
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}

// Resolve joins the given relative parts under rootAbs and returns an
// absolute filesystem path. It fails with ErrUnsafePath unless the
// canonicalized result is the root itself or a strict descendant of it.
//
// The containment check runs on canonical paths: symlinks in the existing
// portion of the path are resolved first, so a link pointing outside the
// root cannot smuggle operations out. The prefix comparison is bounded by a
// path separator, so a sibling like "rootXevil" never matches "rootX".
func Resolve(rootAbs string, parts ...string) (string, error) {
	rel := CleanRel(path.Join(parts...))
	if strings.Contains(rel, "\x00") {
		return "", ErrUnsafePath
	}

	rootCanon, err := canonicalize(filepath.Clean(rootAbs))
	if err != nil {
		return "", err
	}
	if rel == "" {
		return filepath.Clean(rootAbs), nil
	}

	abs := filepath.Join(filepath.Clean(rootAbs), filepath.FromSlash(rel))
	canon, err := canonicalize(abs)
	if err != nil {
		return "", err
	}
	if canon != rootCanon && !strings.HasPrefix(canon, rootCanon+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return abs, nil
}

// canonicalize resolves symlinks on the longest existing prefix of p and
// re-appends the not-yet-existing remainder lexically.
func canonicalize(p string) (string, error) {
	suffix := ""
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			if suffix == "" {
				return resolved, nil
			}
			return filepath.Join(resolved, suffix), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Nothing on the way down exists; the lexical form is canonical.
			return p, nil
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}

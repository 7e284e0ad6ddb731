// Package fsops implements the filesystem side of the file manager: metadata
// probing, directory listing, the mutation operations (delete, rename, move,
// copy, bulk variants, create), text editing, storage statistics, and zip
// archiving. All operations are expressed against a Tree bound to a managed
// root; user paths are resolved through the sandbox before any disk access.
package fsops

import (
	"errors"

	"duffel/internal/sandbox"
)

// Error taxonomy. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrNotFound     = errors.New("file or folder not found")
	ErrConflict     = errors.New("file or folder already exists")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotText      = errors.New("file is not a text file")
)

// Tree is a managed directory tree. Reserved names a single child of the
// root that holds internal state: it is never listed and never a legal
// target of user-initiated mutations.
type Tree struct {
	Root     string // absolute path of the managed root
	Reserved string // e.g. ".system"
}

func New(rootAbs, reserved string) *Tree {
	return &Tree{Root: rootAbs, Reserved: reserved}
}

// resolve maps relative parts to an absolute path under the root.
func (t *Tree) resolve(parts ...string) (string, error) {
	return sandbox.Resolve(t.Root, parts...)
}

// reserved reports whether rel points at or into the reserved folder.
func (t *Tree) reserved(rel string) bool {
	return t.Reserved != "" && sandbox.FirstSegment(rel) == t.Reserved
}

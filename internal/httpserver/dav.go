package httpserver

import (
	"context"
	"os"

	"golang.org/x/net/webdav"

	"duffel/internal/sandbox"
)

// davFS wraps the managed root for the /dav/ mount and keeps the reserved
// folder invisible and immutable. A URL-path check alone is not enough:
// MOVE and COPY resolve their Destination header inside the webdav handler,
// so every filesystem entry point has to enforce the boundary itself.
type davFS struct {
	dir      webdav.Dir
	reserved string
}

func newDavFS(root, reserved string) davFS {
	return davFS{dir: webdav.Dir(root), reserved: reserved}
}

func (d davFS) offLimits(name string) bool {
	return d.reserved != "" && sandbox.FirstSegment(name) == d.reserved
}

func (d davFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	if d.offLimits(name) {
		return os.ErrPermission
	}
	return d.dir.Mkdir(ctx, name, perm)
}

func (d davFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if d.offLimits(name) {
		if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
			return nil, os.ErrPermission
		}
		return nil, os.ErrNotExist
	}
	f, err := d.dir.OpenFile(ctx, name, flag, perm)
	if err != nil {
		return nil, err
	}
	if sandbox.CleanRel(name) == "" {
		return davRootDir{File: f, reserved: d.reserved}, nil
	}
	return f, nil
}

func (d davFS) RemoveAll(ctx context.Context, name string) error {
	if d.offLimits(name) {
		return os.ErrPermission
	}
	return d.dir.RemoveAll(ctx, name)
}

func (d davFS) Rename(ctx context.Context, oldName, newName string) error {
	if d.offLimits(oldName) || d.offLimits(newName) {
		return os.ErrPermission
	}
	return d.dir.Rename(ctx, oldName, newName)
}

func (d davFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if d.offLimits(name) {
		return nil, os.ErrNotExist
	}
	return d.dir.Stat(ctx, name)
}

// davRootDir filters the reserved entry out of root directory listings, so a
// PROPFIND on the mount root never advertises it.
type davRootDir struct {
	webdav.File
	reserved string
}

func (f davRootDir) Readdir(count int) ([]os.FileInfo, error) {
	ents, err := f.File.Readdir(count)
	kept := ents[:0]
	for _, fi := range ents {
		if fi.Name() == f.reserved {
			continue
		}
		kept = append(kept, fi)
	}
	return kept, err
}

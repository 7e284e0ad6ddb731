package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCleanRel(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"  ", ""},
		{"a", "a"},
		{"/a/b", "a/b"},
		{"a//b", "a/b"},
		{"a/./b", "a/b"},
		{"a/../b", "b"},
		{"../../etc/passwd", "etc/passwd"},
		{"..", ""},
		{`a\b\c`, "a/b/c"},
		{"a/b/", "a/b"},
	}
	for _, tc := range cases {
		if got := CleanRel(tc.in); got != tc.want {
			t.Errorf("CleanRel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFirstSegment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"a", "a"},
		{"a/b/c", "a"},
		{"/x/y", "x"},
		{".system/links.json", ".system"},
	}
	for _, tc := range cases {
		if got := FirstSegment(tc.in); got != tc.want {
			t.Errorf("FirstSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveStaysInside(t *testing.T) {
	root := t.TempDir()

	cases := []struct {
		name string
		rel  string
		want string
	}{
		{"empty is root", "", root},
		{"dot is root", ".", root},
		{"simple child", "a.txt", filepath.Join(root, "a.txt")},
		{"nested", "a/b/c", filepath.Join(root, "a", "b", "c")},
		{"traversal neutralized", "../x", filepath.Join(root, "x")},
		{"deep traversal neutralized", "a/../../../x", filepath.Join(root, "x")},
		{"leading slash stripped", "/etc/passwd", filepath.Join(root, "etc", "passwd")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(root, tc.rel)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.rel, err)
			}
			if got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.rel, got, tc.want)
			}
		})
	}
}

func TestResolveNulByte(t *testing.T) {
	if _, err := Resolve(t.TempDir(), "a\x00b"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("got %v, want ErrUnsafePath", err)
	}
}

func TestResolveSiblingPrefix(t *testing.T) {
	// A root named "rootX" must not admit paths under sibling "rootXevil".
	base := t.TempDir()
	root := filepath.Join(base, "rootX")
	evil := filepath.Join(base, "rootXevil")
	for _, d := range []string{root, evil} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	// CleanRel collapses the leading "..", so this must resolve inside
	// root and never land in the sibling.
	got, err := Resolve(root, "../rootXevil/secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join(root, "rootXevil", "secret") {
		t.Fatalf("resolved to %q, escaped the root", got)
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	for _, d := range []string{root, outside} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "leak")); err != nil {
		t.Fatal(err)
	}

	if _, err := Resolve(root, "leak/secret.txt"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("symlink escape not caught, err = %v", err)
	}
	// A path under the link that does not exist yet must be refused too.
	if _, err := Resolve(root, "leak/new-file.txt"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("symlink escape via missing file not caught, err = %v", err)
	}
}

func TestResolveSymlinkInside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "real"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(root, "alias/file.txt"); err != nil {
		t.Fatalf("in-root symlink rejected: %v", err)
	}
}

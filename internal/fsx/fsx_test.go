package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyDirOverwrites(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"a.txt":                       "new a",
		filepath.Join("sub", "b.txt"): "new b",
	}
	for rel, body := range files {
		if err := os.WriteFile(filepath.Join(src, rel), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Pre-existing destination content must be overwritten.
	if err := os.WriteFile(filepath.Join(dst, "a.txt"), []byte("old a"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyDir(dst, src); err != nil {
		t.Fatalf("CopyDir: %v", err)
	}
	for rel, want := range files {
		data, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", rel, data, want)
		}
	}
}

func TestCopyDirMissingSource(t *testing.T) {
	if err := CopyDir(t.TempDir(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing source tree")
	}
}

func TestLocateByPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libfoo_internal.lib", "other.lib"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Directories never match, only files.
	if err := os.Mkdir(filepath.Join(dir, "libfoo_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := LocateByPrefix(dir, "libfoo")
	if err != nil {
		t.Fatalf("LocateByPrefix: %v", err)
	}
	if got != filepath.Join(dir, "libfoo_internal.lib") {
		t.Errorf("LocateByPrefix = %q", got)
	}
}

func TestLocateByPrefixNotFound(t *testing.T) {
	_, err := LocateByPrefix(t.TempDir(), "libfoo")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLocateByPrefixAmbiguous(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libfoo_a.lib", "libfoo_b.lib"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	_, err := LocateByPrefix(dir, "libfoo")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
}

func TestRenameByPrefix(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "libfoo_internal.lib"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := RenameByPrefix(dir, "libfoo", "foo.lib")
	if err != nil {
		t.Fatalf("RenameByPrefix: %v", err)
	}
	if got != filepath.Join(dir, "foo.lib") {
		t.Errorf("RenameByPrefix = %q", got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Error("renamed file missing")
	}
}

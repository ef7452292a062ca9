// Package fsx holds the small filesystem capabilities the build
// orchestrator calls: recursive directory copy and locate-by-prefix rename.
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const dirPerm = 0o755

// ErrNotFound reports that no entry matched a prefix query.
var ErrNotFound = errors.New("no matching file")

// ErrAmbiguous reports that more than one entry matched a prefix query.
var ErrAmbiguous = errors.New("ambiguous match")

// CopyDir copies the tree rooted at src into dst, overwriting any
// existing destination file. Symlinks are followed; the copy is a plain
// file-content copy.
func CopyDir(dst, src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		return copyFile(target, path, info.Mode())
	})
}

func copyFile(dst, src string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

// LocateByPrefix returns the single file in dir whose name starts with
// prefix. Zero matches yields ErrNotFound, more than one ErrAmbiguous.
func LocateByPrefix(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var match string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: both %s and %s start with %q in %s", ErrAmbiguous, match, e.Name(), prefix, dir)
		}
		match = e.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: no file starting with %q in %s", ErrNotFound, prefix, dir)
	}
	return filepath.Join(dir, match), nil
}

// RenameByPrefix finds the single file in dir starting with prefix and
// renames it to newName (also in dir), returning the new path.
func RenameByPrefix(dir, prefix, newName string) (string, error) {
	from, err := LocateByPrefix(dir, prefix)
	if err != nil {
		return "", err
	}
	to := filepath.Join(dir, newName)
	if err := os.Rename(from, to); err != nil {
		return "", err
	}
	return to, nil
}

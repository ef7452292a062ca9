// Package archive unpacks a vendored source archive into the build
// tree, stripping the single top-level directory most release tarballs
// carry.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

const dirPerm = 0o755

// Format identifies a supported source archive format.
type Format int

const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTarXz
	FormatTarZst
	FormatZip
)

// DetectFormat determines the archive format from the file name.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar.zst"):
		return FormatTarZst
	default:
		return FormatUnknown
	}
}

// Unpack extracts archivePath into destDir with the top-level directory
// stripped, so destDir itself becomes the source root.
func Unpack(archivePath, destDir string) error {
	switch DetectFormat(archivePath) {
	case FormatZip:
		return unpackZip(archivePath, destDir)
	case FormatTarGz:
		return unpackTar(archivePath, destDir, newGzipReader)
	case FormatTarXz:
		return unpackTar(archivePath, destDir, newXzReader)
	case FormatTarZst:
		return unpackTar(archivePath, destDir, newZstdReader)
	default:
		return fmt.Errorf("unsupported source archive format: %s", archivePath)
	}
}

func newGzipReader(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
func newXzReader(r io.Reader) (io.Reader, error)   { return xz.NewReader(r) }
func newZstdReader(r io.Reader) (io.Reader, error) { return zstd.NewReader(r) }

func unpackTar(archivePath, destDir string, decompress func(io.Reader) (io.Reader, error)) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	dr, err := decompress(f)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", archivePath, err)
	}

	strip, err := tarStripPrefix(tar.NewReader(dr))
	if err != nil {
		return err
	}

	// Rewind for the extraction pass.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dr, err = decompress(f)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", archivePath, err)
	}

	tr := tar.NewReader(dr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		name := strings.TrimPrefix(hdr.Name, strip)
		if name == "" {
			continue
		}
		path, err := safePath(destDir, name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, dirPerm); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(path, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			os.Remove(path)
			if err := os.Symlink(hdr.Linkname, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func tarStripPrefix(tr *tar.Reader) (string, error) {
	hdr, err := tr.Next()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.SplitN(hdr.Name, "/", 2)[0] + "/", nil
}

func unpackZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	var strip string
	if len(r.File) > 0 {
		strip = strings.SplitN(r.File[0].Name, "/", 2)[0] + "/"
	}

	for _, f := range r.File {
		name := strings.TrimPrefix(f.Name, strip)
		if name == "" {
			continue
		}
		path, err := safePath(destDir, name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, dirPerm); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func safePath(destDir, name string) (string, error) {
	path := filepath.Join(destDir, name)
	if !strings.HasPrefix(path, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return path, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

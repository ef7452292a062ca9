// Package artifact locates the libraries a finished build produced and
// assembles the metadata record handed to the consuming pipeline.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeromq/zmqsrc/internal/fsx"
	"github.com/zeromq/zmqsrc/internal/plan"
	"github.com/zeromq/zmqsrc/internal/platform"
)

// ErrNoLibDir reports an install tree with neither lib nor lib64.
var ErrNoLibDir = errors.New("install tree has no lib or lib64 directory")

// Artifacts is the final build record: where the headers and libraries
// landed and which libraries the consumer links, in order.
type Artifacts struct {
	IncludeDir string
	LibDir     string
	OutDir     string
	Libs       []plan.LinkLib
}

// ResolveOptions parameterizes Resolve beyond the install tree itself.
type ResolveOptions struct {
	Family     platform.Family
	LinkStatic bool

	// InternalName is the prefix the MSVC toolchain gives the static
	// archive; CanonicalName is what it gets renamed to. Both default
	// to the libzmq convention.
	InternalName  string
	CanonicalName string
}

func (o *ResolveOptions) normalize() {
	if o.InternalName == "" {
		o.InternalName = "libzmq"
	}
	if o.CanonicalName == "" {
		o.CanonicalName = "zmq.lib"
	}
}

// Resolve inspects installDir after a successful build, canonicalizes
// the MSVC static archive name, and returns the artifact record. Any
// failure here is a build correctness violation, promoted to the same
// fatal class as a failed toolchain stage.
func Resolve(outDir, installDir string, libs []plan.LinkLib, opts ResolveOptions) (*Artifacts, error) {
	opts.normalize()

	libDir, err := findLibDir(installDir)
	if err != nil {
		return nil, err
	}

	includeDir := filepath.Join(installDir, "include")
	if info, err := os.Stat(includeDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("install tree has no include directory at %s", includeDir)
	}

	// MSVC's static-archive name is not predictable from the options
	// alone; find the one file carrying the internal build name and
	// give it the canonical one.
	if opts.Family == platform.MSVC && opts.LinkStatic {
		if _, err := fsx.RenameByPrefix(libDir, opts.InternalName, opts.CanonicalName); err != nil {
			return nil, fmt.Errorf("failed to canonicalize static library name: %w", err)
		}
	}

	if len(libs) == 0 {
		return nil, errors.New("resolved build reports no libraries")
	}

	return &Artifacts{
		IncludeDir: includeDir,
		LibDir:     libDir,
		OutDir:     outDir,
		Libs:       libs,
	}, nil
}

// findLibDir probes lib then lib64 under the install root.
func findLibDir(installDir string) (string, error) {
	for _, name := range []string{"lib", "lib64"} {
		dir := filepath.Join(installDir, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoLibDir, installDir)
}

// WriteMetadata serializes the record into the consuming pipeline's
// key/value protocol, one line per entry.
func (a *Artifacts) WriteMetadata(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "link-search-path=%s\n", a.LibDir); err != nil {
		return err
	}
	for _, lib := range a.Libs {
		if _, err := fmt.Fprintf(w, "link-library=%s%s\n", lib.Kind.MetaPrefix(), lib.Name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "include-path=%s\n", a.IncludeDir); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "lib-path=%s\n", a.LibDir); err != nil {
		return err
	}
	if a.OutDir != "" {
		if _, err := fmt.Fprintf(w, "out-path=%s\n", a.OutDir); err != nil {
			return err
		}
	}
	return nil
}

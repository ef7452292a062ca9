package toolchain

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeromq/zmqsrc/internal/fsx"
)

// runDirect bypasses the vendored tree's own build system: it compiles
// every enumerated source against the plan's defines and includes, then
// archives the objects into a single static library under the install
// prefix and copies the public headers across.
func (d *Driver) runDirect() error {
	objDir := filepath.Join(d.BuildRoot(), "obj")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}

	common := d.directFlags()

	var objects []string
	compile := func(compiler string, sources, extra []string) error {
		for _, src := range sources {
			obj := filepath.Join(objDir, objectName(src))
			args := []string{"-c"}
			args = append(args, extra...)
			args = append(args, common...)
			args = append(args, "-o", obj, src)
			if err := d.runStage("building", d.SourceDir(), d.Env, compiler, args...); err != nil {
				return err
			}
			objects = append(objects, obj)
		}
		return nil
	}

	if err := compile(d.compiler("CC", "cc"), d.Plan.CSources, nil); err != nil {
		return err
	}
	if err := compile(d.compiler("CXX", "c++"), d.Plan.CxxSources, d.Plan.CxxFlags); err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("direct compile: no source files in plan")
	}

	libDir := filepath.Join(d.InstallDir(), "lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return fmt.Errorf("failed to create lib dir: %w", err)
	}
	arArgs := append([]string{"crs", filepath.Join(libDir, "libzmq.a")}, objects...)
	if err := d.runStage("building", d.SourceDir(), d.Env, "ar", arArgs...); err != nil {
		return err
	}

	return d.installHeaders()
}

// Trees that feed the vendored library's own test and benchmark
// binaries, never the library itself.
var nonLibraryDirs = map[string]bool{
	"tests":     true,
	"unittests": true,
	"perf":      true,
}

// EnumerateSources classifies every compilable file under the staged
// source tree, returning paths relative to dir in walk order. Hidden
// directories and the library's test/benchmark trees are skipped.
func EnumerateSources(dir string) (cSources, cxxSources []string, err error) {
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path == dir {
				return nil
			}
			if strings.HasPrefix(name, ".") || nonLibraryDirs[name] {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		switch filepath.Ext(name) {
		case ".c":
			cSources = append(cSources, rel)
		case ".cpp", ".cc", ".cxx":
			cxxSources = append(cxxSources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate sources under %s: %w", dir, err)
	}
	return cSources, cxxSources, nil
}

// directFlags renders defines and include paths as compiler arguments.
func (d *Driver) directFlags() []string {
	var flags []string
	for _, kv := range d.Plan.Defines() {
		flags = append(flags, "-D"+kv[0]+"="+kv[1])
	}
	flags = append(flags, "-I"+filepath.Join(d.SourceDir(), "include"))
	for _, dir := range d.Plan.IncludeDirs {
		flags = append(flags, "-I"+dir)
	}
	return flags
}

func (d *Driver) compiler(envKey, fallback string) string {
	if v, ok := d.Env[envKey]; ok && v != "" {
		return v
	}
	return fallback
}

// installHeaders copies the vendored public headers into the install
// prefix, which the resolver expects regardless of mode.
func (d *Driver) installHeaders() error {
	src := filepath.Join(d.SourceDir(), "include")
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("failed while installing: vendored tree has no include dir: %w", err)
	}
	dst := filepath.Join(d.InstallDir(), "include")
	if err := fsx.CopyDir(dst, src); err != nil {
		return fmt.Errorf("failed while installing headers: %w", err)
	}
	return nil
}

// objectName maps a source path to a flat, collision-resistant object
// file name (src/a.cpp -> src_a.o).
func objectName(src string) string {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	base = strings.ReplaceAll(base, string(os.PathSeparator), "_")
	base = strings.ReplaceAll(base, "/", "_")
	return base + ".o"
}

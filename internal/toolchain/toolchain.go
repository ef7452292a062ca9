// Package toolchain sequences and supervises the external build
// processes (configure/make, cmake, or a direct compiler invocation)
// for a derived build plan. Every stage is a blocking subprocess; the
// first failing stage aborts the whole invocation.
package toolchain

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/zeromq/zmqsrc/internal/envutil"
	"github.com/zeromq/zmqsrc/internal/plan"
	"github.com/zeromq/zmqsrc/internal/platform"
)

// Mode selects which build system drives the vendored tree.
type Mode int

const (
	Autotools Mode = iota
	CMake
	DirectCompile
)

var modeNames = map[Mode]string{
	Autotools:     "autotools",
	CMake:         "cmake",
	DirectCompile: "direct",
}

func (m Mode) String() string { return modeNames[m] }

// StageError reports a failed toolchain stage: which stage, the exact
// command line attempted, and the underlying exit condition. It is
// always fatal; no stage is retried.
type StageError struct {
	Stage string
	Cmd   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed while %s: command %q: %v", e.Stage, e.Cmd, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Driver executes a build plan inside an output directory it owns for
// the duration of the invocation. Layout: <out>/build/src holds the
// (mutable) source copy, <out>/install receives the artifacts.
type Driver struct {
	Plan   *plan.Plan
	Family platform.Family
	OutDir string

	// ConfigurePath overrides the configure script location for
	// autotools-style builds.
	ConfigurePath string

	// Env is the explicit environment forwarded to every subprocess,
	// copied by value per command (CC/CXX overrides, MAKEFLAGS, PATH).
	Env map[string]string

	// Stdout/Stderr receive subprocess output; nil means the
	// orchestrator's stderr. Build output never shares the stdout
	// metadata protocol surface.
	Stdout io.Writer
	Stderr io.Writer
}

// BuildRoot is the scratch tree mutated by the chosen toolchain.
func (d *Driver) BuildRoot() string { return filepath.Join(d.OutDir, "build") }

// SourceDir is where the vendored source copy lives during the build.
func (d *Driver) SourceDir() string { return filepath.Join(d.BuildRoot(), "src") }

// InstallDir is the configure/install prefix receiving final artifacts.
func (d *Driver) InstallDir() string { return filepath.Join(d.OutDir, "install") }

// Clean removes stale build and install trees from a prior run. Every
// invocation is a clean build; the driver never builds incrementally.
func (d *Driver) Clean() error {
	for _, dir := range []string{d.BuildRoot(), d.InstallDir()} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove stale %s: %w", dir, err)
		}
	}
	return nil
}

// Execute runs the plan in the given mode. It assumes Clean has run and
// the source has been placed at SourceDir. On the first non-zero exit it
// returns a StageError naming the stage and command; nothing is retried.
func (d *Driver) Execute(mode Mode) error {
	if err := os.MkdirAll(d.InstallDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create install dir: %w", err)
	}
	switch mode {
	case Autotools:
		return d.runAutotools()
	case CMake:
		return d.runCMake()
	case DirectCompile:
		return d.runDirect()
	default:
		return fmt.Errorf("unknown toolchain mode %d", int(mode))
	}
}

// runStage executes one external command with the given environment
// overrides, logging it first. A non-zero exit turns into a StageError
// carrying the full command line.
func (d *Driver) runStage(stage, dir string, env map[string]string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = d.stdout()
	cmd.Stderr = d.stderr()
	if len(env) > 0 {
		cmd.Env = envutil.Merge(os.Environ(), env)
	}

	line := commandLine(name, args)
	log.Infof("%s: %s", stage, line)

	if err := cmd.Run(); err != nil {
		return &StageError{Stage: stage, Cmd: line, Err: err}
	}
	return nil
}

func (d *Driver) stdout() io.Writer {
	if d.Stdout != nil {
		return d.Stdout
	}
	return os.Stderr
}

func (d *Driver) stderr() io.Writer {
	if d.Stderr != nil {
		return d.Stderr
	}
	return os.Stderr
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// PosixPath rewrites a Windows drive path (C:/a/b or C:\a\b) into the
// /C/a/b form POSIX-style shell tooling expects as a --prefix argument.
// Paths not matching <letter>:<slash>... pass through unchanged.
func PosixPath(p string) string {
	if len(p) < 3 {
		return p
	}
	drive := p[0]
	if !isDriveLetter(drive) || p[1] != ':' || (p[2] != '/' && p[2] != '\\') {
		return p
	}
	rest := strings.ReplaceAll(p[2:], `\`, "/")
	return "/" + string(drive) + rest
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

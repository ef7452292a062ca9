package zmqsrc

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zeromq/zmqsrc/internal/platform"
	"github.com/zeromq/zmqsrc/internal/toolchain"
)

// Mode selects how the vendored tree is built.
type Mode int

const (
	// ModeAuto picks autotools on POSIX families and CMake on Windows.
	ModeAuto Mode = iota
	ModeAutotools
	ModeCMake
	ModeDirectCompile
)

// LibLocation points at an externally built dependency.
type LibLocation struct {
	LibDir     string
	IncludeDir string
}

// Options is the full configuration for one build invocation. It is
// captured by value when the build starts and never mutated afterwards.
type Options struct {
	Debug          bool
	LinkStatic     bool
	EnableDraft    bool
	EnableCurve    bool
	EnablePerfTool bool

	// ExternalCrypto switches the build to an external libsodium; nil
	// compiles the bundled fallback instead.
	ExternalCrypto *LibLocation

	// ConfigurePath overrides the configure script; ConfigureArgs are
	// appended to every configure invocation.
	ConfigurePath string
	ConfigureArgs []string

	// SourceDir is the vendored tree; SourceArchive, when set, is a
	// tarball/zip unpacked in its place.
	SourceDir     string
	SourceArchive string

	OutDir       string
	TargetTriple string
	HostTriple   string

	Mode Mode

	// Env is the explicit environment every subprocess sees (CC/CXX,
	// MAKEFLAGS, PATH overrides). The library itself never reads the
	// ambient process environment.
	Env map[string]string
}

// DefaultSourceDir is where the vendored tree is expected when no
// explicit source location is configured.
const DefaultSourceDir = "vendor"

// Normalize fills defaults for unset fields.
func (o *Options) Normalize() {
	if o.SourceDir == "" && o.SourceArchive == "" {
		o.SourceDir = DefaultSourceDir
	}
	if o.OutDir != "" {
		o.OutDir = filepath.Clean(o.OutDir)
	}
}

// Validate enforces configuration invariants before any side effect.
func (o *Options) Validate() error {
	if o.TargetTriple == "" {
		return errors.New("target triple must be set before building")
	}
	if o.HostTriple == "" {
		return errors.New("host triple must be set before building")
	}
	if o.OutDir == "" {
		return errors.New("output directory must be set before building")
	}
	if platform.Classify(o.TargetTriple) == platform.MSVC && !o.LinkStatic {
		return errors.New("dynamic linking is not supported on the msvc family")
	}
	return nil
}

// clone deep-copies the option value so a captured build is immune to
// later builder mutation.
func (o Options) clone() Options {
	c := o
	c.ConfigureArgs = append([]string(nil), o.ConfigureArgs...)
	if o.ExternalCrypto != nil {
		loc := *o.ExternalCrypto
		c.ExternalCrypto = &loc
	}
	if o.Env != nil {
		c.Env = make(map[string]string, len(o.Env))
		for k, v := range o.Env {
			c.Env[k] = v
		}
	}
	return c
}

// toolchainMode resolves ModeAuto against the platform family.
func (o Options) toolchainMode(family platform.Family) (toolchain.Mode, error) {
	switch o.Mode {
	case ModeAutotools:
		return toolchain.Autotools, nil
	case ModeCMake:
		return toolchain.CMake, nil
	case ModeDirectCompile:
		return toolchain.DirectCompile, nil
	case ModeAuto:
		if family.Windows() {
			return toolchain.CMake, nil
		}
		return toolchain.Autotools, nil
	default:
		return 0, fmt.Errorf("unknown build mode %d", int(o.Mode))
	}
}

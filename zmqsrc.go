// Package zmqsrc orchestrates building the vendored libzmq source tree
// with the native toolchain and reports the resulting artifact locations
// to a consuming build pipeline.
//
// Usage mirrors the upstream source crate:
//
//	artifacts, err := zmqsrc.New().
//		LinkStatic(true).
//		OutDir(outDir).
//		Target("x86_64-unknown-linux-gnu").
//		Host("x86_64-unknown-linux-gnu").
//		Run()
//
// A build invocation is strictly sequential (classify, probe, plan,
// execute, resolve) and every failure is terminal: there is no partial
// success and no retry.
package zmqsrc

import (
	"fmt"
	"os"

	"github.com/zeromq/zmqsrc/internal/archive"
	"github.com/zeromq/zmqsrc/internal/artifact"
	"github.com/zeromq/zmqsrc/internal/fsx"
	"github.com/zeromq/zmqsrc/internal/manifest"
	"github.com/zeromq/zmqsrc/internal/plan"
	"github.com/zeromq/zmqsrc/internal/platform"
	"github.com/zeromq/zmqsrc/internal/probe"
	"github.com/zeromq/zmqsrc/internal/toolchain"
)

// Artifacts is the metadata record a successful build hands downstream.
type Artifacts = artifact.Artifacts

// Build accumulates configuration through chained calls, then derives
// and executes the build plan on Run. The options are snapshotted when
// Run starts; mutating the builder afterwards has no effect on a build
// in flight.
type Build struct {
	opts Options
}

// New returns a builder with default options.
func New() *Build { return &Build{} }

func (b *Build) Debug(v bool) *Build { b.opts.Debug = v; return b }

func (b *Build) LinkStatic(v bool) *Build { b.opts.LinkStatic = v; return b }

func (b *Build) EnableDraft(v bool) *Build { b.opts.EnableDraft = v; return b }

func (b *Build) EnableCurve(v bool) *Build { b.opts.EnableCurve = v; return b }

func (b *Build) EnablePerfTool(v bool) *Build { b.opts.EnablePerfTool = v; return b }

func (b *Build) ConfigurePath(path string) *Build { b.opts.ConfigurePath = path; return b }

func (b *Build) ConfigureArgs(args ...string) *Build { b.opts.ConfigureArgs = args; return b }

func (b *Build) SourceDir(dir string) *Build { b.opts.SourceDir = dir; return b }

func (b *Build) SourceArchive(path string) *Build { b.opts.SourceArchive = path; return b }

func (b *Build) OutDir(dir string) *Build { b.opts.OutDir = dir; return b }

func (b *Build) Target(triple string) *Build { b.opts.TargetTriple = triple; return b }

func (b *Build) Host(triple string) *Build { b.opts.HostTriple = triple; return b }

func (b *Build) Mode(m Mode) *Build { b.opts.Mode = m; return b }

func (b *Build) Env(env map[string]string) *Build { b.opts.Env = env; return b }

// ExternalCrypto points the build at an external libsodium install
// instead of the bundled fallback implementation.
func (b *Build) ExternalCrypto(libDir, includeDir string) *Build {
	b.opts.ExternalCrypto = &LibLocation{LibDir: libDir, IncludeDir: includeDir}
	return b
}

// Options returns a copy of the accumulated options.
func (b *Build) Options() Options { return b.opts.clone() }

// Run executes the build and resolves the produced artifacts. Any error
// is fatal for the whole invocation: a failed stage leaves no usable
// partial state behind.
func (b *Build) Run() (*Artifacts, error) {
	opts := b.opts.clone()
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return run(opts)
}

func run(opts Options) (*Artifacts, error) {
	family := platform.Classify(opts.TargetTriple)

	info, err := probeCapabilities(opts, family)
	if err != nil {
		return nil, err
	}

	mode, err := opts.toolchainMode(family)
	if err != nil {
		return nil, err
	}

	d := &toolchain.Driver{
		Family:        family,
		OutDir:        opts.OutDir,
		ConfigurePath: opts.ConfigurePath,
		Env:           opts.Env,
	}
	if err := d.Clean(); err != nil {
		return nil, err
	}
	if err := stageSource(opts, d.SourceDir()); err != nil {
		return nil, err
	}

	mf, err := manifest.Load(d.SourceDir())
	if err != nil {
		return nil, err
	}

	d.Plan = buildPlan(opts, mf, info)

	// Direct mode has no build system to discover sources; the plan
	// carries the file groups itself.
	if mode == toolchain.DirectCompile {
		cSources, cxxSources, err := toolchain.EnumerateSources(d.SourceDir())
		if err != nil {
			return nil, err
		}
		d.Plan.CSources = cSources
		d.Plan.CxxSources = cxxSources
	}

	if err := d.Execute(mode); err != nil {
		return nil, err
	}

	return artifact.Resolve(opts.OutDir, d.InstallDir(), d.Plan.Libraries, artifact.ResolveOptions{
		Family:        family,
		LinkStatic:    opts.LinkStatic,
		InternalName:  mf.InternalName,
		CanonicalName: mf.CanonicalLibFile(),
	})
}

// probeCapabilities runs the per-invocation toolchain probes. Windows
// families skip the unix-only probes entirely; results are never cached
// across invocations because the active toolchain may change.
func probeCapabilities(opts Options, family platform.Family) (platform.Info, error) {
	info := platform.Info{Family: family}
	if family.Windows() {
		return info, nil
	}

	p := &probe.Prober{
		CC:          opts.Env["CC"],
		CXX:         opts.Env["CXX"],
		ScratchRoot: opts.OutDir,
		Env:         opts.Env,
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return info, fmt.Errorf("failed to create out dir: %w", err)
	}

	for _, q := range []struct {
		kind probe.Kind
		dst  *bool
	}{
		{probe.StrlcpyAvailable, &info.HasStrlcpy},
		{probe.Cxx11Supported, &info.HasCxx11},
		{probe.IPCHeadersAvailable, &info.HasIPCHeaders},
	} {
		ok, err := p.Probe(q.kind)
		if err != nil {
			return info, err
		}
		*q.dst = ok
	}
	return info, nil
}

// stageSource places the vendored source at the driver's build location,
// either by unpacking the configured archive or copying the tree.
func stageSource(opts Options, dst string) error {
	if opts.SourceArchive != "" {
		if err := archive.Unpack(opts.SourceArchive, dst); err != nil {
			return fmt.Errorf("failed to unpack vendored source: %w", err)
		}
		return nil
	}
	if err := fsx.CopyDir(dst, opts.SourceDir); err != nil {
		return fmt.Errorf("failed to copy vendored source: %w", err)
	}
	return nil
}

// buildPlan derives the toolchain-facing plan from the validated
// options, manifest defaults and probed capabilities.
func buildPlan(opts Options, mf manifest.Manifest, info platform.Info) *plan.Plan {
	planOpts := plan.Options{
		Debug:          opts.Debug,
		LinkStatic:     opts.LinkStatic,
		EnableDraft:    opts.EnableDraft,
		EnableCurve:    opts.EnableCurve,
		EnablePerfTool: opts.EnablePerfTool,
		TargetTriple:   opts.TargetTriple,
		HostTriple:     opts.HostTriple,
	}
	if opts.ExternalCrypto != nil {
		planOpts.ExternalCryptoInclude = opts.ExternalCrypto.IncludeDir
		planOpts.ExternalCryptoLib = opts.ExternalCrypto.LibDir
	}
	planOpts.ConfigureArgs = append(planOpts.ConfigureArgs, mf.ConfigureArgs...)
	planOpts.ConfigureArgs = append(planOpts.ConfigureArgs, opts.ConfigureArgs...)

	p := plan.Build(planOpts, info)

	// The manifest can rename the primary library (vendored forks).
	if mf.Name != "zmq" && len(p.Libraries) > 0 && p.Libraries[0].Name == "zmq" {
		p.Libraries[0].Name = mf.Name
	}
	return p
}

// Package plan derives a build plan from user options and a classified
// platform. Everything here is a pure function of its inputs: no I/O, no
// ambient environment reads, so the same (options, platform) pair always
// yields the same plan.
package plan

import (
	"sort"

	"github.com/zeromq/zmqsrc/internal/platform"
)

// LinkKind states how a reported library is expected to be linked.
type LinkKind int

const (
	Unspecified LinkKind = iota
	Static
	Dynamic
)

// MetaPrefix renders the link kind in the downstream metadata protocol.
func (k LinkKind) MetaPrefix() string {
	switch k {
	case Static:
		return "static="
	case Dynamic:
		return "dylib="
	default:
		return ""
	}
}

// LinkLib is one library the consumer must link.
type LinkLib struct {
	Name string
	Kind LinkKind
}

// Options is the user-facing configuration the plan derives from.
// It is a value type; the planner never mutates it.
type Options struct {
	Debug          bool
	LinkStatic     bool
	EnableDraft    bool
	EnableCurve    bool
	EnablePerfTool bool

	// ExternalCryptoInclude/Lib point at an external libsodium install.
	// Both empty means the bundled tweetnacl fallback is compiled in.
	ExternalCryptoInclude string
	ExternalCryptoLib     string

	TargetTriple string
	HostTriple   string

	// ConfigureArgs are caller-supplied extra arguments for configure.
	ConfigureArgs []string
}

// Plan is the derived build plan: an ordered define table, include and
// link-search paths, source groups, extra compiler flags, configure
// arguments and the libraries the consumer will link. Built once by
// Build, then consumed read-only by the toolchain driver.
type Plan struct {
	defines    map[string]string
	defineKeys []string

	IncludeDirs    []string
	LinkSearchDirs []string

	CSources   []string
	CxxSources []string

	// CxxFlags holds toolchain-specific compile flags (MSVC /GL- /EHsc).
	CxxFlags []string

	// ConfigureArgs is the accumulated configure argument list, cross
	// pair included.
	ConfigureArgs []string

	// BuildType is the Debug/Release label forwarded verbatim.
	BuildType string

	Libraries []LinkLib
}

// Set records a define, preserving first-insertion order. Setting an
// existing key overrides its value in place.
func (p *Plan) Set(key, value string) {
	if p.defines == nil {
		p.defines = make(map[string]string)
	}
	if _, ok := p.defines[key]; !ok {
		p.defineKeys = append(p.defineKeys, key)
	}
	p.defines[key] = value
}

// Define reports the value for key and whether it is set at all; absence
// of a key is meaningful to consumers, not equivalent to "0".
func (p *Plan) Define(key string) (string, bool) {
	v, ok := p.defines[key]
	return v, ok
}

// Defines returns the define table in insertion order as key=value pairs.
func (p *Plan) Defines() [][2]string {
	out := make([][2]string, 0, len(p.defineKeys))
	for _, k := range p.defineKeys {
		out = append(out, [2]string{k, p.defines[k]})
	}
	return out
}

// SortedDefines returns the define table sorted by key, for toolchains
// where argument order carries no meaning.
func (p *Plan) SortedDefines() [][2]string {
	keys := make([]string, len(p.defineKeys))
	copy(keys, p.defineKeys)
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, p.defines[k]})
	}
	return out
}

// Build derives the plan for the given options and platform. Key rules:
// feature toggles map to defines that are omitted when off (consumers
// key on presence), exactly one IO-multiplexing poller define is chosen
// per family, and the external-crypto/bundled-fallback defines are
// mutually exclusive.
func Build(opts Options, info platform.Info) *Plan {
	p := &Plan{}

	if opts.Debug {
		p.BuildType = "Debug"
	} else {
		p.BuildType = "Release"
	}

	p.Set("ZMQ_BUILD_TESTS", "0")

	if opts.EnableDraft {
		p.Set("ZMQ_BUILD_DRAFT_API", "1")
	}
	if opts.EnableCurve {
		p.Set("ZMQ_HAVE_CURVE", "1")
		if opts.ExternalCryptoLib != "" || opts.ExternalCryptoInclude != "" {
			p.Set("ZMQ_USE_LIBSODIUM", "1")
		} else {
			p.Set("ZMQ_USE_TWEETNACL", "1")
		}
	}
	if opts.EnablePerfTool {
		p.Set("ZMQ_BUILD_PERF_TOOL", "1")
	}

	if opts.ExternalCryptoInclude != "" {
		p.IncludeDirs = append(p.IncludeDirs, opts.ExternalCryptoInclude)
	}
	if opts.ExternalCryptoLib != "" {
		p.LinkSearchDirs = append(p.LinkSearchDirs, opts.ExternalCryptoLib)
	}

	if opts.LinkStatic {
		p.Set("BUILD_STATIC", "1")
		p.Set("BUILD_SHARED", "0")
		if info.Family == platform.MSVC {
			p.Set("ZMQ_STATIC", "1")
		}
	}

	setPoller(p, info.Family)
	setCapabilities(p, info)

	if info.Family == platform.MSVC {
		// Avoids LNK1561-class failures when the archive is consumed by a
		// differently-configured link; harmless elsewhere so only added here.
		p.CxxFlags = append(p.CxxFlags, "/GL-", "/EHsc")
	}

	p.ConfigureArgs = append(p.ConfigureArgs, opts.ConfigureArgs...)
	if opts.HostTriple != opts.TargetTriple {
		// Historically accumulated order: target feeds --target, host feeds
		// --host. The wrapped configure script expects exactly this pair;
		// do not re-derive it from autotools convention.
		p.ConfigureArgs = append(p.ConfigureArgs,
			"--target="+opts.TargetTriple,
			"--host="+opts.HostTriple,
		)
	}

	p.Libraries = libraries(opts, info)

	return p
}

// setPoller chooses the IO-multiplexing backend. Exactly one
// ZMQ_IOTHREAD_POLLER_USE_* define per family.
func setPoller(p *Plan, f platform.Family) {
	switch f {
	case platform.MSVC, platform.WindowsGNU:
		p.Set("ZMQ_IOTHREAD_POLLER_USE_SELECT", "1")
		p.Set("ZMQ_POLL_BASED_ON_SELECT", "1")
	case platform.Linux:
		p.Set("ZMQ_IOTHREAD_POLLER_USE_EPOLL", "1")
		p.Set("ZMQ_POLL_BASED_ON_POLL", "1")
	case platform.Apple, platform.BSD:
		p.Set("ZMQ_IOTHREAD_POLLER_USE_KQUEUE", "1")
		p.Set("ZMQ_POLL_BASED_ON_POLL", "1")
	default:
		p.Set("ZMQ_IOTHREAD_POLLER_USE_POLL", "1")
		p.Set("ZMQ_POLL_BASED_ON_POLL", "1")
	}
}

func setCapabilities(p *Plan, info platform.Info) {
	if info.Family.Windows() {
		p.Set("ZMQ_HAVE_WINDOWS", "1")
		return
	}
	if info.HasStrlcpy {
		p.Set("ZMQ_HAVE_STRLCPY", "1")
	}
	if info.HasCxx11 {
		p.Set("ZMQ_USE_CV_IMPL_STL11", "1")
	} else {
		p.Set("ZMQ_USE_CV_IMPL_PTHREADS", "1")
	}
	if info.HasIPCHeaders {
		p.Set("ZMQ_HAVE_IPC", "1")
	}
}

// libraries assembles the link table. The primary library always comes
// first; platform runtime libraries are appended as needed.
func libraries(opts Options, info platform.Info) []LinkLib {
	primary := LinkLib{Name: "zmq", Kind: Dynamic}
	if opts.LinkStatic {
		primary.Kind = Static
	}
	libs := []LinkLib{primary}

	if opts.LinkStatic {
		switch info.Family {
		case platform.Linux, platform.BSD:
			libs = append(libs, LinkLib{Name: "stdc++", Kind: Dynamic})
		case platform.Apple:
			libs = append(libs, LinkLib{Name: "c++", Kind: Dynamic})
		}
	}
	if info.Family.Windows() {
		libs = append(libs, LinkLib{Name: "iphlpapi", Kind: Dynamic})
	}
	return libs
}

// Package probe answers narrow yes/no questions about the host toolchain
// by compiling a minimal fixed program per question. A compile failure is
// the normal "capability absent" signal; only failure to invoke the
// compiler at all is an error.
package probe

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/zeromq/zmqsrc/internal/envutil"
)

// Kind selects which capability to probe.
type Kind int

const (
	StrlcpyAvailable Kind = iota
	Cxx11Supported
	IPCHeadersAvailable
)

var kindNames = map[Kind]string{
	StrlcpyAvailable:    "strlcpy",
	Cxx11Supported:      "c++11",
	IPCHeadersAvailable: "ipc-headers",
}

func (k Kind) String() string { return kindNames[k] }

type program struct {
	file   string
	source string
	cxx    bool
	flags  []string
}

// Fixed probe programs. Each exercises exactly one capability; nothing
// else may fail the compile.
var programs = map[Kind]program{
	StrlcpyAvailable: {
		file: "probe_strlcpy.c",
		source: `#include <string.h>
int main(void) { char buf[8]; strlcpy(buf, "zmqsrc", sizeof buf); return 0; }
`,
	},
	Cxx11Supported: {
		file: "probe_cxx11.cpp",
		source: `int main() { auto f = []() { return 11; }; return f() - 11; }
`,
		cxx:   true,
		flags: []string{"-std=c++11"},
	},
	IPCHeadersAvailable: {
		file: "probe_ipc.c",
		source: `#include <sys/types.h>
#include <sys/socket.h>
#include <sys/un.h>
int main(void) { struct sockaddr_un sa; (void)sa; return AF_UNIX >= 0 ? 0 : 1; }
`,
	},
}

// Prober compiles probe programs with an explicitly injected toolchain.
// Scratch files are written under ScratchRoot and removed after each probe.
type Prober struct {
	CC  string // C compiler, defaults to "cc"
	CXX string // C++ compiler, defaults to "c++"

	// ScratchRoot is where transient probe sources and outputs live;
	// empty means the system temp directory.
	ScratchRoot string

	// Env is copied by value into the compiler's environment when set.
	Env map[string]string
}

// Probe runs the probe for kind. The boolean is the capability answer; a
// non-nil error means the compiler could not even be invoked, which is a
// fatal condition distinct from "compiles but capability absent".
func (p *Prober) Probe(kind Kind) (bool, error) {
	prog, ok := programs[kind]
	if !ok {
		return false, fmt.Errorf("unknown probe kind %d", int(kind))
	}

	dir, err := os.MkdirTemp(p.ScratchRoot, "probe-*")
	if err != nil {
		return false, fmt.Errorf("failed to create probe scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, prog.file)
	if err := os.WriteFile(src, []byte(prog.source), 0o644); err != nil {
		return false, fmt.Errorf("failed to write probe source: %w", err)
	}

	compiler := p.compiler(prog.cxx)
	args := append([]string{}, prog.flags...)
	args = append(args, "-o", filepath.Join(dir, "probe.out"), src)

	cmd := exec.Command(compiler, args...)
	cmd.Dir = dir
	if len(p.Env) > 0 {
		cmd.Env = envutil.Merge(os.Environ(), p.Env)
	}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Probe ran and the toolchain rejected it: capability absent.
			return false, nil
		}
		return false, fmt.Errorf("failed to invoke %s for %s probe: %w", compiler, kind, err)
	}
	return true, nil
}

func (p *Prober) compiler(cxx bool) string {
	if cxx {
		if p.CXX != "" {
			return p.CXX
		}
		return "c++"
	}
	if p.CC != "" {
		return p.CC
	}
	return "cc"
}

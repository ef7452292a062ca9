// Package platform classifies target triples into the platform families
// the build planner branches on.
package platform

import "strings"

// Family identifies a platform family derived from the target triple.
type Family int

const (
	Other Family = iota
	MSVC
	WindowsGNU
	Linux
	Apple
	BSD
)

var familyNames = map[Family]string{
	Other:      "other",
	MSVC:       "msvc",
	WindowsGNU: "windows-gnu",
	Linux:      "linux",
	Apple:      "apple",
	BSD:        "bsd",
}

func (f Family) String() string { return familyNames[f] }

// Windows reports whether the family targets Windows.
func (f Family) Windows() bool { return f == MSVC || f == WindowsGNU }

// Info describes a classified target plus the host-toolchain capabilities
// the planner consumes. Computed fresh per build invocation; capability
// flags depend on the active toolchain and are never cached across runs.
type Info struct {
	Family Family

	HasStrlcpy    bool
	HasCxx11      bool
	HasIPCHeaders bool
}

// Classify maps a target triple to its platform family. Pure and total:
// unrecognized triples fall into the Other family, which gets the most
// portable plan (poll poller, pthread condition variables).
func Classify(targetTriple string) Family {
	t := strings.ToLower(targetTriple)
	switch {
	case strings.Contains(t, "msvc"):
		return MSVC
	case strings.Contains(t, "windows"), strings.Contains(t, "mingw"):
		return WindowsGNU
	case strings.Contains(t, "linux"):
		return Linux
	case strings.Contains(t, "apple") || strings.Contains(t, "darwin"):
		return Apple
	case strings.Contains(t, "freebsd"), strings.Contains(t, "openbsd"), strings.Contains(t, "netbsd"), strings.Contains(t, "dragonfly"):
		return BSD
	default:
		return Other
	}
}

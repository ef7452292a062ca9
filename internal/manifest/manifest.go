// Package manifest reads the optional vendor.toml describing a vendored
// source tree: the upstream version, the library's canonical and
// internal (toolchain-assigned) names, and default configure arguments.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest's location relative to the vendored tree root.
const FileName = "vendor.toml"

// Manifest describes a vendored library. Zero values fall back to the
// libzmq defaults.
type Manifest struct {
	// Name is the library's link name ("zmq").
	Name string `toml:"name"`

	// Version is the vendored upstream release ("4.3.5").
	Version string `toml:"version"`

	// InternalName is the prefix the MSVC toolchain gives the static
	// archive before canonicalization ("libzmq").
	InternalName string `toml:"internal_name"`

	// ConfigureArgs are arguments every configure invocation gets,
	// before any caller-supplied ones.
	ConfigureArgs []string `toml:"configure_args"`
}

// Default is the manifest used when the vendored tree carries none.
var Default = Manifest{
	Name:         "zmq",
	InternalName: "libzmq",
}

// Load reads srcDir's vendor.toml, merged over Default. A missing file
// is not an error; a malformed one is.
func Load(srcDir string) (Manifest, error) {
	m := Default

	path := filepath.Join(srcDir, FileName)
	if _, err := os.Stat(path); err != nil {
		return m, nil
	}

	var loaded Manifest
	if _, err := toml.DecodeFile(path, &loaded); err != nil {
		return m, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if loaded.Name != "" {
		m.Name = loaded.Name
	}
	if loaded.Version != "" {
		m.Version = loaded.Version
	}
	if loaded.InternalName != "" {
		m.InternalName = loaded.InternalName
	}
	if len(loaded.ConfigureArgs) > 0 {
		m.ConfigureArgs = loaded.ConfigureArgs
	}
	return m, nil
}

// CanonicalLibFile is the canonical MSVC static archive name.
func (m Manifest) CanonicalLibFile() string {
	return m.Name + ".lib"
}

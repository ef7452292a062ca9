package toolchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeromq/zmqsrc/internal/platform"
)

// ErrNoConfigure reports a source tree with neither a configure script
// nor an autogen.sh to generate one.
var ErrNoConfigure = errors.New("source tree has no configure script and no autogen.sh")

// runAutotools stages the classic chain: optional autogen.sh, configure
// with the accumulated arguments and a shell-sanitized --prefix, make
// (make depend first when the Makefile advertises it), make install.
// MSVC substitutes nmake with the install_sw target.
func (d *Driver) runAutotools() error {
	srcDir := d.SourceDir()
	env := d.ConfigureEnv()

	configure := d.ConfigurePath
	if configure == "" {
		configure = filepath.Join(srcDir, "configure")
	}
	if _, err := os.Stat(configure); err != nil {
		autogen := filepath.Join(srcDir, "autogen.sh")
		if _, err := os.Stat(autogen); err != nil {
			return fmt.Errorf("%w: %s", ErrNoConfigure, srcDir)
		}
		if err := d.runStage("generating configure script", srcDir, env, "sh", autogen); err != nil {
			return err
		}
	}

	prefix := d.InstallDir()
	if d.Family.Windows() {
		prefix = PosixPath(prefix)
	}

	args := []string{configure, "--prefix=" + prefix}
	args = append(args, d.Plan.ConfigureArgs...)
	if err := d.runStage("configuring build", srcDir, env, "sh", args...); err != nil {
		return err
	}

	make, installTarget := d.makeCommand()

	if hasMakeTarget(srcDir, "depend") {
		if err := d.runStage("building", srcDir, env, make, "depend"); err != nil {
			return err
		}
	}
	if err := d.runStage("building", srcDir, env, make); err != nil {
		return err
	}
	return d.runStage("installing", srcDir, env, make, installTarget)
}

// makeCommand resolves the make implementation and install target for
// the current family.
func (d *Driver) makeCommand() (name, installTarget string) {
	if d.Family == platform.MSVC {
		return lookupNmake(), "install_sw"
	}
	return "make", "install"
}

// ConfigureEnv renders the plan's defines and extra compiler flags into
// the CPPFLAGS/CXXFLAGS a configure-driven build compiles with, merged
// over the driver's explicit environment.
func (d *Driver) ConfigureEnv() map[string]string {
	env := make(map[string]string, len(d.Env)+2)
	for k, v := range d.Env {
		env[k] = v
	}

	var cpp []string
	if cur, ok := env["CPPFLAGS"]; ok && cur != "" {
		cpp = append(cpp, cur)
	}
	for _, kv := range d.Plan.Defines() {
		cpp = append(cpp, "-D"+kv[0]+"="+kv[1])
	}
	for _, dir := range d.Plan.IncludeDirs {
		cpp = append(cpp, "-I"+dir)
	}
	if len(cpp) > 0 {
		env["CPPFLAGS"] = strings.Join(cpp, " ")
	}

	var ld []string
	if cur, ok := env["LDFLAGS"]; ok && cur != "" {
		ld = append(ld, cur)
	}
	for _, dir := range d.Plan.LinkSearchDirs {
		ld = append(ld, "-L"+dir)
	}
	if len(ld) > 0 {
		env["LDFLAGS"] = strings.Join(ld, " ")
	}

	if len(d.Plan.CxxFlags) > 0 {
		flags := strings.Join(d.Plan.CxxFlags, " ")
		if cur, ok := env["CXXFLAGS"]; ok && cur != "" {
			flags = cur + " " + flags
		}
		env["CXXFLAGS"] = flags
	}
	return env
}

// hasMakeTarget reports whether the tree's Makefile (or Makefile.in
// about to become one) declares the named target.
func hasMakeTarget(dir, target string) bool {
	for _, name := range []string{"Makefile", "makefile", "Makefile.in"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, target+":") {
				return true
			}
		}
	}
	return false
}

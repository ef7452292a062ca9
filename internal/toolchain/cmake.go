package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/zeromq/zmqsrc/internal/envutil"
	"github.com/zeromq/zmqsrc/internal/platform"
)

// minInstallVersion is the first CMake with "cmake --install"; anything
// older installs through the build tool's install target.
const minInstallVersion = "v3.15.0"

// msvcGenerator is pinned explicitly on MSVC so configuration never
// depends on which of several registered generators CMake picks first.
const msvcGenerator = "NMake Makefiles"

// runCMake translates the plan into cache variables, configures and
// generates once, builds once, then installs.
func (d *Driver) runCMake() error {
	buildDir := filepath.Join(d.BuildRoot(), "cmake")

	args := d.cmakeConfigureArgs(buildDir)
	if err := d.runStage("configuring build", d.OutDir, d.Env, "cmake", args...); err != nil {
		return err
	}

	buildArgs := []string{"--build", buildDir, "--config", d.Plan.BuildType}
	if err := d.runStage("building", d.OutDir, d.Env, "cmake", buildArgs...); err != nil {
		return err
	}

	if supportsInstallCommand(d.cmakeVersion()) {
		return d.runStage("installing", d.OutDir, d.Env,
			"cmake", "--install", buildDir, "--prefix", d.InstallDir())
	}
	return d.runStage("installing", d.OutDir, d.Env,
		"cmake", "--build", buildDir, "--target", "install")
}

// cmakeConfigureArgs renders the plan into the configure/generate
// command line. CMAKE_INCLUDE_PATH and CMAKE_LIBRARY_PATH are single
// cache entries holding a ;-separated list; writing them per directory
// would leave only the last one.
func (d *Driver) cmakeConfigureArgs(buildDir string) []string {
	args := []string{"-S", d.SourceDir(), "-B", buildDir}
	if d.Family == platform.MSVC {
		args = append(args, "-G", msvcGenerator)
	}
	args = append(args,
		"-DCMAKE_INSTALL_PREFIX="+d.InstallDir(),
		"-DCMAKE_BUILD_TYPE="+d.Plan.BuildType,
	)
	// Cache-variable order carries no meaning; keep it deterministic.
	for _, kv := range d.Plan.SortedDefines() {
		args = append(args, "-D"+kv[0]+"="+kv[1])
	}
	if len(d.Plan.CxxFlags) > 0 {
		args = append(args, "-DCMAKE_CXX_FLAGS="+strings.Join(d.Plan.CxxFlags, " "))
	}
	if len(d.Plan.IncludeDirs) > 0 {
		args = append(args, "-DCMAKE_INCLUDE_PATH="+strings.Join(d.Plan.IncludeDirs, ";"))
	}
	if len(d.Plan.LinkSearchDirs) > 0 {
		args = append(args, "-DCMAKE_LIBRARY_PATH="+strings.Join(d.Plan.LinkSearchDirs, ";"))
	}
	return args
}

// cmakeVersion reports the active cmake's version ("v3.28.1"), or ""
// when it cannot be determined. The driver's explicit environment
// applies here too: a PATH or toolchain override must affect the same
// cmake the stages run.
func (d *Driver) cmakeVersion() string {
	cmd := exec.Command("cmake", "--version")
	if len(d.Env) > 0 {
		cmd.Env = envutil.Merge(os.Environ(), d.Env)
	}
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return parseCMakeVersion(string(out))
}

// parseCMakeVersion extracts a canonical semver from "cmake version X"
// output. Suffixes like "-rc2" are kept; semver handles them.
func parseCMakeVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "cmake" || fields[1] != "version" {
		return ""
	}
	v := "v" + fields[2]
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// supportsInstallCommand reports whether this cmake has --install.
// Unknown versions are assumed modern; if that guess is wrong the
// install stage fails loudly anyway.
func supportsInstallCommand(version string) bool {
	if version == "" {
		return true
	}
	return semver.Compare(version, minInstallVersion) >= 0
}

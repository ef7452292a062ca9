//go:build windows

package toolchain

import (
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// vsRegistryKey lists Visual Studio installation roots by version
// ("17.0" -> install dir).
const vsRegistryKey = `SOFTWARE\Microsoft\VisualStudio\SxS\VS7`

// lookupNmake resolves nmake.exe from the registered Visual Studio
// toolchain, newest first, falling back to PATH. Returning a bare name
// is fine: the invocation itself surfaces a toolchain-not-found error.
func lookupNmake() string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, vsRegistryKey,
		registry.QUERY_VALUE|registry.WOW64_32KEY)
	if err == nil {
		defer key.Close()
		for _, version := range []string{"17.0", "16.0", "15.0"} {
			root, _, err := key.GetStringValue(version)
			if err != nil {
				continue
			}
			if nmake := nmakeUnder(root); nmake != "" {
				return nmake
			}
		}
	}
	if path, err := exec.LookPath("nmake.exe"); err == nil {
		return path
	}
	return "nmake.exe"
}

// nmakeUnder globs the VS 2017+ toolset layout for an nmake binary.
func nmakeUnder(vsRoot string) string {
	pattern := filepath.Join(vsRoot, "VC", "Tools", "MSVC", "*", "bin", "Host*", "*", "nmake.exe")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

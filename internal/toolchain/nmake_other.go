//go:build !windows

package toolchain

// lookupNmake has no registry to consult off Windows; the bare name is
// returned and the invocation surfaces a toolchain-not-found error if
// nmake is genuinely absent.
func lookupNmake() string {
	return "nmake.exe"
}

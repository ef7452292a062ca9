package internal

import (
	"testing"

	"github.com/zeromq/zmqsrc"
)

func TestParseMode(t *testing.T) {
	cases := map[string]zmqsrc.Mode{
		"":          zmqsrc.ModeAuto,
		"auto":      zmqsrc.ModeAuto,
		"autotools": zmqsrc.ModeAutotools,
		"cmake":     zmqsrc.ModeCMake,
		"direct":    zmqsrc.ModeDirectCompile,
	}
	for in, want := range cases {
		mode, err := parseMode(in)
		if err != nil {
			t.Errorf("parseMode(%q): %v", in, err)
			continue
		}
		if mode != want {
			t.Errorf("parseMode(%q) = %v, want %v", in, mode, want)
		}
	}

	if _, err := parseMode("ninja"); err == nil {
		t.Error("parseMode accepted an unknown mode")
	}
}

func TestToolchainEnvCopiesOnlySetKeys(t *testing.T) {
	t.Setenv("CC", "clang")
	t.Setenv("MAKEFLAGS", "-j8")

	env := toolchainEnv()
	if env["CC"] != "clang" {
		t.Errorf("CC = %q", env["CC"])
	}
	if env["MAKEFLAGS"] != "-j8" {
		t.Errorf("MAKEFLAGS = %q", env["MAKEFLAGS"])
	}
	for key := range env {
		switch key {
		case "CC", "CXX", "PATH", "MAKEFLAGS", "CPPFLAGS", "CFLAGS", "CXXFLAGS", "LDFLAGS":
		default:
			t.Errorf("unexpected key %q forwarded", key)
		}
	}
}

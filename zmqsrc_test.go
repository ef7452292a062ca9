package zmqsrc

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const linuxTriple = "x86_64-unknown-linux-gnu"

// writeStubVendor lays down a fake vendored tree whose configure script
// installs a stub static library and header.
func writeStubVendor(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	configure := `#!/bin/sh
prefix=
for arg in "$@"; do
  case "$arg" in
    --prefix=*) prefix=${arg#--prefix=} ;;
  esac
done
echo "ARGS=$*" > config.log
echo "CPPFLAGS=$CPPFLAGS" >> config.log
cat > Makefile <<EOF
all:
	touch libzmq.a
install:
	mkdir -p $prefix/lib $prefix/include
	cp libzmq.a $prefix/lib/
	touch $prefix/include/zmq.h
EOF
`
	if err := os.WriteFile(filepath.Join(dir, "configure"), []byte(configure), 0o755); err != nil {
		t.Fatal(err)
	}
}

func requireUnixToolchain(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"sh", "make", "cc", "c++"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
}

func TestRunLinuxStatic(t *testing.T) {
	requireUnixToolchain(t)

	out := filepath.Join(t.TempDir(), "out")
	vendor := filepath.Join(t.TempDir(), "vendor")
	writeStubVendor(t, vendor)

	artifacts, err := New().
		LinkStatic(true).
		EnableDraft(true).
		SourceDir(vendor).
		OutDir(out).
		Target(linuxTriple).
		Host(linuxTriple).
		ConfigureArgs("--enable-static", "--disable-shared").
		Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if artifacts.LibDir != filepath.Join(out, "install", "lib") {
		t.Errorf("LibDir = %q", artifacts.LibDir)
	}
	if len(artifacts.Libs) < 2 || artifacts.Libs[0].Name != "zmq" || artifacts.Libs[1].Name != "stdc++" {
		t.Errorf("Libs = %v, want zmq then stdc++", artifacts.Libs)
	}

	var sb strings.Builder
	if err := artifacts.WriteMetadata(&sb); err != nil {
		t.Fatal(err)
	}
	meta := sb.String()
	for _, want := range []string{
		"link-library=static=zmq\n",
		"link-library=dylib=stdc++\n",
		"out-path=" + out + "\n",
	} {
		if !strings.Contains(meta, want) {
			t.Errorf("metadata missing %q:\n%s", want, meta)
		}
	}

	// The epoll poller define must have reached the configure env.
	data, err := os.ReadFile(filepath.Join(out, "build", "src", "config.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "-DZMQ_IOTHREAD_POLLER_USE_EPOLL=1") {
		t.Error("config.log missing the epoll poller define")
	}
}

func TestRunCleansPriorOutput(t *testing.T) {
	requireUnixToolchain(t)

	out := filepath.Join(t.TempDir(), "out")
	vendor := filepath.Join(t.TempDir(), "vendor")
	writeStubVendor(t, vendor)

	// Sentinel from a "previous" invocation.
	stale := filepath.Join(out, "build", "sentinel")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New().
		LinkStatic(true).
		SourceDir(vendor).
		OutDir(out).
		Target(linuxTriple).
		Host(linuxTriple).
		Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale build output survived; every invocation must be a clean build")
	}
}

func TestRunMSVCDynamicAbortsBeforeToolchain(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")

	_, err := New().
		LinkStatic(false).
		SourceDir(t.TempDir()).
		OutDir(out).
		Target("x86_64-pc-windows-msvc").
		Host(linuxTriple).
		Run()
	if err == nil {
		t.Fatal("dynamic msvc build did not abort")
	}
	// Aborted before any side effect: no partial directory state.
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("out dir created despite configuration error")
	}
}

func TestRunMissingTriplesAbortsEarly(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	if _, err := New().OutDir(out).Run(); err == nil {
		t.Fatal("missing triples accepted")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("out dir created despite configuration error")
	}
}

func TestBuilderSnapshotImmutable(t *testing.T) {
	b := New().
		LinkStatic(true).
		ConfigureArgs("--enable-static").
		Target(linuxTriple).
		Host(linuxTriple)

	snap := b.Options()
	b.ConfigureArgs("--mutated").LinkStatic(false)

	if !snap.LinkStatic || len(snap.ConfigureArgs) != 1 || snap.ConfigureArgs[0] != "--enable-static" {
		t.Errorf("snapshot changed after builder mutation: %+v", snap)
	}
}

func TestRunWithSourceArchive(t *testing.T) {
	requireUnixToolchain(t)

	// Pack the stub vendor tree as a tarball with a top-level dir.
	vendor := filepath.Join(t.TempDir(), "zeromq-4.3.5")
	writeStubVendor(t, vendor)
	tarball := filepath.Join(t.TempDir(), "zeromq-4.3.5.tar.gz")
	cmd := exec.Command("tar", "czf", tarball, "-C", filepath.Dir(vendor), filepath.Base(vendor))
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("tar unavailable: %v (%s)", err, output)
	}

	out := filepath.Join(t.TempDir(), "out")
	artifacts, err := New().
		LinkStatic(true).
		SourceArchive(tarball).
		OutDir(out).
		Target(linuxTriple).
		Host(linuxTriple).
		Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(artifacts.LibDir, "libzmq.a")); err != nil {
		t.Error("archive-sourced build produced no library")
	}
}

func TestRunDirectMode(t *testing.T) {
	for _, bin := range []string{"cc", "c++", "ar"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}

	// A vendored tree with no build system at all: sources must be
	// discovered from the tree itself.
	vendor := filepath.Join(t.TempDir(), "vendor")
	for _, dir := range []string{filepath.Join(vendor, "include"), filepath.Join(vendor, "tests")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	source := `#ifndef ZMQ_IOTHREAD_POLLER_USE_EPOLL
#error wrong poller define
#endif
int zmq_stub(void) { return 0; }
`
	if err := os.WriteFile(filepath.Join(vendor, "zmq_stub.c"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vendor, "include", "zmq.h"), []byte("int zmq_stub(void);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Would fail the compile if the test tree were not excluded.
	if err := os.WriteFile(filepath.Join(vendor, "tests", "test_pair.c"), []byte("#error test tree compiled\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "out")
	artifacts, err := New().
		LinkStatic(true).
		SourceDir(vendor).
		OutDir(out).
		Target(linuxTriple).
		Host(linuxTriple).
		Mode(ModeDirectCompile).
		Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(artifacts.LibDir, "libzmq.a")); err != nil {
		t.Error("direct build produced no static library")
	}
	if _, err := os.Stat(filepath.Join(artifacts.IncludeDir, "zmq.h")); err != nil {
		t.Error("direct build did not install headers")
	}
}

func TestRunManifestOverrides(t *testing.T) {
	requireUnixToolchain(t)

	vendor := filepath.Join(t.TempDir(), "vendor")
	writeStubVendor(t, vendor)
	mf := `name = "zmq"
version = "4.3.5"
configure_args = ["--without-docs"]
`
	if err := os.WriteFile(filepath.Join(vendor, "vendor.toml"), []byte(mf), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "out")
	_, err := New().
		LinkStatic(true).
		SourceDir(vendor).
		OutDir(out).
		Target(linuxTriple).
		Host(linuxTriple).
		Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "build", "src", "config.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "--without-docs") {
		t.Error("manifest configure args did not reach configure")
	}
}

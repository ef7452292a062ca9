package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zeromq/zmqsrc"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the vendored library and print artifact metadata",
	Long: `Build runs one clean build of the vendored source tree into the output
directory and prints the artifact metadata protocol on stdout. All build
output goes to stderr.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.Bool("debug", false, "Build the Debug configuration")
	f.Bool("static", false, "Link the library statically")
	f.Bool("draft", false, "Enable the draft API")
	f.Bool("curve", false, "Enable CURVE security")
	f.Bool("perf-tool", false, "Build the perf tool")
	f.String("sodium-lib", "", "External libsodium lib directory")
	f.String("sodium-include", "", "External libsodium include directory")
	f.String("configure", "", "Override the configure script path")
	f.StringArray("configure-arg", nil, "Extra configure argument (repeatable)")
	f.String("source", "", "Vendored source tree (default \"vendor\")")
	f.String("source-archive", "", "Vendored source archive (.tar.gz/.tar.xz/.tar.zst/.zip)")
	f.String("out", "", "Output directory root")
	f.String("target", "", "Target triple")
	f.String("host", "", "Host triple (defaults to target)")
	f.String("mode", "auto", "Toolchain mode: auto, autotools, cmake, direct")
	rootCmd.AddCommand(buildCmd)
}

// runBuild is the single place ambient process environment is read; the
// library below it only ever sees explicit options.
func runBuild(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.SetEnvPrefix("ZMQSRC")
	v.AutomaticEnv()

	// Compatibility keys consuming pipelines conventionally export.
	v.BindEnv("target", "ZMQSRC_TARGET", "TARGET")
	v.BindEnv("host", "ZMQSRC_HOST", "HOST")
	v.BindEnv("out", "ZMQSRC_OUT_DIR", "OUT_DIR")

	for _, name := range []string{
		"debug", "static", "draft", "curve", "perf-tool",
		"sodium-lib", "sodium-include", "configure",
		"source", "source-archive", "out", "target", "host", "mode",
	} {
		v.BindPFlag(name, cmd.Flags().Lookup(name))
	}

	host := v.GetString("host")
	if host == "" {
		host = v.GetString("target")
	}

	mode, err := parseMode(v.GetString("mode"))
	if err != nil {
		return err
	}

	configureArgs, err := cmd.Flags().GetStringArray("configure-arg")
	if err != nil {
		return err
	}

	b := zmqsrc.New().
		Debug(v.GetBool("debug")).
		LinkStatic(v.GetBool("static")).
		EnableDraft(v.GetBool("draft")).
		EnableCurve(v.GetBool("curve")).
		EnablePerfTool(v.GetBool("perf-tool")).
		ConfigurePath(v.GetString("configure")).
		ConfigureArgs(configureArgs...).
		SourceDir(v.GetString("source")).
		SourceArchive(v.GetString("source-archive")).
		OutDir(v.GetString("out")).
		Target(v.GetString("target")).
		Host(host).
		Mode(mode).
		Env(toolchainEnv())

	if lib, inc := v.GetString("sodium-lib"), v.GetString("sodium-include"); lib != "" || inc != "" {
		b.ExternalCrypto(lib, inc)
	}

	artifacts, err := b.Run()
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return artifacts.WriteMetadata(os.Stdout)
}

func parseMode(s string) (zmqsrc.Mode, error) {
	switch s {
	case "", "auto":
		return zmqsrc.ModeAuto, nil
	case "autotools":
		return zmqsrc.ModeAutotools, nil
	case "cmake":
		return zmqsrc.ModeCMake, nil
	case "direct":
		return zmqsrc.ModeDirectCompile, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want auto, autotools, cmake or direct)", s)
	}
}

// toolchainEnv copies the toolchain-relevant ambient variables into the
// explicit environment forwarded to every subprocess.
func toolchainEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{"CC", "CXX", "PATH", "MAKEFLAGS", "CPPFLAGS", "CFLAGS", "CXXFLAGS", "LDFLAGS"} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}

package internal

import (
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zmqsrc",
	Short: "zmqsrc builds the vendored libzmq source tree",
	Long: `zmqsrc derives a build plan for the vendored libzmq tree, drives the
native toolchain (configure/make, cmake, or a direct compile), and prints
the resulting artifact metadata for a consuming build pipeline.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

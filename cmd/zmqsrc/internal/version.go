package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeromq/zmqsrc/internal/manifest"
)

// version is stamped at release time.
var version = "dev"

var versionSource string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the zmqsrc version and, optionally, the vendored library version",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().StringVar(&versionSource, "vendor", "", "Vendored tree to report the library version for")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("zmqsrc %s\n", version)
	if versionSource == "" {
		return nil
	}
	m, err := manifest.Load(versionSource)
	if err != nil {
		return err
	}
	if m.Version == "" {
		fmt.Println("vendored version: unknown (no vendor.toml)")
		return nil
	}
	fmt.Printf("vendored %s %s\n", m.Name, m.Version)
	return nil
}

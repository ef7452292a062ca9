package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zeromq/zmqsrc/internal/probe"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the toolchain capability probes and print the results",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	p := &probe.Prober{
		CC:  os.Getenv("CC"),
		CXX: os.Getenv("CXX"),
	}
	for _, kind := range []probe.Kind{
		probe.StrlcpyAvailable,
		probe.Cxx11Supported,
		probe.IPCHeadersAvailable,
	} {
		ok, err := p.Probe(kind)
		if err != nil {
			return fmt.Errorf("probe %s: %w", kind, err)
		}
		fmt.Printf("%s=%v\n", kind, ok)
	}
	return nil
}

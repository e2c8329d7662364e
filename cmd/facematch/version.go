package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facematch/internal/version"
)

func newVersionCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(s.out, "facematch %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

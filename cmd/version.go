package cmd

import (
	"fmt"

	"github.com/lumen-labs/yield-ledger/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and commit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yield-ledger %s (%s)\n", version.GetVersion(), version.GetCommit())
	},
}

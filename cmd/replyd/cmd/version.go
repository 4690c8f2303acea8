package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-reply/internal/runtime"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), runtime.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

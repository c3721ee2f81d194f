package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints steward version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Version())
	},
}

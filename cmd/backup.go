package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "copy the current state file to a timestamped artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		mgr, err := newBackupManager(cfg)
		if err != nil {
			return err
		}

		artifact, err := mgr.Backup()
		if err != nil {
			return err
		}

		cmd.Println(artifact)
		return nil
	},
}

var (
	restoreYes bool

	restoreCmd = &cobra.Command{
		Use:   "restore <artifact>",
		Short: "replace the current state file with a backup artifact",
		Long: "Stops the service, keeps the current state file as an .old sidecar, copies\n" +
			"the artifact into place and restarts the service. The sidecar is never\n" +
			"deleted automatically.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCLI()
			if err != nil {
				return err
			}

			if !restoreYes {
				ok, err := confirm(cmd, fmt.Sprintf("Replace %s with %s? This cannot be undone", cfg.StateFile, args[0]))
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println("restore aborted")
					return nil
				}
			}

			mgr, err := newBackupManager(cfg)
			if err != nil {
				return err
			}

			if err := mgr.Restore(args[0]); err != nil {
				return err
			}

			cmd.Println("restore complete")
			return nil
		},
	}
)

func init() {
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "skip the confirmation prompt")
}

// confirm asks a y/N question on the command's input stream. Anything but
// an explicit yes declines.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	cmd.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

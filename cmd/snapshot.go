package cmd

import (
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "inspect and maintain update snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "list snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		snaps, err := newSnapshotStore(cfg).List()
		if err != nil {
			return err
		}

		if len(snaps) == 0 {
			cmd.Println("no snapshots")
			return nil
		}

		for _, snap := range snaps {
			ref, err := snap.PreviousRef()
			if err != nil {
				ref = "?"
			}

			contents := ""
			if _, ok := snap.StatePath(); ok {
				contents += " state"
			}
			if _, ok := snap.ConfigPath(); ok {
				contents += " config"
			}
			if contents == "" {
				contents = " (empty)"
			}

			cmd.Printf("%s  ref=%s %s\n", snap.Name, ref, contents)
		}
		return nil
	},
}

var (
	pruneKeep int

	snapshotPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "delete all but the most recent snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCLI()
			if err != nil {
				return err
			}

			keep := pruneKeep
			if !cmd.Flags().Changed("keep") {
				keep = cfg.KeepSnapshots
			}

			removed, err := newSnapshotStore(cfg).Prune(keep)
			if err != nil {
				return err
			}

			cmd.Printf("removed %d snapshots, keeping the %d most recent\n", removed, keep)
			return nil
		},
	}
)

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "delete one snapshot by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		if err := newSnapshotStore(cfg).Delete(args[0]); err != nil {
			return err
		}

		cmd.Printf("deleted snapshot %s\n", args[0])
		return nil
	},
}

func init() {
	snapshotPruneCmd.Flags().IntVar(&pruneKeep, "keep", 5, "number of snapshots to keep")
}

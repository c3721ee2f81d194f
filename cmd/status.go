package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show deployment status: service, reference, snapshots, last update",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		cmd.Printf("config: %s\n", configPath)
		cmd.Printf("service: %s\n", cfg.ServiceName)

		sup, err := newSupervisor(cfg)
		if err != nil {
			return err
		}
		if status, err := sup.Status(); err != nil {
			cmd.Printf("  status: unavailable (%v)\n", err)
		} else {
			cmd.Printf("  status: %s\n", status)
		}

		if ref, err := newGit(cfg).CurrentReference(cmd.Context()); err != nil {
			cmd.Printf("reference: unavailable (%v)\n", err)
		} else {
			cmd.Printf("reference: %s\n", ref)
		}

		opStore := newOpStateStore(cfg)
		rec, err := opStore.Load()
		if err != nil {
			return err
		}
		cmd.Printf("reset flag: armed=%t\n", rec.ResetStateOnUpdate)

		snaps, err := newSnapshotStore(cfg).List()
		if err != nil {
			return err
		}
		cmd.Printf("snapshots: %d", len(snaps))
		if len(snaps) > 0 {
			cmd.Printf(", newest %s", snaps[0].Name)
		}
		cmd.Println()

		if last := rec.LastUpdate; last != nil {
			outcome := "failed"
			if last.Success {
				outcome = "succeeded"
			}
			cmd.Printf("last update: %s at %s", outcome, last.FinishedAt.Format("2006-01-02 15:04:05"))
			if last.FailedPhase != "" {
				cmd.Printf(", phase %s, rollback %s", last.FailedPhase, last.Rollback)
			}
			cmd.Println()
			for _, w := range last.Warnings {
				cmd.Printf("  warning: %s\n", w)
			}
		}

		return nil
	},
}

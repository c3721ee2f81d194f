package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/updater"
)

var (
	updateWaitForLock bool

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "pull new code, refresh dependencies and restart the service",
		Long: "Runs the phased update: snapshot current state, advance the working tree\n" +
			"to the remote reference, reinstall dependencies, optionally clear persisted\n" +
			"state, restart the service. Any fatal failure rolls back to the snapshot.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := initCLI()
			if err != nil {
				return err
			}

			up, err := newUpdater(cfg, updateWaitForLock)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			SetupCloseHandler(ctx, cancel)

			res, err := up.Run(ctx)
			if err != nil {
				return err
			}

			for _, w := range res.Warnings {
				cmd.Printf("warning: %s\n", w)
			}

			if res.Success {
				cmd.Printf("update succeeded, snapshot at %s\n", res.SnapshotPath)
				return nil
			}

			cmd.PrintErrf("update failed in phase %s, rollback: %s, snapshot at %s\n",
				res.FailedPhase, res.Rollback, res.SnapshotPath)

			code := 3
			if res.Rollback == updater.RollbackFull {
				code = 2
			}
			return &exitError{code: code, err: fmt.Errorf("update failed in phase %s", res.FailedPhase)}
		},
	}
)

func init() {
	updateCmd.Flags().BoolVar(&updateWaitForLock, "wait", false, "wait for a concurrent steward invocation to finish instead of failing fast")
}

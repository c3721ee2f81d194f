package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/opstate"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "manage the destructive state-reset flag",
	Long: "When armed, the next successful update deletes the persisted state file\n" +
		"before the service restarts and clears the flag.",
}

var resetArmCmd = &cobra.Command{
	Use:   "arm",
	Short: "request state clearing on the next update",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		err = newOpStateStore(cfg).Mutate(func(rec *opstate.Record) error {
			rec.ResetStateOnUpdate = true
			return nil
		})
		if err != nil {
			return err
		}

		cmd.Println("reset flag armed: the next update will delete the persisted state file")
		return nil
	},
}

var resetDisarmCmd = &cobra.Command{
	Use:   "disarm",
	Short: "withdraw a pending state-reset request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		err = newOpStateStore(cfg).Mutate(func(rec *opstate.Record) error {
			rec.ResetStateOnUpdate = false
			return nil
		})
		if err != nil {
			return err
		}

		cmd.Println("reset flag disarmed")
		return nil
	},
}

var resetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show whether a state reset is pending",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		rec, err := newOpStateStore(cfg).Load()
		if err != nil {
			return err
		}

		if rec.ResetStateOnUpdate {
			cmd.Println("reset flag is armed")
		} else {
			cmd.Println("reset flag is not armed")
		}
		return nil
	},
}

package cmd

import (
	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "control the managed system service",
}

var svcStartCmd = &cobra.Command{
	Use:   "start",
	Short: "start the managed service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		sup, err := newSupervisor(cfg)
		if err != nil {
			return err
		}

		if err := sup.Start(); err != nil {
			return err
		}
		cmd.Printf("service %s has been started\n", cfg.ServiceName)
		return nil
	},
}

var svcStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stop the managed service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		sup, err := newSupervisor(cfg)
		if err != nil {
			return err
		}

		if err := sup.Stop(); err != nil {
			return err
		}
		cmd.Printf("service %s has been stopped\n", cfg.ServiceName)
		return nil
	},
}

var svcRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "restart the managed service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		sup, err := newSupervisor(cfg)
		if err != nil {
			return err
		}

		if err := sup.Stop(); err != nil {
			cmd.PrintErrf("stop failed: %v\n", err)
		}
		if err := sup.Start(); err != nil {
			return err
		}
		cmd.Printf("service %s has been restarted\n", cfg.ServiceName)
		return nil
	},
}

var svcStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the managed service status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initCLI()
		if err != nil {
			return err
		}

		sup, err := newSupervisor(cfg)
		if err != nil {
			return err
		}

		status, err := sup.Status()
		if err != nil {
			return err
		}
		cmd.Printf("service %s is %s\n", cfg.ServiceName, status)
		return nil
	},
}

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stewardhq/steward/internal/backup"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/deps"
	"github.com/stewardhq/steward/internal/opstate"
	"github.com/stewardhq/steward/internal/snapshot"
	"github.com/stewardhq/steward/internal/supervisor"
	"github.com/stewardhq/steward/internal/updater"
	"github.com/stewardhq/steward/internal/vcs"
	"github.com/stewardhq/steward/util"
)

const (
	envVarPrefix = "STW_"

	defaultConfigPath = "/etc/steward/steward.yaml"
	defaultLogFile    = "/var/log/steward/steward.log"

	stateFileName = "state.json"
	lockFileName  = "steward.lock"
)

var (
	configPath string
	logLevel   string
	logFile    string

	rootCmd = &cobra.Command{
		Use:          "steward",
		Short:        "safely update a long-running service in place",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "steward deployment manifest location")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "sets steward log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile, "sets steward log path. If console is specified the log will be output to stdout")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)

	snapshotCmd.AddCommand(snapshotListCmd, snapshotPruneCmd, snapshotDeleteCmd)
	resetCmd.AddCommand(resetArmCmd, resetDisarmCmd, resetStatusCmd)
	serviceCmd.AddCommand(svcStartCmd, svcStopCmd, svcRestartCmd, svcStatusCmd)
}

// SetupCloseHandler cancels the run context on SIGINT/SIGTERM
func SetupCloseHandler(ctx context.Context, cancel context.CancelFunc) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		done := ctx.Done()
		select {
		case <-done:
		case <-termCh:
		}

		log.Info("shutdown signal received")
		cancel()
	}()
}

// SetFlagsFromEnvVars reads and updates flag values from environment variables with prefix STW_
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.VisitAll(func(f *pflag.Flag) {
		envVar := FlagNameToEnvVar(f.Name, envVarPrefix)

		if value, present := os.LookupEnv(envVar); present {
			err := flags.Set(f.Name, value)
			if err != nil {
				log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envVar, err)
			}
		}
	})
}

// FlagNameToEnvVar converts a flag name to its environment-variable form,
// e.g. "log-level" with prefix "STW_" becomes "STW_LOG_LEVEL".
func FlagNameToEnvVar(cmdFlag string, prefix string) string {
	parsed := strings.ReplaceAll(cmdFlag, "-", "_")
	return prefix + strings.ToUpper(parsed)
}

// initCLI applies env-var overrides, sets up logging and loads the
// deployment manifest. Every subcommand that touches the deployment goes
// through it.
func initCLI() (*config.Config, error) {
	SetFlagsFromEnvVars(rootCmd)

	if err := util.InitLog(logLevel, logFile); err != nil {
		return nil, err
	}

	return config.Load(configPath)
}

func newSupervisor(cfg *config.Config) (supervisor.Supervisor, error) {
	return supervisor.NewClient(cfg.ServiceName)
}

func newGit(cfg *config.Config) *vcs.Git {
	return vcs.NewGit(cfg.WorkingDir, cfg.Remote, cfg.RemoteRef, cfg.VCSTimeout())
}

func newSnapshotStore(cfg *config.Config) *snapshot.Store {
	return snapshot.NewStore(cfg.SnapshotDir, cfg.StateFile, cfg.ConfigFile)
}

func newOpStateStore(cfg *config.Config) *opstate.Store {
	return opstate.NewStore(filepath.Join(cfg.StateDir, stateFileName))
}

func newBackupManager(cfg *config.Config) (*backup.Manager, error) {
	sup, err := newSupervisor(cfg)
	if err != nil {
		return nil, err
	}
	return backup.NewManager(cfg.StateFile, cfg.BackupDir, sup), nil
}

func newUpdater(cfg *config.Config, waitForLock bool) (*updater.Updater, error) {
	sup, err := newSupervisor(cfg)
	if err != nil {
		return nil, err
	}

	return updater.New(updater.Params{
		StateFile:      cfg.StateFile,
		ConfigFile:     cfg.ConfigFile,
		Supervisor:     sup,
		VCS:            newGit(cfg),
		Installer:      deps.NewInstaller(cfg.WorkingDir, cfg.InstallCommand, cfg.VCSTimeout()),
		Snapshots:      newSnapshotStore(cfg),
		OpState:        newOpStateStore(cfg),
		LockPath:       filepath.Join(cfg.StateDir, lockFileName),
		WaitForLock:    waitForLock,
		SettleInterval: cfg.SettleInterval(),
		KeepSnapshots:  cfg.KeepSnapshots,
	}), nil
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

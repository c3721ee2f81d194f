package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSnapshotDir = "/var/lib/steward/snapshots"
	DefaultBackupDir   = "/var/lib/steward/backups"
	DefaultStateDir    = "/var/lib/steward"

	defaultRemote            = "origin"
	defaultRemoteRef         = "main"
	defaultKeepSnapshots     = 5
	defaultSettleSeconds     = 10
	defaultVCSTimeoutSeconds = 300
)

// Config is the deployment manifest describing the one service this host
// updates in place. Durations are expressed in whole seconds.
type Config struct {
	ServiceName       string   `yaml:"service_name" validate:"required"`
	WorkingDir        string   `yaml:"working_dir" validate:"required"`
	StateFile         string   `yaml:"state_file" validate:"required"`
	ConfigFile        string   `yaml:"config_file"`
	SnapshotDir       string   `yaml:"snapshot_dir"`
	BackupDir         string   `yaml:"backup_dir"`
	StateDir          string   `yaml:"state_dir"`
	Remote            string   `yaml:"remote"`
	RemoteRef         string   `yaml:"remote_ref"`
	InstallCommand    []string `yaml:"install_command"`
	KeepSnapshots     int      `yaml:"keep_snapshots" validate:"min=1"`
	SettleSeconds     int      `yaml:"settle_seconds" validate:"min=1"`
	VCSTimeoutSeconds int      `yaml:"vcs_timeout_seconds" validate:"min=1"`
}

// SettleInterval is how long to wait after a service start request before
// trusting a liveness read.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// VCSTimeout bounds every version-control call; expiry is treated the same
// as a failed call.
func (c *Config) VCSTimeout() time.Duration {
	return time.Duration(c.VCSTimeoutSeconds) * time.Second
}

// Load reads the YAML manifest at path, applies defaults and validates the
// result. Validation errors name the offending YAML key.
func Load(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SnapshotDir == "" {
		c.SnapshotDir = DefaultSnapshotDir
	}
	if c.BackupDir == "" {
		c.BackupDir = DefaultBackupDir
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.Remote == "" {
		c.Remote = defaultRemote
	}
	if c.RemoteRef == "" {
		c.RemoteRef = defaultRemoteRef
	}
	if c.KeepSnapshots == 0 {
		c.KeepSnapshots = defaultKeepSnapshots
	}
	if c.SettleSeconds == 0 {
		c.SettleSeconds = defaultSettleSeconds
	}
	if c.VCSTimeoutSeconds == 0 {
		c.VCSTimeoutSeconds = defaultVCSTimeoutSeconds
	}
}

// Validate checks the manifest against its field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}

	return errors.New(strings.Join(msgs, "; "))
}

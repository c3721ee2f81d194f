// Package deps runs the configured dependency install command inside the
// deployment working directory. The orchestrator never escalates a failed
// install beyond a warning.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type runner func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Installer runs one configured command, e.g. a virtualenv pip install.
type Installer struct {
	workingDir string
	argv       []string
	timeout    time.Duration
	run        runner
}

func NewInstaller(workingDir string, argv []string, timeout time.Duration) *Installer {
	return &Installer{
		workingDir: workingDir,
		argv:       argv,
		timeout:    timeout,
		run:        execRunner,
	}
}

// InstallAll reinstalls declared dependencies. An empty configured command
// is a no-op.
func (i *Installer) InstallAll(ctx context.Context) error {
	if len(i.argv) == 0 {
		log.Debug("no install command configured, skipping dependency install")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	log.Infof("installing dependencies: %s", strings.Join(i.argv, " "))

	out, err := i.run(ctx, i.workingDir, i.argv[0], i.argv[1:]...)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fmt.Errorf("install dependencies: %w: %s", err, detail)
		}
		return fmt.Errorf("install dependencies: %w", err)
	}

	if len(out) > 0 {
		log.Debugf("install output: %s", strings.TrimSpace(string(out)))
	}

	return nil
}

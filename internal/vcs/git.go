// Package vcs wraps the version-control backend. All operations shell out
// to git inside the deployment working directory.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// UnknownRef is the sentinel recorded when the pre-update reference could
// not be resolved. A rollback seeing this sentinel skips the code revert.
const UnknownRef = "unknown"

// Backend is the version-control collaborator consumed by the update
// orchestrator.
type Backend interface {
	CurrentReference(ctx context.Context) (string, error)
	DiscardLocalChanges(ctx context.Context) error
	FetchRemote(ctx context.Context) error
	ForceCheckout(ctx context.Context, ref string) error
	RemoteTrackingRef() string
}

// runner executes one command in dir and returns its combined output.
// Injectable for tests.
type runner func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Git drives a git checkout at workingDir tracking one remote reference.
// Every call is bounded by the configured timeout; deadline expiry surfaces
// as an ordinary command failure.
type Git struct {
	workingDir string
	remote     string
	ref        string
	timeout    time.Duration
	run        runner
}

func NewGit(workingDir, remote, ref string, timeout time.Duration) *Git {
	return &Git{
		workingDir: workingDir,
		remote:     remote,
		ref:        ref,
		timeout:    timeout,
		run:        execRunner,
	}
}

// RemoteTrackingRef returns the remote-tracking reference a fetch updates,
// e.g. "origin/main".
func (g *Git) RemoteTrackingRef() string {
	return g.remote + "/" + g.ref
}

// CurrentReference resolves the commit currently checked out.
func (g *Git) CurrentReference(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// DiscardLocalChanges restores tracked files to their committed content.
func (g *Git) DiscardLocalChanges(ctx context.Context) error {
	_, err := g.git(ctx, "checkout", "--", ".")
	return err
}

// FetchRemote fetches the configured reference from the configured remote.
func (g *Git) FetchRemote(ctx context.Context) error {
	_, err := g.git(ctx, "fetch", g.remote, g.ref)
	return err
}

// ForceCheckout forces the working tree to exactly match ref, discarding
// local history and modifications. This intentionally survives remote
// history rewrites.
func (g *Git) ForceCheckout(ctx context.Context, ref string) error {
	_, err := g.git(ctx, "reset", "--hard", ref)
	return err
}

func (g *Git) git(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	log.Debugf("running git %s in %s", strings.Join(args, " "), g.workingDir)

	out, err := g.run(ctx, g.workingDir, "git", args...)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("git %s: %w after %s", args[0], ctxErr, g.timeout)
		}
		if detail != "" {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, detail)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}

	return out, nil
}

package vcs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

func newTestGit(out []byte, err error) (*Git, *[]call) {
	var calls []call
	g := NewGit("/opt/ticketbot", "origin", "main", time.Second)
	g.run = func(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{dir: dir, name: name, args: args})
		return out, err
	}
	return g, &calls
}

func TestCurrentReferenceTrimsOutput(t *testing.T) {
	g, calls := newTestGit([]byte("abc123\n"), nil)

	ref, err := g.CurrentReference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", ref)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/opt/ticketbot", (*calls)[0].dir)
	assert.Equal(t, []string{"rev-parse", "HEAD"}, (*calls)[0].args)
}

func TestFetchRemoteUsesConfiguredRemoteAndRef(t *testing.T) {
	g, calls := newTestGit(nil, nil)

	require.NoError(t, g.FetchRemote(context.Background()))

	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"fetch", "origin", "main"}, (*calls)[0].args)
}

func TestForceCheckoutHardResets(t *testing.T) {
	g, calls := newTestGit(nil, nil)

	require.NoError(t, g.ForceCheckout(context.Background(), "origin/main"))

	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"reset", "--hard", "origin/main"}, (*calls)[0].args)
}

func TestCommandFailureIncludesOutput(t *testing.T) {
	g, _ := newTestGit([]byte("fatal: could not read from remote\n"), errors.New("exit status 128"))

	err := g.FetchRemote(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read from remote")
}

func TestTimeoutSurfacesAsError(t *testing.T) {
	g := NewGit("/opt/ticketbot", "origin", "main", 10*time.Millisecond)
	g.run = func(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	err := g.FetchRemote(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRemoteTrackingRef(t *testing.T) {
	g := NewGit("/opt/ticketbot", "deploy", "release", time.Second)
	assert.Equal(t, "deploy/release", g.RemoteTrackingRef())
}

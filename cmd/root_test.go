package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagNameToEnvVar(t *testing.T) {
	assert.Equal(t, "STW_LOG_LEVEL", FlagNameToEnvVar("log-level", "STW_"))
	assert.Equal(t, "STW_CONFIG", FlagNameToEnvVar("config", "STW_"))
}

func TestSetFlagsFromEnvVars(t *testing.T) {
	t.Setenv("STW_LOG_LEVEL", "debug")
	defer func() {
		logLevel = "info"
		_ = rootCmd.PersistentFlags().Set("log-level", "info")
	}()

	SetFlagsFromEnvVars(rootCmd)
	assert.Equal(t, "debug", logLevel)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("usage problem")))
	assert.Equal(t, 2, ExitCode(&exitError{code: 2, err: errors.New("rolled back")}))
	assert.Equal(t, 3, ExitCode(&exitError{code: 3, err: errors.New("partial rollback")}))
}

func newConfirmCommand(input string) (*cobra.Command, *bytes.Buffer) {
	c := &cobra.Command{Use: "test"}
	out := &bytes.Buffer{}
	c.SetIn(strings.NewReader(input))
	c.SetOut(out)
	c.SetErr(out)
	return c, out
}

func TestConfirmAccepts(t *testing.T) {
	for _, input := range []string{"y\n", "Y\n", "yes\n"} {
		c, _ := newConfirmCommand(input)
		ok, err := confirm(c, "proceed?")
		require.NoError(t, err)
		assert.True(t, ok, "input %q", input)
	}
}

func TestConfirmDeclines(t *testing.T) {
	for _, input := range []string{"n\n", "\n", "nope\n"} {
		c, _ := newConfirmCommand(input)
		ok, err := confirm(c, "proceed?")
		require.NoError(t, err)
		assert.False(t, ok, "input %q", input)
	}
}

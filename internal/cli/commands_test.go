package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with captured output streams.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestExistsTrue(t *testing.T) {
	t.Setenv("MTP_BACKEND", "sim")
	out, errOut, err := execute(t, "exists", "Internal Storage")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
	assert.Empty(t, errOut)
}

func TestExistsFalseIsQuietOnStderr(t *testing.T) {
	t.Setenv("MTP_BACKEND", "sim")
	out, errOut, err := execute(t, "exists", "Internal Storage/missing.txt")
	require.ErrorIs(t, err, errNotExists)
	assert.Equal(t, "false\n", out)
	assert.Empty(t, errOut)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestExistsPrintsSetupFailures(t *testing.T) {
	t.Setenv("MTP_BACKEND", "bogus")
	out, errOut, err := execute(t, "exists", "Internal Storage/x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNotExists)
	// A setup failure must not exit silently like a plain miss does.
	assert.Empty(t, out)
	assert.Contains(t, errOut, "bogus")
}

func TestStatPrintsRefreshedProperties(t *testing.T) {
	t.Setenv("MTP_BACKEND", "sim")
	out, _, err := execute(t, "stat", "Internal Storage")
	require.NoError(t, err)
	assert.Contains(t, out, "path:\t")
	assert.Contains(t, out, "Internal Storage")
	assert.Contains(t, out, "kind:\tfolder")
}

func TestMissingArgumentMapsToExitUsage(t *testing.T) {
	_, _, err := execute(t, "size")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCodeForError(err))
}

func TestUnknownFlagMapsToExitUsage(t *testing.T) {
	_, _, err := execute(t, "devices", "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCodeForError(err))
}

func TestExitCodeForError(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCodeForError(nil))
	assert.Equal(t, ExitError, ExitCodeForError(errors.New("boom")))
	assert.Equal(t, ExitUsage, ExitCodeForError(usageError{errors.New("bad args")}))
}

package commands

import (
	"bytes"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/murmur/internal/printer"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs rootCmd with args against a fresh flag state and returns
// everything written to stdout (command and printer output) and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	redisURLFlag, namespaceFlag, configFlag = "", "", ""
	peersOutputFormat, watchOutputFormat = "table", "default"
	sendAs, sendWait, forceInit = "", 0, false
	t.Setenv("MURMUR_CONFIG", "")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevNoColor := printer.Stdout, printer.Stderr, color.NoColor
	printer.Stdout, printer.Stderr, color.NoColor = out, errOut, true
	t.Cleanup(func() {
		printer.Stdout, printer.Stderr, color.NoColor = prevOut, prevErr, prevNoColor
	})

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := executeCommand(t)

	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:", "Help should be displayed")
	assert.Contains(t, out, "murmur", "Help should show command name")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := executeCommand(t, "--unknown-flag", "value")

	require.Error(t, err, "Unknown flag should cause an error")
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RejectsSubcommandFlagsAtRoot(t *testing.T) {
	_, _, err := executeCommand(t, "--as", "someone")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2026-01-01)", rootCmd.Version)
}

func TestConnect_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, errOut, err := executeCommand(t, "peers", "--redis-url", "redis://"+addr)

	require.Error(t, err)
	assert.Equal(t, "Redis connection failed", err.Error())
	assert.Contains(t, errOut, "redis://"+addr)
}

func TestConnect_InvalidNamespace(t *testing.T) {
	mr := miniredis.RunT(t)

	_, _, err := executeCommand(t, "peers", "--redis-url", "redis://"+mr.Addr(), "--namespace", "Not Valid")

	require.Error(t, err)
	assert.Equal(t, "invalid namespace", err.Error())
}

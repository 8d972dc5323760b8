package commands

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_InvalidOutputFormat(t *testing.T) {
	_, errOut, err := executeCommand(t, "watch", "peer-a", "-o", "xml")

	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())
	assert.Contains(t, errOut, "Valid formats: default, json")
}

func TestWatch_RequiresToken(t *testing.T) {
	_, _, err := executeCommand(t, "watch")
	require.Error(t, err)
}

func TestWatch_RejectsEmptyToken(t *testing.T) {
	mr := miniredis.RunT(t)

	_, _, err := executeCommand(t, "watch", "", "--redis-url", "redis://"+mr.Addr())

	require.Error(t, err)
	assert.Equal(t, "subscribe failed", err.Error())
}

package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		raw      string
		expected zerolog.Level
	}{
		{raw: "debug", expected: zerolog.DebugLevel},
		{raw: "", expected: zerolog.InfoLevel},
		{raw: "INFO", expected: zerolog.InfoLevel},
		{raw: " warn ", expected: zerolog.WarnLevel},
		{raw: "warning", expected: zerolog.WarnLevel},
		{raw: "error", expected: zerolog.ErrorLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			lvl, err := ParseLevel(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, lvl)
		})
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	logger, err := New("murmurd", "warn", &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("peer", "abc").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "peer=abc")
	assert.Contains(t, out, "app=murmurd")
}

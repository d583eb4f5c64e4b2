package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetPlainSink(&buf)
	defer SetSink(os.Stderr)

	logger := New("test")

	SetLevel(Warning)
	logger.Info("hidden")
	logger.Warning("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "[test]")

	SetLevel(Debug)
	logger.Debugf("value %d", 42)
	assert.Contains(t, buf.String(), "value 42")

	SetLevel(Info)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetPlainSink(&buf)
	defer SetSink(os.Stderr)
	defer SetLevel(Info)

	logger := New("test")

	SetLevel(Level(42))
	logger.Debug("too chatty")
	logger.Info("still shown")
	assert.NotContains(t, buf.String(), "too chatty")
	assert.Contains(t, buf.String(), "still shown")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{
		"debug":   Debug,
		"":        Info,
		"INFO":    Info,
		"notice":  Notice,
		"warn":    Warning,
		"warning": Warning,
		"error":   Error,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

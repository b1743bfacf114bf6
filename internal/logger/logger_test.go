package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsAreRoutedByStream(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log, cleanup, err := newLogger(Config{}, &stdout, &stderr)
	require.NoError(t, err)
	defer cleanup()

	log.Debug("hidden")
	log.Info("hello")
	log.Warn("careful")
	log.Error("broken")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "hello")
	assert.Contains(t, stdout.String(), "careful")
	assert.NotContains(t, stdout.String(), "broken")
	assert.Contains(t, stderr.String(), "broken")
	assert.NotContains(t, stderr.String(), "hello")
}

func TestDebugLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log, cleanup, err := newLogger(Config{Level: "debug"}, &stdout, &stderr)
	require.NoError(t, err)
	defer cleanup()

	log.Debug("verbose")
	assert.Contains(t, stdout.String(), "verbose")
}

func TestInvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestFileReceivesAllLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posiljke.log")
	var stdout, stderr bytes.Buffer

	log, cleanup, err := newLogger(Config{File: path}, &stdout, &stderr)
	require.NoError(t, err)

	log.Info("to file")
	log.Error("also to file")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, string(data), "also to file")
}

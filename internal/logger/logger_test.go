package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LogConfig{Format: "json"})

	l.Info().Str("charge_id", "ch_1").Msg("aggregating")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "aggregating", entry["message"])
	assert.Equal(t, "ch_1", entry["charge_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetupToFile(t *testing.T) {
	previous := log.Logger
	previousLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
	})

	path := filepath.Join(t.TempDir(), "taxreport.log")
	require.NoError(t, Setup(LogConfig{Level: "debug", Format: "json", Output: path}))

	t.Cleanup(func() { _ = Close() })

	l := WithRunID("pipeline", "run-1")
	l.Debug().Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"pipeline"`)
	assert.Contains(t, string(data), `"run_id":"run-1"`)
}

func TestCloseReleasesLogFile(t *testing.T) {
	previous := log.Logger
	previousLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
	})

	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	require.NoError(t, Setup(LogConfig{Level: "info", Format: "json", Output: first}))
	opened := logFile
	require.NotNil(t, opened)

	// a second Setup replaces and closes the first file
	require.NoError(t, Setup(LogConfig{Level: "info", Format: "json", Output: second}))
	_, err := opened.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)

	require.NoError(t, Close())
	assert.Nil(t, logFile)
	assert.NoError(t, Close())

	l := WithComponent("serve")
	l.Info().Msg("after close")
	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}

func TestCloseWithoutLogFile(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() { log.Logger = previous })

	require.NoError(t, Setup(LogConfig{Level: "info", Output: "stderr"}))
	assert.Nil(t, logFile)
	assert.NoError(t, Close())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	err := Setup(LogConfig{Level: "loud"})
	assert.Error(t, err)
}

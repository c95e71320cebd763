package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log/writer"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLog(t *testing.T) {
	logger := New()
	logger.Debug().Msg("test debug message")
	logger.Info().Str("key", "value").Msg("test info with field")
	logger.Error().Err(errors.New(errors.UnknownError, "test")).Msg("test error")
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriter(&buf)

	scoped := root.Context("redis-client")
	scoped.Error().Str("command", "get").Msg("boom")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "redis-client", entries[0]["context"])
	assert.Equal(t, "get", entries[0]["command"])
	assert.Equal(t, "error", entries[0]["level"])
	assert.Same(t, root.Writer(), scoped.Writer())
	assert.NoError(t, scoped.Close())
}

func TestWithLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, WithLevel(zerolog.WarnLevel), WithFields(map[string]any{"service": "rediskit"}))

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["message"])
	assert.Equal(t, "rediskit", entries[0]["service"])
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error().Msg("nothing")
	assert.NoError(t, logger.Close())
}

func TestGlobalLog(t *testing.T) {
	prev := G
	defer SetGlobalLogger(prev)

	var buf bytes.Buffer
	SetGlobalLogger(NewWriter(&buf))
	SetGlobalLevel(zerolog.InfoLevel)

	Debug().Msg("hidden")
	Info().Msg("shown")
	Warn().Msg("shown")

	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestFileLog(t *testing.T) {
	dir := t.TempDir()
	config := FileConfig{
		Filepath:   dir,
		RotateMode: writer.RotateModeSize,
		Filename:   "test",
		LumberjackConfig: LumberjackConfig{
			MaxSize:    10,
			MaxBackups: 3,
		},
	}

	logger, err := NewFile(config)
	require.NoError(t, err)

	logger.Info().Msg("test file log")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "test file log")
}

func TestFileLogUnsupportedMode(t *testing.T) {
	_, err := NewFile(FileConfig{Filepath: t.TempDir(), RotateMode: writer.RotateMode(9)})
	assert.Error(t, err)
}

func TestMultiLog(t *testing.T) {
	config := FileConfig{
		Filepath:   t.TempDir(),
		RotateMode: writer.RotateModeTime,
		Filename:   "multi",
	}

	logger, err := NewMulti(config)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info().Str("type", "multi").Msg("test multi output log")
}

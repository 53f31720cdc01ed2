package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, 0, buff.Len())

	templogger.Logger.Info().Msg("Test")
	require.Contains(t, buff.String(), "Test")
}

func TestLogLevelFilters(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithLevel(zerolog.WarnLevel).Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("quiet")
	require.Equal(t, 0, buff.Len())

	templogger.Logger.Warn().Msg("loud")
	require.Contains(t, buff.String(), "loud")
}

func TestLogConsoleFormat(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithFormat(logger.FormatConsole).Make()
	require.NoError(t, err)

	templogger.Logger.Info().Str("list", "l1").Msg("saved")
	require.Contains(t, buff.String(), "saved")
	require.Contains(t, buff.String(), "list=")
}

func TestLogUnknownFormat(t *testing.T) {
	_, err := logger.New().WithFormat("xml").Make()
	require.Error(t, err)
}

func TestLogFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.log")
	templogger, err := logger.New().FromPath(path).Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("to file")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
}

func TestLeveled(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithLevel(zerolog.DebugLevel).Make()
	require.NoError(t, err)
	log := templogger.Leveled()

	cases := []struct {
		fn    func(msg string, args ...any)
		level string
	}{
		{fn: log.Error, level: "error"},
		{fn: log.Warn, level: "warn"},
		{fn: log.Info, level: "info"},
		{fn: log.Debug, level: "debug"},
	}
	for _, c := range cases {
		t.Run(c.level, func(t *testing.T) {
			buff.Reset()
			c.fn("delivered", "user", "u1", "attempt", 2)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buff.Bytes(), &entry))
			require.Equal(t, c.level, entry["level"])
			require.Equal(t, "delivered", entry["message"])
			require.Equal(t, "u1", entry["user"])
			require.EqualValues(t, 2, entry["attempt"])
		})
	}
}

func TestNop(t *testing.T) {
	require.NotPanics(t, func() {
		logger.Nop().Error("ignored", "k", "v")
	})
}

func TestLeveledTextFormat(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithFormat(logger.FormatText).WithLevel(zerolog.WarnLevel).Make()
	require.NoError(t, err)
	log := templogger.Leveled()

	log.Info("dropped")
	require.Empty(t, buff.String())

	log.Warn("delivered", "user", "u1", "attempt", 2)
	out := buff.String()
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "msg=delivered")
	require.Contains(t, out, "user=u1 attempt=2")
}

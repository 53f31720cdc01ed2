// Package logger builds the process logger and defines the small leveled
// [Logger] interface the rest of the module logs through.
package logger

import (
	"fmt"
	"io"
	rawslog "log/slog"
	"os"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger/slog"
)

const (
	permission = 0664
)

// Output formats accepted by [LogBuild.WithFormat].
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatText writes log/slog text records instead of zerolog output.
	FormatText = "text"
)

// Logger is a leveled key/value logger. Args alternate keys and values.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

type LogBuild struct {
	writer io.Writer
	path   string
	format string
	level  zerolog.Level
}

type LogData struct {
	writer  io.Writer
	format  string
	level   zerolog.Level
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{
		writer: os.Stdout,
		format: FormatJSON,
		level:  zerolog.InfoLevel,
	}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

func (build *LogBuild) WithFormat(format string) *LogBuild {
	build.format = format
	return build
}

func (build *LogBuild) WithLevel(level zerolog.Level) *LogBuild {
	build.level = level
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = &LogData{format: build.format, level: build.level}
	logData.writer = zerolog.SyncWriter(build.writer)
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		logData.writer = zerolog.SyncWriter(logData.LogFile)
	}

	switch build.format {
	case FormatJSON, FormatText, "":
	case FormatConsole:
		logData.writer = zerolog.ConsoleWriter{Out: logData.writer, NoColor: build.path != ""}
	default:
		_ = logData.Close()
		return nil, fmt.Errorf("unknown log format %q", build.format)
	}

	logData.Logger = zerolog.New(logData.writer).Level(build.level).With().Timestamp().Logger()
	return
}

// Close releases the log file, if any.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}

// Leveled adapts the built logger to [Logger]. The text format logs through
// a log/slog text handler on the same writer.
func (logData *LogData) Leveled() Logger {
	if logData.format == FormatText {
		return slog.New(rawslog.NewTextHandler(logData.writer, &rawslog.HandlerOptions{
			Level: slogLevel(logData.level),
		}))
	}
	return FromZerolog(logData.Logger)
}

func slogLevel(level zerolog.Level) rawslog.Level {
	switch {
	case level == zerolog.Disabled:
		return rawslog.LevelError + 100
	case level <= zerolog.DebugLevel:
		return rawslog.LevelDebug
	case level == zerolog.InfoLevel:
		return rawslog.LevelInfo
	case level == zerolog.WarnLevel:
		return rawslog.LevelWarn
	default:
		return rawslog.LevelError
	}
}

// FromZerolog adapts z to [Logger].
func FromZerolog(z zerolog.Logger) Logger {
	return &zerologAdapter{z: z}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologAdapter{z: zerolog.Nop()}
}

type zerologAdapter struct {
	z zerolog.Logger
}

func (a *zerologAdapter) Error(msg string, args ...any) {
	a.z.Error().Fields(args).Msg(msg)
}

func (a *zerologAdapter) Warn(msg string, args ...any) {
	a.z.Warn().Fields(args).Msg(msg)
}

func (a *zerologAdapter) Info(msg string, args ...any) {
	a.z.Info().Fields(args).Msg(msg)
}

func (a *zerologAdapter) Debug(msg string, args ...any) {
	a.z.Debug().Fields(args).Msg(msg)
}

package logtest_test

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger/logtest"
)

func ExampleRecorder() {
	rec := logtest.New()
	logger := slog.New(rec)

	logger.Info("session opened")
	logger.Warn("session queue full", slog.String("session", "01J"))
	logger.Error("delivery failed", slog.Int("attempt", 3))

	for _, line := range rec.Lines() {
		fmt.Println(line)
	}
	// Output:
	// [0] INFO: session opened
	// [1] WARN: session queue full session=01J
	// [2] ERROR: delivery failed attempt=3
}

func ExampleRecorder_withAttrs() {
	rec := logtest.New()
	logger := slog.New(rec)

	logger.Info("first")
	scoped := logger.With(slog.String("list", "l1"))
	scoped.Info("second")
	scoped.WithGroup("store").Info("third", slog.Int("count", 42))

	for _, line := range rec.Lines() {
		fmt.Println(line)
	}
	// Output:
	// [0] INFO: first
	// [1] INFO: second list=l1
	// [2] INFO: third list=l1, store.count=42
}

func TestIgnoreDebug(t *testing.T) {
	rec := logtest.New(logtest.WithIgnoreDebug())
	logger := slog.New(rec)

	logger.Debug("noise")
	logger.Info("kept")

	assert.Equal(t, []string{"[0] INFO: kept"}, rec.Lines())
	assert.True(t, rec.Contains("kept"))
	assert.False(t, rec.Contains("noise"))
}

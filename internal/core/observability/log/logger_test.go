package log

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level Level) (*Logger, *observer.ObservedLogs) {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	core, logs := observer.New(atomicLevel)
	return &Logger{zapLogger: zap.New(core), zapLevel: atomicLevel}, logs
}

func TestParseLevel(t *testing.T) {
	for name, want := range levelNames {
		got, err := ParseLevel(" " + name + " ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	l, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Level(42).String())
}

func TestLoggerLevels(t *testing.T) {
	logger, logs := observed(LevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")
	assert.Equal(t, 2, logs.Len())

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())
	logger.Debug("now kept")
	assert.Equal(t, 3, logs.Len())

	logger.SetLevel(LevelSilent)
	assert.Equal(t, LevelSilent, logger.GetLevel())
	logger.Error("silenced")
	assert.Equal(t, 3, logs.Len())
}

func TestLoggerDerivedShareLevel(t *testing.T) {
	logger, logs := observed(LevelInfo)
	child := logger.Named("mirror").With(String("topic", "world"))

	logger.SetLevel(LevelError)
	child.Info("dropped")
	child.Error("kept")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mirror", entries[0].LoggerName)
	assert.Equal(t, "world", entries[0].ContextMap()["topic"])
}

func TestLoggerFields(t *testing.T) {
	logger, logs := observed(LevelDebug)
	id := uuid.New()

	logger.Info("fields",
		Bool("ok", true),
		Duration("took", time.Second),
		Float64("ratio", 0.5),
		Int("count", 3),
		Int64("big", 1<<40),
		Uint64("dropped", 7),
		UUID("entity", id),
		Any("value", []int{1}),
		Error(errors.New("boom")),
		ErrorWithKey("cause", nil),
	)

	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, true, ctx["ok"])
	assert.Equal(t, time.Second, ctx["took"])
	assert.Equal(t, 0.5, ctx["ratio"])
	assert.Equal(t, int64(3), ctx["count"])
	assert.Equal(t, int64(1<<40), ctx["big"])
	assert.Equal(t, uint64(7), ctx["dropped"])
	assert.Equal(t, id.String(), ctx["entity"])
	assert.Equal(t, "boom", ctx["error"])
	assert.NotContains(t, ctx, "cause")
}

func TestNopAndProvide(t *testing.T) {
	nop := Nop()
	assert.NotPanics(t, func() {
		nop.Error("nothing", Error(errors.New("x")))
		_ = nop.Sync()
	})
	assert.NotNil(t, Provide())
	assert.Equal(t, zapcore.InvalidLevel, nop.zapLevel.Level())
}

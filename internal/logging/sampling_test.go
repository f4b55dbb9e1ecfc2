package logging

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/kinproj/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(levels map[zapcore.Level]LevelSamplingConfig, tick time.Duration) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	cfg := SamplingConfig{Enabled: true, Tick: config.Duration(tick), Levels: levels}
	return &Logger{zap: zap.New(newSampledCore(core, cfg)), config: NewDefaultConfig()}, observed
}

func countLevel(observed *observer.ObservedLogs, lvl zapcore.Level) int {
	return observed.FilterLevelExact(lvl).Len()
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := sampledLogger(DefaultLevelSamplingConfig(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		logger.Error(ctx, "projection failed")
	}
	assert.Equal(t, 100, countLevel(observed, zapcore.ErrorLevel))
}

func TestNewSampledCore_PerLevel(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.DebugLevel: {Initial: 2, Thereafter: 0},
		zapcore.InfoLevel:  {Initial: 4, Thereafter: 0},
	}, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		logger.Debug(ctx, "step")
		logger.Info(ctx, "step")
		logger.Warn(ctx, "step")
	}

	assert.Equal(t, 2, countLevel(observed, zapcore.DebugLevel))
	assert.Equal(t, 4, countLevel(observed, zapcore.InfoLevel))
	assert.Equal(t, 10, countLevel(observed, zapcore.WarnLevel), "levels without a sampler pass through")
}

func TestNewSampledCore_Thereafter(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 5, Thereafter: 10},
	}, time.Minute)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		logger.Info(ctx, "path projected")
	}

	// 5 initial, then entries 15, 25, ..., 95.
	assert.Equal(t, 14, countLevel(observed, zapcore.InfoLevel))
}

func TestNewSampledCore_KeyedByMessage(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	}, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logger.Info(ctx, "projection succeeded")
		logger.Info(ctx, "path projected")
	}

	assert.Equal(t, 1, observed.FilterMessage("projection succeeded").Len())
	assert.Equal(t, 1, observed.FilterMessage("path projected").Len())
}

func TestLevelFilterCore_With(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	filtered := &levelFilterCore{
		Core:  core,
		allow: func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel },
	}
	logger := &Logger{zap: zap.New(filtered), config: NewDefaultConfig()}
	ctx := context.Background()

	child := logger.With(zap.String("component", "solver"))
	child.Info(ctx, "info message")
	child.Warn(ctx, "warn message")
	child.Error(ctx, "error message")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "error message", logs[0].Message)
	assert.Equal(t, "solver", logs[0].ContextMap()["component"])
	assert.False(t, filtered.Enabled(zapcore.WarnLevel))
	assert.True(t, filtered.Enabled(zapcore.ErrorLevel))
}

package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hbaptiste/linker/core"
)

func observedLogger(level zapcore.Level) (*core.ZapLogger, *observer.ObservedLogs) {
	zcore, logs := observer.New(level)
	return core.NewZapLogger(zap.New(zcore)), logs
}

// TestZapLogger_EngineLifecycle verifies the engine's structured logs
// Given: An engine logging through zap at debug level
// When: A run completes
// Then: Registration, start and completion are logged with the engine name
func TestZapLogger_EngineLifecycle(t *testing.T) {
	logger, logs := observedLogger(zapcore.DebugLevel)
	eng := core.NewEngine(core.WithLogger(logger), core.WithName("logged"))
	eng.MustRegister(func() int { return 1 })

	require.NoError(t, eng.Execute())

	assert.Equal(t, 1, logs.FilterMessage("step registered").Len())
	started := logs.FilterMessage("run started").All()
	require.Len(t, started, 1)
	assert.Equal(t, "logged", started[0].ContextMap()["engine"])
	assert.Equal(t, int64(1), started[0].ContextMap()["steps"])
	assert.Equal(t, 1, logs.FilterMessage("run completed").Len())
}

func TestZapLogger_FailuresWithoutHandler(t *testing.T) {
	logger, logs := observedLogger(zapcore.WarnLevel)
	eng := core.NewEngine(core.WithLogger(logger))
	eng.MustRegister(func() error { return errors.New("disk full") })

	require.NoError(t, eng.Execute())

	aborted := logs.FilterMessage("run aborted").All()
	require.Len(t, aborted, 1)
	assert.Equal(t, "disk full", aborted[0].ContextMap()["error"])

	failed := logs.FilterMessage("step failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
}

func TestZapLogger_DoubleResolutionWarns(t *testing.T) {
	logger, logs := observedLogger(zapcore.WarnLevel)
	eng := core.NewEngine(core.WithLogger(logger))
	eng.MustRegister(func(c *core.Continuation) {
		c.Next(1)
		c.Next(2)
	})

	require.NoError(t, eng.Execute())
	assert.Equal(t, 1, logs.FilterMessage("continuation already resolved").Len())
}

func TestNewDefaultLogger(t *testing.T) {
	l, err := core.NewDefaultLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))

	l, err = core.NewDefaultLogger("")
	require.NoError(t, err)
	assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))

	_, err = core.NewDefaultLogger("bogus")
	assert.Error(t, err)
}

func TestNewZapLogger_Nil(t *testing.T) {
	l := core.NewZapLogger(nil)
	require.NotNil(t, l.Zap())
	assert.NotPanics(t, func() { l.Info("discarded", core.F("k", "v")) })
}

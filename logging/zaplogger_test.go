package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, obs := observer.New(level)
	return &ZapLogger{z: zap.New(core).Sugar()}, obs
}

func TestNewDevLogger(t *testing.T) {
	logger := NewDevLogger()
	require.NotNil(t, logger)
	assert.IsType(t, &ZapLogger{}, logger)
}

func TestNewProdLogger(t *testing.T) {
	logger := NewProdLogger()
	require.NotNil(t, logger)
	assert.IsType(t, &ZapLogger{}, logger)
}

func TestNewFromMode(t *testing.T) {
	assert.IsType(t, &ZapLogger{}, NewFromMode("prod"))
	assert.IsType(t, &ZapLogger{}, NewFromMode("dev"))
	assert.IsType(t, &ZapLogger{}, NewFromMode(""))
}

func TestZapLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l Logger)
		level zapcore.Level
		msg   string
	}{
		{"debug", func(l Logger) { l.Debug("debug message") }, zap.DebugLevel, "debug message"},
		{"debugf", func(l Logger) { l.Debugf("debug: %s %d", "test", 42) }, zap.DebugLevel, "debug: test 42"},
		{"info", func(l Logger) { l.Info("info message") }, zap.InfoLevel, "info message"},
		{"infof", func(l Logger) { l.Infof("info: %s", "x") }, zap.InfoLevel, "info: x"},
		{"warn", func(l Logger) { l.Warn("warn message") }, zap.WarnLevel, "warn message"},
		{"warnf", func(l Logger) { l.Warnf("warn: %d", 1) }, zap.WarnLevel, "warn: 1"},
		{"error", func(l Logger) { l.Error("error message") }, zap.ErrorLevel, "error message"},
		{"errorf", func(l Logger) { l.Errorf("error: %v", true) }, zap.ErrorLevel, "error: true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, obs := observed(zap.DebugLevel)
			tt.log(logger)
			require.Equal(t, 1, obs.Len())
			assert.Equal(t, tt.msg, obs.All()[0].Message)
			assert.Equal(t, tt.level, obs.All()[0].Level)
		})
	}
}

func TestZapLoggerStructured(t *testing.T) {
	logger, obs := observed(zap.DebugLevel)

	logger.Debugw("d", "provider", "github")
	logger.Infow("i", "provider", "google")
	logger.Warnw("w", "provider", "facebook")
	logger.Errorw("e", "provider", "instagram")

	require.Equal(t, 4, obs.Len())
	want := []string{"github", "google", "facebook", "instagram"}
	for i, entry := range obs.All() {
		assert.Contains(t, entry.Context, zap.String("provider", want[i]))
	}
}

func TestZapLoggerNamed(t *testing.T) {
	logger, obs := observed(zap.InfoLevel)

	logger.Named("resolver").Info("resolved")
	require.Equal(t, 1, obs.Len())
	assert.Equal(t, "resolver", obs.All()[0].LoggerName)
}

func TestZapLoggerWith(t *testing.T) {
	logger, obs := observed(zap.InfoLevel)

	logger.With("account_id", "abc").Info("linked")
	require.Equal(t, 1, obs.Len())
	assert.Contains(t, obs.All()[0].Context, zap.String("account_id", "abc"))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Infow("ignored", "k", "v")
	assert.NoError(t, logger.Sync())
}

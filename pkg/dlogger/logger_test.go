package dlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLogger(t *testing.T) {
	l, err := GetLogger(LogLevelDebug)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = GetLogger(LogLevelInfo)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = GetLogger(LogLevelNone)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))

	_, err = GetLogger("verbose")
	require.Error(t, err)
}

func TestGetLoggerWithFormat(t *testing.T) {
	l, err := GetLoggerWithFormat("warn", FormatText)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = GetLoggerWithFormat(LogLevelInfo, "xml")
	require.Error(t, err)

	require.Panics(t, func() { MustGetLogger("verbose") })
}

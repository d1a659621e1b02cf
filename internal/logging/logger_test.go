package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/frankli0324/go-h1/internal/config"
)

func TestNew(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
	assert.NotNil(t, NewOrNop(config.LogConfig{Enabled: true, Level: "loud"}))
}

func TestNewOrNopDisabled(t *testing.T) {
	l := NewOrNop(config.LogConfig{Level: "debug"})
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
	l = NewOrNop(config.LogConfig{Enabled: true, Level: "debug"})
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

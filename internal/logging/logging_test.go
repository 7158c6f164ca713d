package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	quiet, err := New(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	loud, err := New(true)
	require.NoError(t, err)
	assert.True(t, loud.Core().Enabled(zapcore.DebugLevel))
}

func TestInitReplacesGlobal(t *testing.T) {
	done, err := Init(true)
	require.NoError(t, err)
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))
	done()
	assert.False(t, zap.L().Core().Enabled(zapcore.ErrorLevel))
}

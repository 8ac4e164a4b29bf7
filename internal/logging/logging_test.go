// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		level       string
		enabled     zapcore.Level
		disabled    zapcore.Level
	}{
		{name: "production default", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "development default", development: true, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{name: "explicit warn", level: "warn", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{name: "development at error", development: true, level: "error", enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.development, tt.level)
			require.NoError(t, err)
			require.NotNil(t, logger)
			defer logger.Sync() //nolint:errcheck

			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.disabled))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(false, "chatty")
	require.Error(t, err)
}

package utils

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  LoggerConfig
	}{
		{"json stdout", LoggerConfig{Level: "info", OutputPath: "stdout", Format: "json"}},
		{"console stderr", LoggerConfig{Level: "debug", OutputPath: "stderr", Format: "console"}},
		{"unknown level", LoggerConfig{Level: "loud", Format: "json"}},
		{"file", LoggerConfig{Level: "info", OutputPath: filepath.Join(t.TempDir(), "logs", "server.log"), Format: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("hello")
		})
	}
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewKVLogger(zap.New(core))

	l.Info("Request stored", "request_id", "E1_2026-08-01_2026-08-02", "hotels", 2)
	l.Error("Refund call failed", "error", errors.New("gateway timeout"), "dangling")

	entries := logs.All()
	require.Len(t, entries, 2)

	info := entries[0].ContextMap()
	assert.Equal(t, "E1_2026-08-01_2026-08-02", info["request_id"])
	assert.EqualValues(t, 2, info["hotels"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	failed := entries[1].ContextMap()
	assert.Equal(t, "gateway timeout", failed["error"])
	assert.Equal(t, "dangling", failed["_extra"])
}

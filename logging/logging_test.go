package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sitedaddy/daisy-dog/config"
	"github.com/sitedaddy/daisy-dog/logging"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")

	log, err := logging.New(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.String("route", "reviews"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"route":"reviews"`)
}

func TestNewLevels(t *testing.T) {
	log, err := logging.New(config.LoggingConfig{Level: "DEBUG", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := logging.New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = logging.New(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/manjain15/propwealth-scraper/internal/config"
)

func TestGetLoggerBeforeInitialize(t *testing.T) {
	// Before InitializeLogger runs, callers still get a usable logger.
	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Debug("fallback logger is safe to use")
}

func TestInitializeLogger(t *testing.T) {
	InitializeLogger(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "propwealth-test",
	})

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), "configured level should be honored")

	// Initialization is once-only; a second call must not replace the logger.
	InitializeLogger(config.LoggerConfig{Level: "error", Format: "console"})
	assert.Same(t, logger, GetLogger())

	Sync()
}

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/arena/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg, "arena")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg, "arena", zap.Int("seed", 7))
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg, "arena")
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg, "arena")
	assert.Error(t, err)
}

func TestNewLogger_LevelIsApplied(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for name, level := range cases {
		logger, err := NewLogger(config.LoggingConfig{Level: name, Format: "json"}, "arena")
		require.NoError(t, err, "level %q should be valid", name)
		assert.True(t, logger.Core().Enabled(level))
		if level > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(level-1), "level %q must filter below itself", name)
		}
	}
}

func TestNewLoggerTo_JSONCarriesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "arena", zap.Uint64("seed", 9))
	require.NoError(t, err)

	logger.Info("match finished", zap.Duration("simulated", 1500*time.Millisecond))
	logger.Debug("dropped")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "match finished", entry["msg"])
	assert.Equal(t, "arena", entry["component"])
	assert.Equal(t, float64(9), entry["seed"])
	assert.Equal(t, "1.5s", entry["simulated"])
}

func TestNewLoggerTo_NoSampling(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, config.LoggingConfig{Level: "debug", Format: "json"}, "match")
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		logger.Debug("snapshot", zap.Int("tick", i))
	}
	assert.Equal(t, 500, strings.Count(buf.String(), `"msg":"snapshot"`))
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestInitWithWriter_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", false)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log := Component("duration")
	log.Info().Str("content_item_id", "abc").Msg("Probe succeeded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "duration", entry["component"])
	assert.Equal(t, "abc", entry["content_item_id"])
	assert.Equal(t, "Probe succeeded", entry["message"])
}

func TestInitWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", false)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	Log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

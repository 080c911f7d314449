package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNewWithWriter_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("production", "info", &buf), "auth")

	log.Debug().Msg("hidden")
	log.Info().Str("kind", "token_expired").Msg("authentication failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "authentication failed", entry["message"])
	assert.Equal(t, "auth", entry["component"])
	assert.Equal(t, "taskify", entry["service"])
	assert.Equal(t, "token_expired", entry["kind"])
}

func TestNewWithWriter_DevelopmentWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("development", "debug", &buf)

	log.Debug().Msg("starting")

	assert.Contains(t, buf.String(), "starting")
	assert.False(t, json.Valid(buf.Bytes()))
}

package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevelParsing(t *testing.T) {
	log := New(Config{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNewDebugOverridesLevel(t *testing.T) {
	log := New(Config{Level: "error", Debug: true})
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNewBadLevelFallsBack(t *testing.T) {
	log := New(Config{Level: "shouty"})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestTestLoggerIsDisabled(t *testing.T) {
	log := NewTestLogger()
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}

package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetChannelLevelWithSparseConfig(t *testing.T) {
	// A zero-value config has no ChannelLevels map; level changes must
	// still work.
	logger, err := NewChanneledLogger(&LoggerConfig{})
	require.NoError(t, err)

	require.NoError(t, logger.SetChannelLevel(ChannelChat, slog.LevelDebug))

	levels := logger.GetChannelLevels()
	assert.Equal(t, "DEBUG", levels[string(ChannelChat)])
	assert.Equal(t, slog.LevelInfo.String(), levels[string(ChannelSystem)], "untouched channels keep the default")
}

func TestSetChannelLevelRejectsUnknownChannel(t *testing.T) {
	logger, err := NewChanneledLogger(&LoggerConfig{})
	require.NoError(t, err)

	assert.Error(t, logger.SetChannelLevel(Channel("bogus"), slog.LevelWarn))
}

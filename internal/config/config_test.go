package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "wss://localhost:8443", cfg.Server.URL)
	assert.Equal(t, "default", cfg.Server.Room)
	assert.Equal(t, 3*time.Second, cfg.Server.ReconnectDelay)
	assert.Equal(t, 60*time.Second, cfg.Server.MaxBackoff)

	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, 16, cfg.Audio.BitDepth)
	assert.Equal(t, 4096, cfg.Audio.ChunkSamples)

	assert.Equal(t, 66*time.Millisecond, cfg.Tracking.PoseInterval)
	assert.Equal(t, 60, cfg.Render.TickRate)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestDefaultConfig_AnimTuning(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 22.0, cfg.Anim.VisemeRate)
	assert.Equal(t, 40.0, cfg.Anim.BlinkRate)
	assert.Equal(t, 10.0, cfg.Anim.RotationRate)
	assert.Equal(t, 0.15, cfg.Anim.RestClose)
	assert.Equal(t, 0.4, cfg.Anim.PitchScale)
	assert.Equal(t, 0.9, cfg.Anim.YawScale)
	assert.Equal(t, 0.6, cfg.Anim.RollScale)
}

func TestDir(t *testing.T) {
	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, ".flamesavatar", filepath.Base(dir))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/eca/internal/core/events/bus"
	"github.com/zeusync/eca/internal/core/observability/log"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	d, err := cfg.Interval()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, d)
	assert.Equal(t, log.LevelInfo, cfg.Level())
}

func TestLoadFileThenEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "eca.env")
	require.NoError(t, os.WriteFile(file, []byte("ECA_LISTEN_ADDR=:9000\nECA_FEED_BUFFER=8\nECA_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("ECA_FEED_BUFFER", "16")
	t.Setenv("ECA_ARBITER_ENABLED", "true")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 16, cfg.FeedBuffer)
	assert.True(t, cfg.ArbiterEnabled)
	assert.Equal(t, log.LevelDebug, cfg.Level())
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("ECA_TOPIC", "arena")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "arena", cfg.Topic)
}

func TestMirrorSkip(t *testing.T) {
	t.Setenv("ECA_MIRROR_SKIP", " eca.attribute.proposed, ,eca.component.created ")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{bus.TypeAttributeProposed, bus.TypeComponentCreated}, cfg.SkippedTypes())
	assert.Empty(t, Default().SkippedTypes())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":    func(c *Config) { c.ListenAddr = "" },
		"bad level":     func(c *Config) { c.LogLevel = "loud" },
		"bad interval":  func(c *Config) { c.CommitInterval = "soon" },
		"zero interval": func(c *Config) { c.CommitInterval = "0s" },
		"zero buffer":   func(c *Config) { c.FeedBuffer = 0 },
		"empty topic":   func(c *Config) { c.Topic = "" },
		"unknown skip":  func(c *Config) { c.MirrorSkip = "eca.attribute.changed,eca.nothing" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

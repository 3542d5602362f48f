package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MemoryMaxSize)
	assert.Equal(t, 1.24, cfg.LearningRate)
	assert.Equal(t, 0.1, cfg.StrengthGain)
	assert.Equal(t, "file", cfg.SnapshotBackend)
	assert.Equal(t, "json", cfg.SnapshotFormat)
	assert.Equal(t, "@every 5m", cfg.AutosaveSpec)

	opts := cfg.EngineOptions()
	assert.Equal(t, 1000, opts.MaxSize)
	assert.False(t, opts.Adaptive)
	assert.Nil(t, opts.StopWords, "unset stop words select the extractor defaults")
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("MEMORY_MAX_SIZE", "50")
	t.Setenv("ADAPTIVE_LEARNING", "true")
	t.Setenv("SEED_CONCEPTS", "system,memory,data")
	t.Setenv("ALLOWED_USERS", "1:2")
	t.Setenv("SNAPSHOT_BACKEND", "redis")
	t.Setenv("SNAPSHOT_FORMAT", "yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MemoryMaxSize)
	assert.True(t, cfg.AdaptiveLearning)
	assert.Equal(t, []string{"system", "memory", "data"}, cfg.SeedConcepts)
	assert.Equal(t, []int64{1, 2}, cfg.AllowedUsers)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestNew_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"size":    {"MEMORY_MAX_SIZE", "0"},
		"rate":    {"LEARNING_RATE", "-1"},
		"backend": {"SNAPSHOT_BACKEND", "s3"},
		"format":  {"SNAPSHOT_FORMAT", "xml"},
		"parse":   {"MEMORY_MAX_SIZE", "many"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNew_RedisNeedsAddress(t *testing.T) {
	t.Setenv("SNAPSHOT_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RedisAddr is required")
}

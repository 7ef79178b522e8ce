package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 8000, cfg.Context.MaxTokens)
	assert.Equal(t, 6, cfg.Context.RecentKeep)
	assert.Equal(t, "hybrid", cfg.Context.Policy)
	assert.True(t, cfg.Context.Summarize)
}

func TestSummarizeToggle(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CONTEXT_SUMMARIZE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Context.Summarize)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadRejectsBadBudget(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CONTEXT_MAX_TOKENS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONTEXT_MAX_TOKENS")
}

func TestLoadRejectsUnknownStorageBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORAGE_BACKEND", "tape")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("CONTEXT_POLICY", "sliding_window")
	t.Setenv("CONTEXT_RECENT_KEEP", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "sliding_window", cfg.Context.Policy)
	assert.Equal(t, 0, cfg.Context.RecentKeep)
}

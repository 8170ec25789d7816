package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 768, cfg.OpenAI.EmbeddingDimension)
	assert.Equal(t, 3, cfg.Embedding.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Embedding.BaseBackoff)
	assert.Equal(t, 0.6, cfg.Search.ExactBM25Weight)
	assert.True(t, cfg.Search.EnableEnhancement)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "CHUNK_SIZE=500\nCHUNK_OVERLAP=50\nEMBEDDING_GROUP_PAUSE=250ms\nSEARCH_ENABLE_ENHANCEMENT=false\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	for _, key := range []string{"CHUNK_SIZE", "CHUNK_OVERLAP", "EMBEDDING_GROUP_PAUSE", "SEARCH_ENABLE_ENHANCEMENT", "LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.GroupPause)
	assert.False(t, cfg.Search.EnableEnhancement)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "abc")
	t.Setenv("QUERY_CACHE_TTL", "forever")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("OPENAI_EMBEDDING_DIMENSION", "0")
	t.Setenv("SEARCH_EXACT_BM25_WEIGHT", "-1")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
	assert.Contains(t, err.Error(), "OPENAI_EMBEDDING_DIMENSION")
	assert.Contains(t, err.Error(), "SEARCH_EXACT_BM25_WEIGHT")
}

func TestLogLevel_Invalid(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "verbose"}}
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Retriever.TopK)
	assert.Equal(t, "retrieval", cfg.Prompt.Mode)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Generator.Model)
	assert.Equal(t, 0.7, cfg.Generator.Temperature)
	assert.Equal(t, 1024, cfg.Generator.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Generator.Timeout())
	assert.Equal(t, 20*time.Millisecond, cfg.Client.Tick())
	assert.Equal(t, 3, cfg.Client.CharsPerTick)
	assert.Equal(t, time.Second, cfg.Client.MinThinking())
	assert.Equal(t, "https://api.web3forms.com/submit", cfg.Report.URL)
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 127.0.0.1:9000
prompt:
  mode: full
  owner: Ada
generator:
  model: llama-3.1-8b-instant
client:
  chars_per_tick: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "full", cfg.Prompt.Mode)
	assert.Equal(t, "Ada", cfg.Prompt.Owner)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Generator.Model)
	assert.Equal(t, "GROQ_API_KEY", cfg.Generator.APIKeyEnv)
	assert.Equal(t, 5, cfg.Client.CharsPerTick)
	assert.Equal(t, 20, cfg.Client.TickMillis)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [oops"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	mode := filepath.Join(dir, "mode.yaml")
	require.NoError(t, os.WriteFile(mode, []byte("prompt:\n  mode: vector\n"), 0o644))
	_, err = Load(mode)
	assert.ErrorContains(t, err, "unknown prompt mode")

	both := filepath.Join(dir, "both.yaml")
	require.NoError(t, os.WriteFile(both, []byte("corpus:\n  path: a.yaml\n  document: b.txt\n"), 0o644))
	_, err = Load(both)
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  rate_limit:
    per_minute: 0
generator:
  temperature: 0
client:
  min_thinking_ms: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Generator.Temperature)
	assert.Equal(t, time.Duration(0), cfg.Client.MinThinking())
	assert.Equal(t, 0, cfg.Server.RateLimit.PerMinute)
	assert.False(t, cfg.Server.TrustForwardedFor)
	assert.Equal(t, 1024, cfg.Generator.MaxTokens)
}

func TestLoad_NegativeThinkingRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  min_thinking_ms: -5\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "min_thinking_ms")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Retriever.TopK = 2

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	require.NoError(t, os.WriteFile("config.yaml", []byte("retriever:\n  top_k: 7\n"), 0o644))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 7, cfg.Retriever.TopK)
}

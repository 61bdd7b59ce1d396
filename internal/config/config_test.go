package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromCurrentDirTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, os.WriteFile(".cgreprc.toml", []byte(`
max_results = 42

[search]
default_mode = "hybrid"
weight_text = 0.6
`), 0o644))

	cfg := Load()
	require.NotNil(t, cfg.MaxResults)
	assert.Equal(t, 42, *cfg.MaxResults)
	assert.Equal(t, ModeHybrid, cfg.Search.Mode())
	assert.Equal(t, 0.6, cfg.Search.WeightTextOrDefault())
	assert.Equal(t, 0.3, cfg.Search.WeightVectorOrDefault()) // unset, default
}

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg := Load()
	assert.Nil(t, cfg.MaxResults)
	assert.Equal(t, ModeKeyword, cfg.Search.Mode())
}

func TestCandidateKClampedToRange(t *testing.T) {
	lo, hi := 1, 10000
	assert.Equal(t, 50, SearchConfig{CandidateK: &lo}.CandidateKOrDefault())
	assert.Equal(t, 500, SearchConfig{CandidateK: &hi}.CandidateKOrDefault())
}

func TestBuiltinProfiles(t *testing.T) {
	c := Config{}
	agent := c.Profile("agent")
	assert.Equal(t, FormatJSON2, agent.FormatOrDefault())
	assert.Equal(t, 8, agent.ContextPackOrDefault())
	assert.True(t, agent.AgentCacheOrDefault())

	fast := c.Profile("fast")
	assert.Equal(t, 0, fast.ContextOrDefault())
	assert.Equal(t, 10, fast.MaxResultsOrDefault())

	unknown := c.Profile("nonexistent")
	assert.Equal(t, FormatText, unknown.FormatOrDefault())
}

func TestProfileOverrideWins(t *testing.T) {
	max := 99
	c := Config{Profiles: map[string]ProfileConfig{
		"human": {MaxResults: &max},
	}}
	assert.Equal(t, 99, c.Profile("human").MaxResultsOrDefault())
}

func TestMergeMaxResultsPrecedence(t *testing.T) {
	cfgVal := 30
	c := Config{MaxResults: &cfgVal}
	cliVal := 5
	assert.Equal(t, 5, c.MergeMaxResults(&cliVal))
	assert.Equal(t, 30, c.MergeMaxResults(nil))
	assert.Equal(t, 10, Config{}.MergeMaxResults(nil))
}

func TestHomeConfigFallback(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	home := t.TempDir()
	t.Setenv("HOME", home)
	configDir := filepath.Join(home, ".config", "cgrep")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(`
[cache]
ttl_ms = 1234
`), 0o644))

	cfg := Load()
	assert.Equal(t, int64(1234), cfg.Cache.TTLMsOrDefault())
}

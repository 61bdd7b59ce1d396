// Package config loads cgrep's TOML configuration, mirroring the schema of
// the original .cgreprc.toml / ~/.config/cgrep/config.toml files. Every
// field is optional; accessor methods apply the documented default when a
// value is unset, in a layered-config style.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/cgrep/cgrep/internal/errs"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatJSON2 OutputFormat = "json2"
)

// SearchMode selects the retrieval strategy.
type SearchMode string

const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
)

// EmbeddingEnabled controls whether the embedding pipeline runs.
type EmbeddingEnabled string

const (
	EmbeddingOff  EmbeddingEnabled = "off"
	EmbeddingAuto EmbeddingEnabled = "auto"
	EmbeddingOn   EmbeddingEnabled = "on"
)

// EmbeddingProviderType selects the Embedding Provider implementation.
type EmbeddingProviderType string

const (
	ProviderCommand EmbeddingProviderType = "command"
	ProviderBuiltin EmbeddingProviderType = "builtin"
	ProviderDummy   EmbeddingProviderType = "dummy"
	ProviderOllama  EmbeddingProviderType = "ollama"
)

// SearchConfig tunes hybrid retrieval (RE).
type SearchConfig struct {
	DefaultMode *SearchMode `toml:"default_mode"`
	CandidateK  *int        `toml:"candidate_k"`
	WeightText  *float64    `toml:"weight_text"`
	WeightVec   *float64    `toml:"weight_vector"`
}

func (s SearchConfig) Mode() SearchMode {
	if s.DefaultMode != nil {
		return *s.DefaultMode
	}
	return ModeKeyword
}

func (s SearchConfig) CandidateKOrDefault() int {
	if s.CandidateK != nil {
		return clampCandidateK(*s.CandidateK)
	}
	return 200
}

func clampCandidateK(k int) int {
	if k < 50 {
		return 50
	}
	if k > 500 {
		return 500
	}
	return k
}

func (s SearchConfig) WeightTextOrDefault() float64 {
	if s.WeightText != nil {
		return *s.WeightText
	}
	return 0.7
}

func (s SearchConfig) WeightVectorOrDefault() float64 {
	if s.WeightVec != nil {
		return *s.WeightVec
	}
	return 0.3
}

// EmbeddingConfig configures the Embedding Provider and chunking.
type EmbeddingConfig struct {
	Enabled            *EmbeddingEnabled      `toml:"enabled"`
	Provider           *EmbeddingProviderType `toml:"provider"`
	Model              *string                `toml:"model"`
	Command            *string                `toml:"command"`
	OllamaHost         *string                `toml:"ollama_host"`
	ChunkLines         *int                   `toml:"chunk_lines"`
	ChunkOverlap       *int                   `toml:"chunk_overlap"`
	MaxFileBytes       *int64                 `toml:"max_file_bytes"`
	SemanticMaxChunks  *int                   `toml:"semantic_max_chunks"`
}

func (e EmbeddingConfig) EnabledOrDefault() EmbeddingEnabled {
	if e.Enabled != nil {
		return *e.Enabled
	}
	return EmbeddingAuto
}

func (e EmbeddingConfig) ProviderOrDefault() EmbeddingProviderType {
	if e.Provider != nil {
		return *e.Provider
	}
	return ProviderCommand
}

func (e EmbeddingConfig) ModelOrDefault() string {
	if e.Model != nil {
		return *e.Model
	}
	return "local-model-id"
}

func (e EmbeddingConfig) CommandOrDefault() string {
	if e.Command != nil {
		return *e.Command
	}
	return "embedder"
}

func (e EmbeddingConfig) OllamaHostOrDefault() string {
	if e.OllamaHost != nil && *e.OllamaHost != "" {
		return *e.OllamaHost
	}
	return "http://localhost:11434"
}

func (e EmbeddingConfig) ChunkLinesOrDefault() int {
	if e.ChunkLines != nil {
		return *e.ChunkLines
	}
	return 80
}

func (e EmbeddingConfig) ChunkOverlapOrDefault() int {
	if e.ChunkOverlap != nil {
		return *e.ChunkOverlap
	}
	return 20
}

func (e EmbeddingConfig) MaxFileBytesOrDefault() int64 {
	if e.MaxFileBytes != nil {
		return *e.MaxFileBytes
	}
	return 2_000_000
}

func (e EmbeddingConfig) SemanticMaxChunksOrDefault() int {
	if e.SemanticMaxChunks != nil {
		return *e.SemanticMaxChunks
	}
	return 200_000
}

// IndexConfig configures the Filesystem Walker / Indexer Pipeline.
type IndexConfig struct {
	ExcludePaths []string `toml:"exclude_paths"`
	MaxFileSize  *int64   `toml:"max_file_size"`
}

func (i IndexConfig) MaxFileSizeOrDefault() int64 {
	if i.MaxFileSize != nil {
		return *i.MaxFileSize
	}
	return 1024 * 1024
}

// CacheConfig configures the Result Cache.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	TTLMs   *int64 `toml:"ttl_ms"`
}

func (c CacheConfig) EnabledOrDefault() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}

func (c CacheConfig) TTLMsOrDefault() int64 {
	if c.TTLMs != nil {
		return *c.TTLMs
	}
	return 600_000
}

// ProfileConfig bundles CLI defaults for a named usage mode.
type ProfileConfig struct {
	Format      *OutputFormat `toml:"format"`
	Context     *int          `toml:"context"`
	ContextPack *int          `toml:"context_pack"`
	MaxResults  *int          `toml:"max_results"`
	Mode        *SearchMode   `toml:"mode"`
	AgentCache  *bool         `toml:"agent_cache"`
}

func humanProfile() ProfileConfig {
	format, mode := FormatText, ModeKeyword
	ctx, max := 2, 20
	return ProfileConfig{Format: &format, Context: &ctx, MaxResults: &max, Mode: &mode}
}

func agentProfile() ProfileConfig {
	format, mode := FormatJSON2, ModeHybrid
	ctx, pack, max, cache := 6, 8, 50, true
	return ProfileConfig{Format: &format, Context: &ctx, ContextPack: &pack, MaxResults: &max, Mode: &mode, AgentCache: &cache}
}

func fastProfile() ProfileConfig {
	format, mode := FormatText, ModeKeyword
	ctx, max := 0, 10
	return ProfileConfig{Format: &format, Context: &ctx, MaxResults: &max, Mode: &mode}
}

func (p ProfileConfig) FormatOrDefault() OutputFormat {
	if p.Format != nil {
		return *p.Format
	}
	return FormatText
}

func (p ProfileConfig) ContextOrDefault() int {
	if p.Context != nil {
		return *p.Context
	}
	return 2
}

func (p ProfileConfig) ContextPackOrDefault() int {
	if p.ContextPack != nil {
		return *p.ContextPack
	}
	return p.ContextOrDefault()
}

func (p ProfileConfig) MaxResultsOrDefault() int {
	if p.MaxResults != nil {
		return *p.MaxResults
	}
	return 20
}

func (p ProfileConfig) ModeOrDefault() SearchMode {
	if p.Mode != nil {
		return *p.Mode
	}
	return ModeKeyword
}

func (p ProfileConfig) AgentCacheOrDefault() bool {
	if p.AgentCache != nil {
		return *p.AgentCache
	}
	return false
}

// Config is the root of a loaded .cgreprc.toml / config.toml document.
type Config struct {
	MaxResults      *int                      `toml:"max_results"`
	DefaultFormat   *string                   `toml:"default_format"`
	ExcludePatterns []string                  `toml:"exclude_patterns"`
	Search          SearchConfig              `toml:"search"`
	Embeddings      EmbeddingConfig           `toml:"embeddings"`
	Cache           CacheConfig               `toml:"cache"`
	Index           IndexConfig               `toml:"index"`
	Profiles        map[string]ProfileConfig  `toml:"profile"`
}

// Load resolves configuration with precedence: ./.cgreprc.toml, then
// ~/.config/cgrep/config.toml, then the zero-value Config.
func Load() Config {
	if cfg, ok := loadFromPath(".cgreprc.toml"); ok {
		return cfg
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "cgrep", "config.toml")
		if cfg, ok := loadFromPath(path); ok {
			return cfg
		}
	}
	return Config{}
}

func loadFromPath(path string) (Config, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, false
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to parse %s: %v\n", path, errs.Wrap(errs.ErrSerialization, "config", err))
		return Config{}, false
	}
	return cfg, true
}

// OutputFormatOrNil parses DefaultFormat, returning nil if unset or unknown.
func (c Config) OutputFormatOrNil() *OutputFormat {
	if c.DefaultFormat == nil {
		return nil
	}
	switch *c.DefaultFormat {
	case "json":
		f := FormatJSON
		return &f
	case "text":
		f := FormatText
		return &f
	default:
		return nil
	}
}

// MergeMaxResults applies CLI-wins-over-config-wins-over-builtin precedence.
func (c Config) MergeMaxResults(cliValue *int) int {
	if cliValue != nil {
		return *cliValue
	}
	if c.MaxResults != nil {
		return *c.MaxResults
	}
	return 10
}

// Profile returns a named profile, falling back to the three built-in
// presets (human, agent, fast) when not overridden by the loaded config.
func (c Config) Profile(name string) ProfileConfig {
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	switch name {
	case "human":
		return humanProfile()
	case "agent":
		return agentProfile()
	case "fast":
		return fastProfile()
	default:
		return ProfileConfig{}
	}
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .cgreprc.toml file, returning the first directory that has one. If
// nothing is found before the filesystem root, it returns startDir's
// absolute path unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errs.Wrap(errs.ErrIO, "resolve start dir", err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if fileExists(filepath.Join(dir, ".cgreprc.toml")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

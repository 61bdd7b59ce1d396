package embed

import (
	"fmt"

	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/errs"
)

// New builds a Provider from loaded configuration. The command provider is
// checked for PATH availability eagerly so that callers get a clear error
// instead of a failed subprocess spawn mid-index.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.ProviderOrDefault() {
	case config.ProviderCommand:
		command := cfg.CommandOrDefault()
		p := NewCommandProvider(command, cfg.ModelOrDefault(), true)
		if !p.Available() {
			return nil, errs.Wrap(errs.ErrProvider, "embedding provider", fmt.Errorf(
				"embedding command %q not found in PATH; semantic search requires an available provider", command))
		}
		return p, nil
	case config.ProviderBuiltin:
		return NewBuiltinProvider(), nil
	case config.ProviderDummy:
		return NewDummyProvider(BuiltinDimension), nil
	case config.ProviderOllama:
		model := cfg.ModelOrDefault()
		if model == "local-model-id" {
			model = DefaultOllamaModel
		}
		p := NewOllamaProvider(cfg.OllamaHostOrDefault(), model)
		if !p.Available() {
			return nil, errs.Wrap(errs.ErrProvider, "embedding provider", fmt.Errorf(
				"ollama host %q unreachable; start `ollama serve` or switch embeddings.provider", cfg.OllamaHostOrDefault()))
		}
		return p, nil
	default:
		return nil, errs.Wrap(errs.ErrProvider, "embedding provider", fmt.Errorf(
			"unknown embedding provider type %q", cfg.ProviderOrDefault()))
	}
}

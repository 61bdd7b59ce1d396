package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/resilience"
)

// DefaultOllamaModel is the recommended embedding model when none is
// configured for the ollama provider.
const DefaultOllamaModel = "nomic-embed-text"

// ollamaEmbedRequest is the wire format of Ollama's /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaProvider calls a running Ollama server's /api/embed endpoint.
// Grounded on an internal/lifecycle OllamaManager, trimmed to the
// embedding call path: this module's `index`/`search` commands treat an
// unreachable Ollama server as a provider error rather than auto-starting
// one (no daemon lifecycle in this module's scope).
type OllamaProvider struct {
	host    string
	model   string
	client  *http.Client
	dim     dimensionCache
	breaker *resilience.CircuitBreaker
}

// NewOllamaProvider builds a provider against host (falls back to
// http://localhost:11434, overridable via CGREP_OLLAMA_HOST).
func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	if envHost := os.Getenv("CGREP_OLLAMA_HOST"); envHost != "" {
		host = envHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		host:    host,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		breaker: resilience.NewCircuitBreaker("ollama-embed", resilience.WithMaxFailures(5), resilience.WithResetTimeout(30*time.Second)),
	}
}

func (p *OllamaProvider) Model() string { return p.model }

func (p *OllamaProvider) Dimension() (int, bool) { return p.dim.get() }

// Available reports whether the configured Ollama host is reachable,
// mirroring an IsRunning health check.
func (p *OllamaProvider) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{Model: p.model}, nil
	}

	var out ollamaEmbedResponse
	callErr := p.breaker.Execute(func() error {
		return resilience.Retry(ctx, resilience.RetryConfig{
			MaxRetries: 2, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, Multiplier: 2, Jitter: true,
		}, func() error {
			resp, err := p.doEmbed(ctx, texts)
			if err != nil {
				return err
			}
			out = resp
			return nil
		})
	})
	if callErr != nil {
		if errors.Is(callErr, resilience.ErrCircuitOpen) {
			return Result{}, errs.Wrap(errs.ErrProvider, fmt.Sprintf("ollama host %s is failing repeatedly, backing off", p.host), callErr)
		}
		return Result{}, callErr
	}

	if len(out.Embeddings) != len(texts) {
		return Result{}, errs.Wrap(errs.ErrProvider, "ollama embed vector count mismatch",
			fmt.Errorf("got %d vectors for %d texts", len(out.Embeddings), len(texts)))
	}

	dim := 0
	if len(out.Embeddings) > 0 {
		dim = len(out.Embeddings[0])
	}
	p.dim.set(dim)
	return Result{Model: p.model, Dimension: dim, Vectors: out.Embeddings}, nil
}

// doEmbed performs one HTTP round trip to Ollama's /api/embed endpoint.
func (p *OllamaProvider) doEmbed(ctx context.Context, texts []string) (ollamaEmbedResponse, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return ollamaEmbedResponse{}, errs.Wrap(errs.ErrSerialization, "ollama embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return ollamaEmbedResponse{}, errs.Wrap(errs.ErrProvider, "ollama embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return ollamaEmbedResponse{}, errs.Wrap(errs.ErrProvider, fmt.Sprintf("ollama host %s unreachable", p.host), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ollamaEmbedResponse{}, errs.Wrap(errs.ErrProvider, fmt.Sprintf("ollama embed returned status %d", resp.StatusCode), errors.New("non-200 response"))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ollamaEmbedResponse{}, errs.Wrap(errs.ErrProvider, "malformed ollama embed response", err)
	}
	return out, nil
}

func (p *OllamaProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, p, text)
}

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cgrep/cgrep/internal/errs"
)

// request is the EP wire-format request (spec §8 "Embedding wire format").
type request struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	Normalize bool     `json:"normalize"`
}

// response is the EP wire-format response.
type response struct {
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
}

// CommandProvider spawns a subprocess for each batch, writing a JSON request
// on its stdin and reading a JSON response from its stdout.
type CommandProvider struct {
	command   string
	model     string
	normalize bool
	dim       dimensionCache
}

// NewCommandProvider builds a command-backed provider. command may include
// arguments separated by whitespace, e.g. "python embed.py --fast".
func NewCommandProvider(command, model string, normalize bool) *CommandProvider {
	if model == "" {
		model = DefaultModelID
	}
	return &CommandProvider{command: command, model: model, normalize: normalize}
}

func (p *CommandProvider) Model() string { return p.model }

func (p *CommandProvider) Dimension() (int, bool) { return p.dim.get() }

// Available reports whether the configured command's executable exists on
// PATH, mirroring the original provider's startup check.
func (p *CommandProvider) Available() bool {
	parts := strings.Fields(p.command)
	if len(parts) == 0 {
		return false
	}
	_, err := exec.LookPath(parts[0])
	return err == nil
}

func (p *CommandProvider) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{Model: p.model}, nil
	}

	parts := strings.Fields(p.command)
	if len(parts) == 0 {
		return Result{}, errs.Wrap(errs.ErrProvider, "embed command", errString("empty command"))
	}

	reqBody, err := json.Marshal(request{Model: p.model, Texts: texts, Normalize: p.normalize})
	if err != nil {
		return Result{}, errs.Wrap(errs.ErrSerialization, "embed request", err)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = bytes.NewReader(reqBody)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, errs.Wrap(errs.ErrProvider, fmt.Sprintf("embed command %q failed: %s", p.command, stderr.String()), err)
	}

	var resp response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Result{}, errs.Wrap(errs.ErrProvider, fmt.Sprintf("malformed embed response: %s", stdout.String()), err)
	}
	if len(resp.Vectors) != len(texts) {
		return Result{}, errs.Wrap(errs.ErrProvider, "embed response vector count mismatch", errString(
			fmt.Sprintf("got %d vectors for %d texts", len(resp.Vectors), len(texts))))
	}

	p.dim.set(resp.Dimension)
	return Result{Model: resp.Model, Dimension: resp.Dimension, Vectors: resp.Vectors}, nil
}

func (p *CommandProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, p, text)
}

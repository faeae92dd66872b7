// Package embedding adapts to an external text->vector provider (C3),
// grounded on the teacher's bounded-concurrency rate limiter for the
// in-flight cap and treating failures as best-effort per spec §4.3.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Provider selects which upstream embedding service to call.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

const defaultTimeout = 10 * time.Second

// Client is the synchronous interface the object store's background
// embedder calls. Embed never returns an error to its caller for upstream
// failures — it logs and returns (nil, false) so the object is stored with
// embedding=null, per the "embedding optionality" design note.
type Client interface {
	Embed(ctx context.Context, text string) (vector []float64, ok bool)
	Dimension() int
}

// Config configures the HTTP-backed embedding client.
type Config struct {
	Provider     Provider
	ServiceURL   string
	Model        string
	MaxDimension int
	Concurrency  int
}

// httpClient calls an Ollama/OpenAI-style embeddings endpoint, bounding
// in-flight requests with a semaphore sized by Config.Concurrency (default
// 4 per §5's shared-resource budget).
type httpClient struct {
	cfg    Config
	hc     *http.Client
	sem    chan struct{}
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) Client {
	if cfg.Provider == "" || cfg.Provider == ProviderNone {
		return noopClient{dimension: cfg.MaxDimension}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &httpClient{
		cfg:    cfg,
		hc:     &http.Client{Timeout: defaultTimeout},
		sem:    make(chan struct{}, concurrency),
		logger: logger,
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float64   `json:"embedding"`
	Data      []embedData `json:"data"`
}

type embedData struct {
	Embedding []float64 `json:"embedding"`
}

func (c *httpClient) Dimension() int { return c.cfg.MaxDimension }

func (c *httpClient) Embed(ctx context.Context, text string) ([]float64, bool) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: text})
	if err != nil {
		c.logger.Warn("embedding request marshal failed", zap.Error(err))
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServiceURL, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("embedding request build failed", zap.Error(err))
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.Warn("embedding provider unreachable", zap.Error(err), zap.String("provider", string(c.cfg.Provider)))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("embedding provider returned non-200", zap.Int("status", resp.StatusCode))
		return nil, false
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("embedding response decode failed", zap.Error(err))
		return nil, false
	}

	vec := out.Embedding
	if len(vec) == 0 && len(out.Data) > 0 {
		vec = out.Data[0].Embedding
	}
	if len(vec) == 0 {
		c.logger.Warn("embedding provider returned an empty vector")
		return nil, false
	}
	if c.cfg.MaxDimension > 0 && len(vec) > c.cfg.MaxDimension {
		vec = vec[:c.cfg.MaxDimension]
	}
	return vec, true
}

// noopClient backs EMBEDDING_PROVIDER=none: every embedding request
// degrades to "unavailable" without making a network call.
type noopClient struct{ dimension int }

func (noopClient) Embed(ctx context.Context, text string) ([]float64, bool) { return nil, false }
func (n noopClient) Dimension() int                                        { return n.dimension }

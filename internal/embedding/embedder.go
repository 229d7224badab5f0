package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

// Embedder is the engine's contract with the external embedding service.
// Implementations must honor the context deadline; a timeout or provider
// outage surfaces as model.ErrUnavailable, which callers degrade into
// deferred clustering rather than failing the submission.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Client calls an OpenAI-compatible embeddings API.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Embed returns the fixed-length vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", model.ErrInvalidInput)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("embedding request failed")
		return nil, mapAPIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", model.ErrUnavailable)
	}

	raw := resp.Data[0].Embedding
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// mapAPIError maps provider failures into the domain taxonomy: 4xx rejects
// the input, everything else (5xx, timeouts, transport errors) is a
// retry-safe outage.
func mapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
			return fmt.Errorf("%w: embedding API rejected input (%d): %s",
				model.ErrInvalidInput, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return fmt.Errorf("%w: embedding API error %d", model.ErrUnavailable, apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 {
			return fmt.Errorf("%w: embedding API rejected request (%d)",
				model.ErrInvalidInput, reqErr.HTTPStatusCode)
		}
	}

	return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
}

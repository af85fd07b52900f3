package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stellarlinkco/clawscope/internal/config"
)

// Embedder turns text into fixed-dimension vectors. All vectors in one
// collection must come from the same model; similarity across models is
// undefined.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type embedderClient struct {
	apiKey      string
	baseURL     string
	model       string
	expectedDim int
	batchSize   int
	httpClient  *http.Client
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder builds the /v1/embeddings client. Missing credentials are
// a fatal startup error.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	apiKey := strings.TrimSpace(cfg.EmbeddingAPIKey())
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.EmbeddingBaseURL()), "/")
	model := strings.TrimSpace(cfg.Enrich.Embedding.Model)
	if apiKey == "" {
		return nil, fmt.Errorf("missing embedding api key (set CLAWSCOPE_EMBEDDING_API_KEY)")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("missing embedding base url (set CLAWSCOPE_EMBEDDING_BASE_URL)")
	}
	if model == "" {
		return nil, fmt.Errorf("missing embedding model (set CLAWSCOPE_EMBEDDING_MODEL)")
	}

	timeout := time.Duration(cfg.Enrich.Embedding.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultTimeoutMs) * time.Millisecond
	}
	batch := cfg.Enrich.Embedding.BatchSize
	if batch <= 0 {
		batch = config.DefaultEmbeddingBatch
	}

	return &embedderClient{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		expectedDim: cfg.Enrich.Embedding.Dimension,
		batchSize:   batch,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *embedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("embed: empty text")
	}
	vectors, err := c.request(ctx, trimmed, 1)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vectors[0], nil
}

func (c *embedderClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embed batch: empty texts")
	}
	normalized := make([]string, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, fmt.Errorf("embed batch: empty text at index %d", i)
		}
		normalized[i] = trimmed
	}

	vectors := make([][]float32, 0, len(normalized))
	for start := 0; start < len(normalized); start += c.batchSize {
		end := start + c.batchSize
		if end > len(normalized) {
			end = len(normalized)
		}
		chunk, err := c.request(ctx, normalized[start:end], end-start)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		vectors = append(vectors, chunk...)
	}
	return vectors, nil
}

func (c *embedderClient) request(ctx context.Context, input any, expected int) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Data) != expected {
		return nil, fmt.Errorf("response count mismatch: got %d want %d", len(decoded.Data), expected)
	}

	vectors := make([][]float32, expected)
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= expected {
			return nil, fmt.Errorf("invalid embedding index %d", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding vector at index %d", item.Index)
		}
		if c.expectedDim > 0 && len(item.Embedding) != c.expectedDim {
			return nil, fmt.Errorf("embedding dimension at index %d: got %d want %d", item.Index, len(item.Embedding), c.expectedDim)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding index %d", i)
		}
	}
	return vectors, nil
}

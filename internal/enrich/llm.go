// Package enrich runs the external-batch annotation passes: per-event
// summaries, modification summaries, sentiment labels, and embedding
// vectors, produced by remote OpenAI-compatible services and written
// back onto the persisted collection. The core pipeline never requires
// these fields; every consumer degrades gracefully when they are absent.
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
	"github.com/stellarlinkco/clawscope/internal/event"
)

const (
	summaryPrompt = `Summarize the following bot activity text in one short line (at most 120 characters). Return only the summary, no preamble.

Text:
%s`

	modSummaryPrompt = `The bot wrote the following content to %s. Describe the modification in one short line (at most 120 characters). Return only the description.

Content:
%s`

	sentimentPrompt = `Classify the emotional tone of this user message. Answer with exactly one word from: frustrated, displeased, neutral, pleased, delighted.

Message:
%s`
)

// Annotator produces per-event text annotations.
type Annotator interface {
	Summarize(ctx context.Context, text string) (string, error)
	SummarizeModification(ctx context.Context, file, text string) (string, error)
	Sentiment(ctx context.Context, text string) (string, error)
}

type annotatorClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewAnnotator builds the chat-completions client. Missing credentials
// are a fatal startup error, distinguished from per-item runtime
// failures, which are non-fatal and merely counted.
func NewAnnotator(cfg config.EnrichConfig) (Annotator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing enrichment api key (set CLAWSCOPE_API_KEY)")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing enrichment base url (set CLAWSCOPE_BASE_URL)")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("missing enrichment model (set CLAWSCOPE_MODEL)")
	}
	return &annotatorClient{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *annotatorClient) Summarize(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, fmt.Sprintf(summaryPrompt, text))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

func (c *annotatorClient) SummarizeModification(ctx context.Context, file, text string) (string, error) {
	out, err := c.complete(ctx, fmt.Sprintf(modSummaryPrompt, file, text))
	if err != nil {
		return "", fmt.Errorf("summarize modification: %w", err)
	}
	return out, nil
}

// Sentiment returns one of the five scale labels; any other model output
// is an error and leaves the event unclassified.
func (c *annotatorClient) Sentiment(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, fmt.Sprintf(sentimentPrompt, text))
	if err != nil {
		return "", fmt.Errorf("sentiment: %w", err)
	}
	label := strings.ToLower(strings.Trim(strings.TrimSpace(out), `."'`))
	if !event.ValidSentiment(label) {
		return "", fmt.Errorf("sentiment: unexpected label %q", out)
	}
	return label, nil
}

func (c *annotatorClient) complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{{
			"role":    "user",
			"content": prompt,
		}},
		"temperature": 0.2,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("annotation http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stellarlinkco/clawscope/internal/config"
)

func chatServer(t *testing.T, reply func(prompt string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization=%q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model=%q", req.Model)
		}

		prompt := ""
		if len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, reply(prompt))
	}))
}

func testAnnotator(t *testing.T, baseURL string) Annotator {
	t.Helper()
	a, err := NewAnnotator(config.EnrichConfig{APIKey: "test-key", BaseURL: baseURL, Model: "test-model"})
	if err != nil {
		t.Fatalf("NewAnnotator: %v", err)
	}
	return a
}

func TestNewAnnotatorMissingCredentials(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.EnrichConfig
		want string
	}{
		{"no key", config.EnrichConfig{BaseURL: "http://x", Model: "m"}, "api key"},
		{"no url", config.EnrichConfig{APIKey: "k", Model: "m"}, "base url"},
		{"no model", config.EnrichConfig{APIKey: "k", BaseURL: "http://x"}, "model"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAnnotator(tc.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	var gotPrompt string
	srv := chatServer(t, func(prompt string) string {
		gotPrompt = prompt
		return "Bot replied to two emails"
	})
	defer srv.Close()

	a := testAnnotator(t, srv.URL)
	out, err := a.Summarize(context.Background(), "checked inbox, replied twice")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "Bot replied to two emails" {
		t.Fatalf("out=%q", out)
	}
	if !strings.Contains(gotPrompt, "checked inbox, replied twice") {
		t.Fatalf("prompt missing source text: %q", gotPrompt)
	}
}

func TestSummarizeModificationIncludesFile(t *testing.T) {
	var gotPrompt string
	srv := chatServer(t, func(prompt string) string {
		gotPrompt = prompt
		return "Added a gardening note"
	})
	defer srv.Close()

	a := testAnnotator(t, srv.URL)
	out, err := a.SummarizeModification(context.Background(), "MEMORY.md", "remember: water on tuesdays")
	if err != nil {
		t.Fatalf("SummarizeModification: %v", err)
	}
	if out == "" {
		t.Fatal("empty modification summary")
	}
	if !strings.Contains(gotPrompt, "MEMORY.md") {
		t.Fatalf("prompt missing file name: %q", gotPrompt)
	}
}

func TestSentimentNormalizesLabel(t *testing.T) {
	cases := []struct {
		reply string
		want  string
	}{
		{"delighted", "delighted"},
		{"Delighted.", "delighted"},
		{`"pleased"`, "pleased"},
		{" neutral ", "neutral"},
	}
	for _, tc := range cases {
		srv := chatServer(t, func(string) string { return tc.reply })
		a := testAnnotator(t, srv.URL)
		got, err := a.Sentiment(context.Background(), "this is wonderful")
		srv.Close()
		if err != nil {
			t.Fatalf("Sentiment(%q): %v", tc.reply, err)
		}
		if got != tc.want {
			t.Fatalf("Sentiment(%q)=%q, want %q", tc.reply, got, tc.want)
		}
	}
}

func TestSentimentRejectsUnknownLabel(t *testing.T) {
	srv := chatServer(t, func(string) string { return "ambivalent" })
	defer srv.Close()

	a := testAnnotator(t, srv.URL)
	if _, err := a.Sentiment(context.Background(), "hmm"); err == nil {
		t.Fatal("expected error for off-scale label")
	}
}

func TestAnnotatorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := testAnnotator(t, srv.URL)
	if _, err := a.Summarize(context.Background(), "text"); err == nil {
		t.Fatal("expected error for http 429")
	}
}

func TestAnnotatorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	a := testAnnotator(t, srv.URL)
	if _, err := a.Summarize(context.Background(), "text"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

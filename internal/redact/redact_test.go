package redact

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStringRedactsKnownTokenShapes(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"telegram bot token", "token is 123456789:" + strings.Repeat("A", 35)},
		{"github pat", "pushed with ghp_" + strings.Repeat("a", 36)},
		{"github fine-grained pat", "auth github_pat_" + strings.Repeat("b", 30)},
		{"github oauth", "oauth gho_" + strings.Repeat("c", 36)},
		{"anthropic key", "key sk-ant-" + strings.Repeat("d", 24)},
		{"openai key", "key sk-" + strings.Repeat("e", 24)},
		{"slack token", "slack xoxb-" + strings.Repeat("1", 12)},
		{"aws access key", "aws AKIA" + strings.Repeat("Z", 16)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := String(tc.input)
			if !strings.Contains(got, Marker) {
				t.Fatalf("token survived redaction: %q", got)
			}
		})
	}
}

func TestStringLeavesPlainTextAlone(t *testing.T) {
	cases := []string{
		"Wrote 512 bytes to SOUL.md",
		"sk-short",
		"meeting at 12:30 tomorrow",
		"ghp_tooshort",
	}
	for _, in := range cases {
		if got := String(in); got != in {
			t.Fatalf("plain text modified: %q -> %q", in, got)
		}
	}
}

func TestStringRedactsMidSentence(t *testing.T) {
	secret := "ghp_" + strings.Repeat("x", 36)
	in := "configured auth with " + secret + " and moved on"
	got := String(in)
	if strings.Contains(got, secret) {
		t.Fatalf("secret survived: %q", got)
	}
	if !strings.Contains(got, "configured auth with") || !strings.Contains(got, "and moved on") {
		t.Fatalf("surrounding text damaged: %q", got)
	}
}

func TestJSONRedactsNestedStrings(t *testing.T) {
	secret := "ghp_" + strings.Repeat("k", 36)
	doc := map[string]any{
		"events": []any{
			map[string]any{
				"message": "set token " + secret,
				"bytes":   512,
				"nested":  map[string]any{"deep": secret},
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out, err := JSON(data)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if strings.Contains(string(out), secret) {
		t.Fatalf("secret survived in document: %s", out)
	}
	if !strings.Contains(string(out), Marker) {
		t.Fatal("no redaction marker in output")
	}

	// Non-string values pass through untouched.
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	ev := decoded["events"].([]any)[0].(map[string]any)
	if ev["bytes"].(float64) != 512 {
		t.Fatalf("numeric field changed: %v", ev["bytes"])
	}
}

func TestJSONRejectsInvalidDocument(t *testing.T) {
	if _, err := JSON([]byte("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

// Package redact scrubs secret-shaped substrings from the collection
// before it is published externally.
package redact

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Marker replaces every matched token.
const Marker = "[REDACTED]"

// Known secret token shapes: platform bot tokens, personal-access-token
// prefixes, API-key prefixes, cloud access key ids.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{8,10}:[A-Za-z0-9_-]{35}\b`),       // telegram bot token
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),              // github PAT
	regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{22,255}\b`),  // github fine-grained PAT
	regexp.MustCompile(`\bgho_[A-Za-z0-9]{36}\b`),              // github oauth token
	regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{20,}\b`),        // anthropic api key
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`),            // openai-style api key
	regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`),     // slack token
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),                 // aws access key id
}

// String replaces every secret-shaped substring in s.
func String(s string) string {
	for _, pat := range tokenPatterns {
		s = pat.ReplaceAllString(s, Marker)
	}
	return s
}

// Value recursively redacts every string in a decoded JSON value.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case map[string]any:
		for k, child := range t {
			t[k] = Value(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = Value(child)
		}
		return t
	default:
		return v
	}
}

// JSON redacts every string field of a JSON document.
func JSON(data []byte) ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("redact: parse document: %w", err)
	}
	out, err := json.MarshalIndent(Value(decoded), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("redact: marshal document: %w", err)
	}
	return out, nil
}

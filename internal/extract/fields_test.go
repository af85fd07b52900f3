package extract

import (
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestExtractTime(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
		ok   bool
	}{
		{"rfc3339", `{"time":"2025-06-01T12:00:00Z"}`, "2025-06-01T12:00:00Z", true},
		{"rfc3339 nano", `{"time":"2025-06-01T12:00:00.123456Z"}`, "2025-06-01T12:00:00.123456Z", true},
		{"epoch seconds", `{"ts":1748779200}`, "2025-06-01T12:00:00Z", true},
		{"epoch millis", `{"runAtMs":1748779200000}`, "2025-06-01T12:00:00Z", true},
		{"epoch string", `{"timestamp":"1748779200"}`, "2025-06-01T12:00:00Z", true},
		{"priority skips unparseable", `{"time":"garbage","timestamp":1748779200}`, "2025-06-01T12:00:00Z", true},
		{"implausible year", `{"ts":1}`, "", false},
		{"missing", `{"message":"no clock here"}`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractTime(gjson.Parse(tc.line))
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !tc.ok {
				return
			}
			want, err := time.Parse(time.RFC3339Nano, tc.want)
			if err != nil {
				t.Fatalf("bad want: %v", err)
			}
			if !got.UTC().Equal(want.UTC()) {
				t.Fatalf("got %v, want %v", got.UTC(), want.UTC())
			}
		})
	}
}

func TestExtractMessage(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"plain string", `{"message":"hello"}`, "hello"},
		{"args fallback", `{"args":["do the thing","--fast"]}`, "do the thing"},
		{"content blocks", `{"message":{"role":"assistant","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}`, "part one\npart two"},
		{"thinking block", `{"message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"}]}}`, "hmm"},
		{"bare content", `{"content":"raw text"}`, "raw text"},
		{"summary fallback", `{"summary":"job ok"}`, "job ok"},
		{"nothing", `{"level":"info"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractMessage(gjson.Parse(tc.line)); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractBytes(t *testing.T) {
	cases := []struct {
		msg  string
		want int64
		ok   bool
	}{
		{"Wrote 512 bytes to SOUL.md", 512, true},
		{"copied 3 files, wrote 512 bytes", 512, true},
		{"output was 90 chars", 90, true},
		{"written 1024 to disk", 1024, true},
		{`result: {"size": 88}`, 88, true},
		{"updated SOUL.md", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := extractBytes(tc.msg)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("extractBytes(%q)=(%d,%v), want (%d,%v)", tc.msg, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractCorrelationID(t *testing.T) {
	cases := []struct {
		name   string
		line   string
		fields []string
		want   string
	}{
		{"structured field", `{"runId":"run-42","message":"x"}`, runIDFields, "run-42"},
		{"snake case", `{"session_id":"sess-7"}`, sessionIDFields, "sess-7"},
		{"key=value in text", `{"message":"starting runId=abc-123 now"}`, runIDFields, "abc-123"},
		{"quoted key in text", `{"message":"ctx {\"sessionId\": \"s9\"}"}`, sessionIDFields, "s9"},
		{"absent", `{"message":"no ids here"}`, runIDFields, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := gjson.Parse(tc.line)
			if got := extractCorrelationID(j, j.Get("message").String(), tc.fields); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractToolName(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{"tool start: browser", "browser"},
		{"running tool: web_search", "web_search"},
		{"invoking tool=fetch now", "fetch"},
		{"no tooling mentioned", ""},
	}
	for _, tc := range cases {
		if got := extractToolName(tc.msg); got != tc.want {
			t.Fatalf("extractToolName(%q)=%q, want %q", tc.msg, got, tc.want)
		}
	}
}

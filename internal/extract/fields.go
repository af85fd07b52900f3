package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Field extractors. Each one is best-effort and never fails: absence is
// a zero value, not an error. They probe the parsed line with gjson so
// partially structured records degrade instead of breaking.

// timeFields is the timestamp priority order. First plausible match wins.
var timeFields = []string{"time", "timestamp", "ts", "runAtMs", "date", "createdAt"}

// epochMsThreshold separates epoch seconds from epoch milliseconds.
const epochMsThreshold = 1e12

var stringTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// extractTime pulls a timestamp out of a record, trying the known field
// names in priority order and both textual and epoch representations.
func extractTime(j gjson.Result) (time.Time, bool) {
	for _, field := range timeFields {
		v := j.Get(field)
		if !v.Exists() {
			continue
		}
		if t, ok := parseTimeValue(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimeValue(v gjson.Result) (time.Time, bool) {
	switch v.Type {
	case gjson.String:
		s := strings.TrimSpace(v.String())
		for _, layout := range stringTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, plausibleTime(t)
			}
		}
		// Numeric epoch shipped as a string.
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(n)
		}
	case gjson.Number:
		return epochToTime(v.Num)
	}
	return time.Time{}, false
}

func epochToTime(n float64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	var t time.Time
	if n >= epochMsThreshold {
		t = time.UnixMilli(int64(n))
	} else {
		t = time.Unix(int64(n), 0)
	}
	return t, plausibleTime(t)
}

func plausibleTime(t time.Time) bool {
	year := t.UTC().Year()
	return year >= 2000 && year <= 2100
}

// extractMessage resolves the record's free-text payload, trying in
// order: a direct message string, a message array, the first CLI-style
// argument, content-block text, then a summary field.
func extractMessage(j gjson.Result) string {
	msg := j.Get("message")
	if msg.Type == gjson.String {
		return msg.String()
	}
	if msg.IsArray() {
		if text := contentText(msg); text != "" {
			return text
		}
	}
	if arg := j.Get("args.0"); arg.Type == gjson.String {
		return arg.String()
	}
	if text := contentText(j.Get("message.content")); text != "" {
		return text
	}
	if text := contentText(j.Get("content")); text != "" {
		return text
	}
	if summary := j.Get("summary"); summary.Type == gjson.String {
		return summary.String()
	}
	return ""
}

// contentText concatenates the text and thinking sub-fields of
// structured content blocks.
func contentText(blocks gjson.Result) string {
	if !blocks.IsArray() {
		if blocks.Type == gjson.String {
			return blocks.String()
		}
		return ""
	}
	var parts []string
	blocks.ForEach(func(_, block gjson.Result) bool {
		if block.Type == gjson.String {
			parts = append(parts, block.String())
			return true
		}
		if text := block.Get("text"); text.Type == gjson.String && text.String() != "" {
			parts = append(parts, text.String())
		}
		if thinking := block.Get("thinking"); thinking.Type == gjson.String && thinking.String() != "" {
			parts = append(parts, thinking.String())
		}
		return true
	})
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Byte-count patterns, in precedence order. The first numeric capture
// wins; when a message carries several numbers this is ambiguous, which
// is a documented limitation of the heuristic rather than a bug.
var bytePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*bytes`),
	regexp.MustCompile(`(?i)(\d+)\s*chars`),
	regexp.MustCompile(`(?i)written\s+(\d+)`),
	regexp.MustCompile(`"size"\s*:\s*(\d+)`),
}

// extractBytes scans message text for a write size.
func extractBytes(msg string) (int64, bool) {
	for _, pat := range bytePatterns {
		m := pat.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n < 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

var (
	runIDFields     = []string{"runId", "run_id"}
	sessionIDFields = []string{"sessionId", "session_id"}
)

// extractCorrelationID resolves a run or session id from structured
// fields first, then from key=value / "key": value shapes in the text.
func extractCorrelationID(j gjson.Result, msg string, fields []string) string {
	for _, field := range fields {
		if v := j.Get(field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	for _, field := range fields {
		if id := scanKeyValue(msg, field); id != "" {
			return id
		}
	}
	return ""
}

var keyValuePatterns = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, key := range append(append([]string(nil), runIDFields...), sessionIDFields...) {
		out[key] = regexp.MustCompile(`(?i)"?` + regexp.QuoteMeta(key) + `"?\s*[:=]\s*"?([A-Za-z0-9._-]+)`)
	}
	return out
}()

func scanKeyValue(msg, key string) string {
	pat, ok := keyValuePatterns[key]
	if !ok {
		return ""
	}
	m := pat.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[1]
}

// Tool-name markers for unstructured text. Structured records carry the
// name in a typed content block instead.
var toolNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)tool start[:\s]+([A-Za-z0-9_.-]+)`),
	regexp.MustCompile(`(?i)run(?:ning)? tool[:\s]+([A-Za-z0-9_.-]+)`),
	regexp.MustCompile(`(?i)\btool[:=]\s*([A-Za-z0-9_.-]+)`),
}

func extractToolName(msg string) string {
	for _, pat := range toolNamePatterns {
		if m := pat.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}

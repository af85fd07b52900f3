package event

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Type is the fixed event taxonomy. New types must also be handled by
// the aggregator and the slim caps.
type Type string

const (
	TypeFileWrite        Type = "file-write"
	TypeToolCall         Type = "tool-call"
	TypeUserMessage      Type = "user-message"
	TypeAssistantMessage Type = "assistant-message"
	TypeLifecycle        Type = "lifecycle-transition"
	TypeHeartbeat        Type = "heartbeat"
	TypeSuccess          Type = "success"
	TypeFailure          Type = "failure"
	TypeOutboundEmail    Type = "outbound-email"
	TypeOutboundPost     Type = "outbound-post"
	TypeOutboundComment  Type = "outbound-comment"
	TypeScheduledJob     Type = "scheduled-job-outcome"
)

// Sentiment labels form a 5-point ordinal scale. An event without a
// sentiment is unclassified, which is distinct from neutral.
const (
	SentimentFrustrated = "frustrated"
	SentimentDispleased = "displeased"
	SentimentNeutral    = "neutral"
	SentimentPleased    = "pleased"
	SentimentDelighted  = "delighted"
)

// Sentiments returns the scale in ordinal order.
func Sentiments() []string {
	return []string{
		SentimentFrustrated,
		SentimentDispleased,
		SentimentNeutral,
		SentimentPleased,
		SentimentDelighted,
	}
}

// ValidSentiment reports whether s is one of the five labels.
func ValidSentiment(s string) bool {
	switch s {
	case SentimentFrustrated, SentimentDispleased, SentimentNeutral, SentimentPleased, SentimentDelighted:
		return true
	}
	return false
}

// TimeLayout is the canonical persisted timestamp form. Fixed width and
// always UTC, so lexicographic order on the persisted string is
// chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in the canonical form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Message length caps. Build caps apply when an event is created; slim
// caps apply to the slim export variant only.
const (
	MessageCapFileWrite = 50000
	MessageCapDefault   = 4000
	SlimCapFileWrite    = 2000
	SlimCapDefault      = 500
)

// MessageCap returns the build-time message cap for an event type.
func MessageCap(t Type) int {
	if t == TypeFileWrite {
		return MessageCapFileWrite
	}
	return MessageCapDefault
}

// SlimCap returns the slim-export message cap for an event type.
func SlimCap(t Type) int {
	if t == TypeFileWrite {
		return SlimCapFileWrite
	}
	return SlimCapDefault
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// LogEvent is the canonical unit of the extracted stream.
type LogEvent struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Type      Type   `json:"type"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Subsystem string `json:"subsystem,omitempty"`
	RunID     string `json:"runId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Bytes     int64  `json:"bytes,omitempty"`
	Role      string `json:"role,omitempty"`

	// Enrichment fields, produced by external batch passes and carried
	// forward across re-extractions by the merge policy.
	Summary       string    `json:"summary,omitempty"`
	ModSummary    string    `json:"modSummary,omitempty"`
	Sentiment     string    `json:"sentiment,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty"`
	EmbeddingText string    `json:"embeddingText,omitempty"`
}

// IdentityID computes the stable event id from the four-field dedup
// identity. Two events with equal (time, type, category, message) always
// share an id.
func IdentityID(timeStr string, typ Type, category, message string) string {
	h := sha256.New()
	h.Write([]byte(timeStr))
	h.Write([]byte{0})
	h.Write([]byte(typ))
	h.Write([]byte{0})
	h.Write([]byte(category))
	h.Write([]byte{0})
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ComputeID fills in the id from the identity tuple.
func (e *LogEvent) ComputeID() {
	e.ID = IdentityID(e.Time, e.Type, e.Category, e.Message)
}

// TimeRange is the [min, max] span of a collection.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Summary is the derived rollup persisted alongside the events.
type Summary struct {
	TotalEvents    int              `json:"totalEvents"`
	EventTypes     []string         `json:"eventTypes"`
	TimeRange      *TimeRange       `json:"timeRange"`
	MDWriteCounts  map[string]int   `json:"mdWriteCounts"`
	MDWriteBytes   map[string]int64 `json:"mdWriteBytes"`
	EmailsSent     int              `json:"emailsSent"`
	PostsCreated   int              `json:"postsCreated"`
	CommentsPosted int              `json:"commentsPosted"`
}

// Collection is the persisted artifact: the ordered event stream plus
// its derived summary, stamped with the extraction run that produced it.
type Collection struct {
	ExtractionID string     `json:"extractionId,omitempty"`
	GeneratedAt  string     `json:"generatedAt,omitempty"`
	Events       []LogEvent `json:"events"`
	Summary      Summary    `json:"summary"`
}

// Slim returns the derived export variant: embeddings and embedding
// basis text stripped, messages truncated by type. It is a copy; the
// receiver is untouched, and a slim collection is never merged back.
func (c *Collection) Slim() *Collection {
	out := &Collection{
		ExtractionID: c.ExtractionID,
		GeneratedAt:  c.GeneratedAt,
		Events:       make([]LogEvent, len(c.Events)),
		Summary:      c.Summary,
	}
	for i, e := range c.Events {
		e.Embedding = nil
		e.EmbeddingText = ""
		e.Message = Truncate(e.Message, SlimCap(e.Type))
		out.Events[i] = e
	}
	return out
}

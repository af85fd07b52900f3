package extract

import (
	"github.com/stellarlinkco/clawscope/internal/event"
)

// MergeEnrichment carries externally produced enrichment fields forward
// from a previously persisted collection onto identity-matching events
// in a freshly extracted one, so re-running extraction never discards
// prior, expensive annotation work. A nil prev (no earlier collection)
// is fine: the pass starts with an empty enrichment state.
//
// Returns the number of events that received at least one field.
func MergeEnrichment(next, prev *event.Collection) int {
	if next == nil || prev == nil {
		return 0
	}

	old := make(map[string]*event.LogEvent, len(prev.Events))
	for i := range prev.Events {
		old[prev.Events[i].ID] = &prev.Events[i]
	}

	merged := 0
	for i := range next.Events {
		src, ok := old[next.Events[i].ID]
		if !ok {
			continue
		}
		dst := &next.Events[i]
		copied := false
		if src.Summary != "" {
			dst.Summary = src.Summary
			copied = true
		}
		if src.ModSummary != "" {
			dst.ModSummary = src.ModSummary
			copied = true
		}
		if src.Sentiment != "" {
			dst.Sentiment = src.Sentiment
			copied = true
		}
		if len(src.Embedding) > 0 {
			dst.Embedding = src.Embedding
			copied = true
		}
		if src.EmbeddingText != "" && dst.EmbeddingText == "" {
			dst.EmbeddingText = src.EmbeddingText
			copied = true
		}
		if copied {
			merged++
		}
	}
	return merged
}

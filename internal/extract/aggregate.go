package extract

import (
	"sort"

	"github.com/stellarlinkco/clawscope/internal/event"
)

// Aggregate derives the collection summary: per-file write counts and
// byte totals, the three communication-outcome counts, the distinct set
// of observed event types, and the overall time span. The fixed watch
// list is always present in the write maps, even at zero; files
// discovered ad hoc are added as they appear.
func Aggregate(events []event.LogEvent, watchFiles []string) event.Summary {
	s := event.Summary{
		TotalEvents:   len(events),
		EventTypes:    []string{},
		MDWriteCounts: make(map[string]int, len(watchFiles)),
		MDWriteBytes:  make(map[string]int64, len(watchFiles)),
	}
	for _, f := range watchFiles {
		s.MDWriteCounts[f] = 0
		s.MDWriteBytes[f] = 0
	}

	types := make(map[string]struct{})
	for i := range events {
		e := &events[i]
		types[string(e.Type)] = struct{}{}

		switch e.Type {
		case event.TypeFileWrite:
			s.MDWriteCounts[e.Category]++
			s.MDWriteBytes[e.Category] += e.Bytes
		case event.TypeOutboundEmail:
			s.EmailsSent++
		case event.TypeOutboundPost:
			s.PostsCreated++
		case event.TypeOutboundComment:
			s.CommentsPosted++
		}
	}

	for t := range types {
		s.EventTypes = append(s.EventTypes, t)
	}
	sort.Strings(s.EventTypes)

	if len(events) > 0 {
		// Events arrive sorted ascending by canonical time.
		s.TimeRange = &event.TimeRange{
			Start: events[0].Time,
			End:   events[len(events)-1].Time,
		}
	}
	return s
}

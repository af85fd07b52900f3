// Package extract turns heterogeneous bot activity logs into the
// canonical typed event stream. The pass is a pure fold: input lines in,
// a deduplicated, time-sorted event collection out. Classification is
// heuristic and best-effort by design; rules are documented next to
// their patterns and intentionally not tightened, since changing them
// would alter historical event output.
package extract

import (
	"time"

	"github.com/tidwall/gjson"
)

// Record is the normalized view over one raw input line that extractors
// and classifiers operate on. Classifiers carry no cross-record state;
// everything they need is resolved here once per line.
type Record struct {
	Time      time.Time
	Message   string
	Level     string
	Subsystem string
	RunID     string
	SessionID string

	// Structured marks session/cron JSONL records, as opposed to plain
	// log lines whose message text is classified as unstructured text.
	Structured bool

	// JSON is the parsed line, kept for structural probing.
	JSON gjson.Result
}

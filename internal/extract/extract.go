package extract

import (
	"bufio"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/stellarlinkco/clawscope/internal/event"
)

// maxLineBytes bounds a single input line. Session transcripts carry
// whole file contents inside tool arguments.
const maxLineBytes = 4 * 1024 * 1024

// Result is the outcome of one extraction pass.
type Result struct {
	Collection   *event.Collection
	FilesScanned int
	LinesRead    int
	LinesSkipped int
	Deduped      int
}

// Run walks logsDir for .jsonl and .log files and folds every line into
// a deduplicated, time-sorted collection. Malformed lines and records
// without a resolvable timestamp are skipped silently; that is expected
// with heterogeneous logs, not an error.
func (x *Extractor) Run(logsDir string) (*Result, error) {
	files, err := discoverLogFiles(logsDir)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var events []event.LogEvent
	for _, file := range files {
		fileEvents, read, skipped, err := x.processFile(file)
		if err != nil {
			return nil, err
		}
		events = append(events, fileEvents...)
		res.LinesRead += read
		res.LinesSkipped += skipped
	}
	res.FilesScanned = len(files)

	events, res.Deduped = finalize(events)
	res.Collection = &event.Collection{
		ExtractionID: uuid.NewString(),
		GeneratedAt:  event.FormatTime(time.Now()),
		Events:       events,
		Summary:      Aggregate(events, x.watchFiles),
	}

	log.Printf("[extract] %d files, %d lines, %d skipped, %d events (%d duplicates dropped)",
		res.FilesScanned, res.LinesRead, res.LinesSkipped, len(events), res.Deduped)
	return res, nil
}

func discoverLogFiles(logsDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(logsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jsonl", ".log":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk logs dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// processFile feeds each line of one file through the classifiers.
// .jsonl files get the structured session/cron handling; .log lines are
// structured log records whose message is classified as plain text.
func (x *Extractor) processFile(path string) ([]event.LogEvent, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	structured := strings.EqualFold(filepath.Ext(path), ".jsonl")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var events []event.LogEvent
	read, skipped := 0, 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		read++

		r, ok := parseLine(line, structured)
		if !ok {
			skipped++
			continue
		}
		events = append(events, x.Classify(r)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, read, skipped, fmt.Errorf("scan %s: %w", path, err)
	}
	return events, read, skipped, nil
}

// parseLine builds the normalized record view for one input line.
// Returns false for unparseable lines and records without a timestamp.
func parseLine(line string, structured bool) (*Record, bool) {
	if !gjson.Valid(line) {
		return nil, false
	}
	j := gjson.Parse(line)

	ts, ok := extractTime(j)
	if !ok {
		return nil, false
	}

	msg := extractMessage(j)
	return &Record{
		Time:       ts,
		Message:    msg,
		Level:      j.Get("level").String(),
		Subsystem:  j.Get("subsystem").String(),
		RunID:      extractCorrelationID(j, msg, runIDFields),
		SessionID:  extractCorrelationID(j, msg, sessionIDFields),
		Structured: structured,
		JSON:       j,
	}, true
}

// finalize computes identity ids, drops duplicate identities keeping the
// first occurrence, and sorts ascending by canonical time. The stable
// sort preserves input order for equal timestamps.
func finalize(events []event.LogEvent) ([]event.LogEvent, int) {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	dropped := 0
	for i := range events {
		events[i].ComputeID()
		if _, dup := seen[events[i].ID]; dup {
			dropped++
			continue
		}
		seen[events[i].ID] = struct{}{}
		out = append(out, events[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out, dropped
}

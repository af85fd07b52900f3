package extract

import (
	"path"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stellarlinkco/clawscope/internal/event"
)

// Extractor classifies records into typed events. Each classifier is an
// independent predicate over the current record; several may fire on the
// same line (a tool result can yield both a failure event and a
// file-write event).
type Extractor struct {
	watchFiles []string
}

// New builds an Extractor tracking writes to the given watch-list files.
func New(watchFiles []string) *Extractor {
	return &Extractor{watchFiles: watchFiles}
}

var (
	// Write verbs that separate an actual write from a mere mention of a
	// tracked file. "From SOUL.md: ..." never fires; "Wrote 512 bytes to
	// SOUL.md" does. Writes only, never reads.
	writeVerbPattern = regexp.MustCompile(`(?i)\b(wrote|updated|edited|replaced)\b`)

	// Path-like tokens ending in a tracked extension.
	trackedPathPattern = regexp.MustCompile(`(?i)[\w./-]+\.(?:md|json|txt|ya?ml)\b`)

	writeConfirmPattern = regexp.MustCompile(`(?i)successfully (?:wrote|replaced)`)

	lifecycleStartPattern = regexp.MustCompile(`(?i)\bagent (?:run |loop )?start(?:ed|ing)?\b`)
	lifecycleEndPattern   = regexp.MustCompile(`(?i)\bagent (?:run |loop )?(?:stopp(?:ed|ing)|end(?:ed|ing)?|finish(?:ed|ing)?)\b`)

	heartbeatPattern = regexp.MustCompile(`(?i)\bheartbeat\b`)

	failureKeywordPattern = regexp.MustCompile(`(?i)\b(failed|failure|error|exception|fatal|panic)\b`)
	successMarkerPattern  = regexp.MustCompile(`(?i)(completed successfully|succeeded|finished successfully|✅)`)

	// Outbound-communication phrasing. Necessarily keyword-based; these
	// may both over- and under-fire and are a best-effort signal.
	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:email|himalaya|gmail)\b.*\b(?:sent|responded|replied)\b`),
		regexp.MustCompile(`(?i)\b(?:sent|replied to)\b.*\bemail\b`),
	}
	postPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:created|published)\b.*\bpost\b`),
		regexp.MustCompile(`(?i)\bposted to\b`),
	}
	commentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcommented on\b`),
		regexp.MustCompile(`(?i)\b(?:posted|created)\b.*\bcomment\b`),
	}

	// User text cleanup: speaker prefixes and embedded untrusted-content
	// blocks are stripped before the text is used as an embedding basis.
	speakerPrefixPattern = regexp.MustCompile(`^\s*(?:User|Human|Assistant)\s*:\s*`)
	untrustedPatterns    = []*regexp.Regexp{
		regexp.MustCompile(`(?s)<untrusted[^>]*>.*?</untrusted>`),
		regexp.MustCompile(`(?s)\[untrusted content\].*?\[/untrusted content\]`),
	}

	writeToolNames = map[string]bool{"write": true, "edit": true}
)

// Classify produces zero or more events for one record.
func (x *Extractor) Classify(r *Record) []event.LogEvent {
	if r.Structured {
		return x.classifyStructured(r)
	}
	return x.classifyText(r)
}

// newEvent stamps an event with the record's resolved metadata. The id
// is computed later, in the finalize pass, once per surviving event.
func newEvent(r *Record, typ event.Type, category, message string) event.LogEvent {
	return event.LogEvent{
		Time:      event.FormatTime(r.Time),
		Type:      typ,
		Category:  category,
		Message:   event.Truncate(message, event.MessageCap(typ)),
		Level:     r.Level,
		Subsystem: r.Subsystem,
		RunID:     r.RunID,
		SessionID: r.SessionID,
	}
}

// classifyText applies the unstructured-text rules to a plain log line.
func (x *Extractor) classifyText(r *Record) []event.LogEvent {
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return nil
	}

	var events []event.LogEvent

	// File write. Requires evidence of an actual write: a write verb or
	// an extractable byte count, never just the file name.
	if name := x.resolveFileName(msg); name != "" {
		bytes, hasBytes := extractBytes(msg)
		if writeVerbPattern.MatchString(msg) || hasBytes {
			ev := newEvent(r, event.TypeFileWrite, name, msg)
			ev.Bytes = bytes
			events = append(events, ev)
		}
	}

	if tool := extractToolName(msg); tool != "" {
		events = append(events, newEvent(r, event.TypeToolCall, tool, msg))
	}

	if lifecycleStartPattern.MatchString(msg) {
		events = append(events, newEvent(r, event.TypeLifecycle, "start", msg))
	} else if lifecycleEndPattern.MatchString(msg) {
		events = append(events, newEvent(r, event.TypeLifecycle, "end", msg))
	}

	// Heartbeat, unless the message is about the heartbeat file itself;
	// those belong to the file-write classifier.
	if heartbeatPattern.MatchString(msg) && !strings.Contains(strings.ToLower(msg), "heartbeat.md") {
		events = append(events, newEvent(r, event.TypeHeartbeat, "heartbeat", msg))
	}

	level := strings.ToLower(r.Level)
	if level == "error" || level == "fatal" || failureKeywordPattern.MatchString(msg) {
		events = append(events, newEvent(r, event.TypeFailure, outcomeCategory(r), msg))
	} else if successMarkerPattern.MatchString(msg) {
		events = append(events, newEvent(r, event.TypeSuccess, outcomeCategory(r), msg))
	}

	if matchAny(emailPatterns, msg) {
		events = append(events, newEvent(r, event.TypeOutboundEmail, "email", msg))
	}
	if matchAny(postPatterns, msg) {
		events = append(events, newEvent(r, event.TypeOutboundPost, "post", msg))
	}
	if matchAny(commentPatterns, msg) {
		events = append(events, newEvent(r, event.TypeOutboundComment, "comment", msg))
	}

	return events
}

// classifyStructured handles JSONL session, tool and cron records.
func (x *Extractor) classifyStructured(r *Record) []event.LogEvent {
	j := r.JSON
	var events []event.LogEvent

	// Cron/job records: an epoch run field plus a job outcome shape.
	if (j.Get("runAtMs").Exists() || j.Get("ts").Exists()) &&
		(j.Get("summary").Exists() || j.Get("status").Exists() || j.Get("jobId").Exists()) {
		category := j.Get("status").String()
		if category == "" {
			category = "cron"
		}
		msg := j.Get("summary").String()
		if msg == "" {
			msg = r.Message
		}
		if msg != "" {
			events = append(events, newEvent(r, event.TypeScheduledJob, category, msg))
		}
	}

	// Session message records with an explicit role.
	if role := j.Get("message.role").String(); role != "" {
		text := contentText(j.Get("message.content"))
		switch role {
		case "user":
			if text != "" {
				ev := newEvent(r, event.TypeUserMessage, "user", text)
				ev.Role = role
				ev.EmbeddingText = CleanUserText(text)
				events = append(events, ev)
			}
		case "assistant":
			if text != "" {
				ev := newEvent(r, event.TypeAssistantMessage, "assistant", text)
				ev.Role = role
				events = append(events, ev)
			}
		}
		j.Get("message.content").ForEach(func(_, block gjson.Result) bool {
			events = append(events, x.classifyContentBlock(r, block)...)
			return true
		})
		return events
	}

	// Bare tool invocation records.
	if name := j.Get("name").String(); name != "" && j.Get("arguments").Exists() {
		events = append(events, x.classifyToolUse(r, name, j.Get("arguments"))...)
	}

	// Bare tool result records.
	if j.Get("type").String() == "toolResult" || j.Get("toolResult").Exists() {
		result := j.Get("content").String()
		if result == "" {
			result = j.Get("toolResult").String()
		}
		isErr := j.Get("isError").Bool() || j.Get("is_error").Bool()
		events = append(events, x.classifyToolResult(r, j.Get("name").String(), result, isErr)...)
	}

	return events
}

// classifyContentBlock handles typed blocks inside a session message.
func (x *Extractor) classifyContentBlock(r *Record, block gjson.Result) []event.LogEvent {
	switch block.Get("type").String() {
	case "tool_use", "toolCall", "tool-call":
		name := block.Get("name").String()
		if name == "" {
			return nil
		}
		args := block.Get("input")
		if !args.Exists() {
			args = block.Get("arguments")
		}
		return x.classifyToolUse(r, name, args)
	case "tool_result", "toolResult":
		result := contentText(block.Get("content"))
		if result == "" {
			result = block.Get("content").String()
		}
		isErr := block.Get("is_error").Bool() || block.Get("isError").Bool()
		return x.classifyToolResult(r, block.Get("name").String(), result, isErr)
	}
	return nil
}

// classifyToolUse emits a tool-call event and, for write/edit tools with
// a path argument, a file-write event. The tool name itself is the write
// evidence here, so the unstructured write-verb check does not apply.
func (x *Extractor) classifyToolUse(r *Record, name string, args gjson.Result) []event.LogEvent {
	events := []event.LogEvent{newEvent(r, event.TypeToolCall, name, args.Raw)}

	if !writeToolNames[strings.ToLower(name)] {
		return events
	}
	target := args.Get("path").String()
	if target == "" {
		target = args.Get("file_path").String()
	}
	if target == "" {
		return events
	}
	content := args.Get("content").String()
	if content == "" {
		content = args.Get("new_string").String()
	}
	ev := newEvent(r, event.TypeFileWrite, path.Base(target), content)
	ev.Bytes = int64(len(content))
	events = append(events, ev)
	return events
}

// classifyToolResult emits a success or failure event and, when the
// result text confirms a write, a file-write event.
func (x *Extractor) classifyToolResult(r *Record, name, result string, isErr bool) []event.LogEvent {
	category := name
	if category == "" {
		category = "tool"
	}
	var events []event.LogEvent
	if isErr || strings.HasPrefix(strings.ToLower(strings.TrimSpace(result)), "error") {
		events = append(events, newEvent(r, event.TypeFailure, category, result))
	} else {
		events = append(events, newEvent(r, event.TypeSuccess, category, result))
	}

	if writeConfirmPattern.MatchString(result) {
		if target := x.resolveFileName(result); target != "" {
			ev := newEvent(r, event.TypeFileWrite, target, result)
			ev.Bytes, _ = extractBytes(result)
			events = append(events, ev)
		}
	}
	return events
}

// resolveFileName returns the watch-list file named verbatim in the
// message (case-insensitive), else the basename of the first path-like
// token with a tracked extension.
func (x *Extractor) resolveFileName(msg string) string {
	lower := strings.ToLower(msg)
	for _, f := range x.watchFiles {
		if strings.Contains(lower, strings.ToLower(f)) {
			return f
		}
	}
	if m := trackedPathPattern.FindString(msg); m != "" {
		return path.Base(m)
	}
	return ""
}

// CleanUserText strips speaker prefixes and embedded untrusted-content
// blocks, producing the embedding/display basis for user messages.
func CleanUserText(text string) string {
	for _, pat := range untrustedPatterns {
		text = pat.ReplaceAllString(text, "")
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = speakerPrefixPattern.ReplaceAllString(line, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func matchAny(patterns []*regexp.Regexp, msg string) bool {
	for _, pat := range patterns {
		if pat.MatchString(msg) {
			return true
		}
	}
	return false
}

func outcomeCategory(r *Record) string {
	if r.Subsystem != "" {
		return r.Subsystem
	}
	return "run"
}

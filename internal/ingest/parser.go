// Package ingest reads capture-layer logs: newline-delimited JSON with
// one edit event per line. It also recognizes the sibling review-quality
// metric record shape and reconstructs a synthetic event timeline from
// its evidence, as a best-effort fallback for consumers that only hold
// aggregate metrics. The parser is defensive: malformed lines are
// counted and skipped, never fatal.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/anthropic/edit-attribution/internal/content"
	"github.com/anthropic/edit-attribution/internal/event"
)

// Result is the outcome of parsing one log stream.
type Result struct {
	Events    []event.EditEvent
	Lines     int // lines seen
	Malformed int // lines skipped as unparseable or invalid
	Synthetic int // events reconstructed from review-metric records
}

// maxLineBytes bounds a single log line; capture layers write compact
// records, so anything bigger is treated as corrupt.
const maxLineBytes = 4 * 1024 * 1024

// ParseFile reads an NDJSON event log from disk.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ParseReader(f)
}

// ParseReader consumes an NDJSON stream line by line.
func ParseReader(r io.Reader) (*Result, error) {
	res := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := trimLine(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Lines++

		events, synthetic, ok := parseLine(line, res.Lines)
		if !ok {
			res.Malformed++
			continue
		}
		res.Events = append(res.Events, events...)
		if synthetic {
			res.Synthetic += len(events)
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read log: %w", err)
	}
	return res, nil
}

// ParseLine parses a single tailed log line into zero or more events.
// Blank lines yield nil without an error; malformed or invalid lines
// yield ok=false.
func ParseLine(line []byte) (events []event.EditEvent, ok bool) {
	line = trimLine(line)
	if len(line) == 0 {
		return nil, true
	}
	events, _, ok = parseLine(line, 0)
	return events, ok
}

// reviewMetricRecord is the aggregate-metric record written to the
// sibling log stream. Only the editTimeline evidence is consumed.
type reviewMetricRecord struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	FileURI   string `json:"fileUri"`
	Evidence  struct {
		EditTimeline []timelineEntry `json:"editTimeline"`
	} `json:"evidence"`
}

type timelineEntry struct {
	Timestamp           time.Time `json:"timestamp"`
	ChangeType          string    `json:"changeType"`
	ContentLength       int       `json:"contentLength"`
	TimeSinceLastChange int64     `json:"timeSinceLastChange"`
}

// parseLine parses one log line into zero or more events. The second
// return reports whether the events were synthesized from a review-
// metric record.
func parseLine(line []byte, lineNo int) ([]event.EditEvent, bool, bool) {
	// Fast path: review-metric records carry a type marker.
	if strings.Contains(string(line), "review-quality-metric") {
		var rec reviewMetricRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Type != "review-quality-metric" {
			return nil, false, false
		}
		return syntheticEvents(&rec, lineNo), true, true
	}

	var e event.EditEvent
	if err := json.Unmarshal(line, &e); err != nil {
		return nil, false, false
	}
	backfill(&e)
	if err := event.Validate(&e); err != nil {
		return nil, false, false
	}
	return []event.EditEvent{e}, false, true
}

// syntheticEvents reconstructs a minimal event timeline from a review-
// metric record. Synthetic events carry the "history" source and
// generated identifiers; they hold enough signal for time-based
// heuristics but no content.
func syntheticEvents(rec *reviewMetricRecord, lineNo int) []event.EditEvent {
	sessionID := rec.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("metric-line-%d", lineNo)
	}
	fileURI := rec.FileURI
	if fileURI == "" {
		fileURI = "unknown"
	}

	var out []event.EditEvent
	for i, entry := range rec.Evidence.EditTimeline {
		if entry.Timestamp.IsZero() {
			continue
		}
		changeType := event.ChangeType(entry.ChangeType)
		switch changeType {
		case event.Insert, event.Delete, event.Replace:
		default:
			changeType = event.Insert
		}
		out = append(out, event.EditEvent{
			EventID:             fmt.Sprintf("%s-%d", sessionID, i),
			SessionID:           sessionID,
			FileURI:             fileURI,
			Timestamp:           entry.Timestamp,
			TimeSinceLastChange: entry.TimeSinceLastChange,
			ChangeType:          changeType,
			ContentLength:       entry.ContentLength,
			Source:              event.SourceHistory,
		})
	}
	return out
}

// backfill fills content-derived flags the capture layer omitted, when
// raw content survived. An explicit flag from the capture layer always
// wins.
func backfill(e *event.EditEvent) {
	if e.Content == nil {
		return
	}
	text := *e.Content
	if e.LanguageConstruct == "" {
		e.LanguageConstruct = content.ClassifyConstruct(text)
	}
	if !e.IsComment && content.IsCommentText(text) {
		e.IsComment = true
	}
	if !e.IsCodeBlock && content.LooksLikeCode(text) {
		e.IsCodeBlock = true
	}
	if !e.IsWhitespace && strings.TrimSpace(text) == "" && text != "" {
		e.IsWhitespace = true
	}
}

// trimLine strips a UTF-8 BOM and surrounding whitespace.
func trimLine(line []byte) []byte {
	if len(line) >= 3 && line[0] == 0xEF && line[1] == 0xBB && line[2] == 0xBF {
		line = line[3:]
	}
	start := 0
	for start < len(line) && (line[start] == ' ' || line[start] == '\t' || line[start] == '\r') {
		start++
	}
	end := len(line)
	for end > start && (line[end-1] == ' ' || line[end-1] == '\t' || line[end-1] == '\r') {
		end--
	}
	return line[start:end]
}

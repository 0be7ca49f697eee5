package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/anthropic/edit-attribution/internal/bucket"
	"github.com/anthropic/edit-attribution/internal/event"
)

// WriteTimelineCSV writes the bucketed timeline as CSV: one row per
// bucket with window bounds, event count and AI probability. Empty
// buckets get a blank probability column.
func WriteTimelineCSV(w io.Writer, buckets []bucket.TimeBucket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start", "end", "events", "empty", "ai_probability"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range buckets {
		b := &buckets[i]
		prob := ""
		if b.AIProbability != nil {
			prob = strconv.FormatFloat(*b.AIProbability, 'f', 4, 64)
		}
		row := []string{
			b.Start.UTC().Format(time.RFC3339),
			b.End.UTC().Format(time.RFC3339),
			strconv.Itoa(b.EventCount),
			strconv.FormatBool(b.IsEmpty),
			prob,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteEventsCSV writes the raw event stream as CSV for external
// analysis. Content is omitted; only the length survives.
func WriteEventsCSV(w io.Writer, events []event.EditEvent) error {
	cw := csv.NewWriter(w)
	header := []string{
		"event_id", "session_id", "file_uri", "timestamp", "change_type",
		"content_length", "time_since_last_change_ms", "instant_speed_cpm",
		"burst", "source", "external_tool",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range events {
		e := &events[i]
		tool := ""
		if e.HasExternalSignature() {
			tool = e.ExternalTool.ToolType
		}
		row := []string{
			e.EventID,
			e.SessionID,
			e.FileURI,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(e.ChangeType),
			strconv.Itoa(e.ContentLength),
			strconv.FormatInt(e.TimeSinceLastChange, 10),
			strconv.FormatFloat(e.InstantTypingSpeed, 'f', 2, 64),
			strconv.FormatBool(e.BurstDetected),
			string(e.Source),
			tool,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

package event

import (
	"fmt"
	"time"
)

// BySession groups events by session identifier, preserving input order
// within each group.
func BySession(events []EditEvent) map[string][]EditEvent {
	out := make(map[string][]EditEvent)
	for _, e := range events {
		out[e.SessionID] = append(out[e.SessionID], e)
	}
	return out
}

// ByFile groups events by file URI, preserving input order within each group.
func ByFile(events []EditEvent) map[string][]EditEvent {
	out := make(map[string][]EditEvent)
	for _, e := range events {
		out[e.FileURI] = append(out[e.FileURI], e)
	}
	return out
}

// InRange returns the events whose timestamp falls in [from, to).
func InRange(events []EditEvent, from, to time.Time) []EditEvent {
	var out []EditEvent
	for _, e := range events {
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

// Sanitize returns a copy of events with raw text content stripped,
// leaving only ContentLength. This is the privacy boundary applied
// before any record is persisted or exported.
func Sanitize(events []EditEvent) []EditEvent {
	out := make([]EditEvent, len(events))
	for i, e := range events {
		e.Content = nil
		out[i] = e
	}
	return out
}

// placeholder is the redacted stand-in for stripped content.
func placeholder(n int) string {
	return fmt.Sprintf("[%d chars]", n)
}

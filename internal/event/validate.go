package event

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent wraps every event validation failure.
var ErrInvalidEvent = errors.New("invalid edit event")

var validChangeTypes = map[ChangeType]bool{
	Insert:  true,
	Delete:  true,
	Replace: true,
}

var validSources = map[Source]bool{
	SourceLive:     true,
	SourceHistory:  true,
	SourceExternal: true,
}

// Validate checks the structural contract for a single event: required
// identity fields present, enums within their value sets, numeric fields
// non-negative, and any external signature confidence in [0,1].
func Validate(e *EditEvent) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if e.EventID == "" {
		return fmt.Errorf("%w: missing eventId", ErrInvalidEvent)
	}
	if e.SessionID == "" {
		return fmt.Errorf("%w: missing sessionId", ErrInvalidEvent)
	}
	if e.FileURI == "" {
		return fmt.Errorf("%w: missing fileUri", ErrInvalidEvent)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	if !validChangeTypes[e.ChangeType] {
		return fmt.Errorf("%w: changeType %q", ErrInvalidEvent, e.ChangeType)
	}
	if !validSources[e.Source] {
		return fmt.Errorf("%w: source %q", ErrInvalidEvent, e.Source)
	}
	if e.ContentLength < 0 {
		return fmt.Errorf("%w: negative contentLength", ErrInvalidEvent)
	}
	if e.TimeSinceLastChange < 0 || e.TimeSinceSessionStart < 0 || e.TimeSinceFileOpen < 0 {
		return fmt.Errorf("%w: negative duration field", ErrInvalidEvent)
	}
	if e.InstantTypingSpeed < 0 || e.RollingTypingSpeed < 0 {
		return fmt.Errorf("%w: negative typing speed", ErrInvalidEvent)
	}
	if e.PauseBeforeChange < 0 {
		return fmt.Errorf("%w: negative pauseBeforeChange", ErrInvalidEvent)
	}
	if e.Position.Line < 0 || e.Position.Character < 0 {
		return fmt.Errorf("%w: negative position", ErrInvalidEvent)
	}
	if e.IndentationLevel < 0 {
		return fmt.Errorf("%w: negative indentationLevel", ErrInvalidEvent)
	}
	if sig := e.ExternalTool; sig != nil {
		if sig.Confidence < 0 || sig.Confidence > 1 {
			return fmt.Errorf("%w: signature confidence %f outside [0,1]", ErrInvalidEvent, sig.Confidence)
		}
	}
	return nil
}

// ValidateAll validates a slice of events, returning the index and error
// of the first failure.
func ValidateAll(events []EditEvent) (int, error) {
	for i := range events {
		if err := Validate(&events[i]); err != nil {
			return i, err
		}
	}
	return -1, nil
}

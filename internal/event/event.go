// Package event defines the edit-event record produced by the capture
// layer, plus structural validation and partitioning helpers. The
// detection engine trusts these records as given; validation happens
// here, before events reach the engine.
package event

import "time"

// ChangeType describes the kind of text mutation an event records.
type ChangeType string

const (
	Insert  ChangeType = "insert"
	Delete  ChangeType = "delete"
	Replace ChangeType = "replace"
)

// Source describes where an event was captured.
type Source string

const (
	SourceLive     Source = "live"
	SourceHistory  Source = "history"
	SourceExternal Source = "external"
)

// Position is a line/character location within a file.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// ExternalToolSignature is the capture layer's verdict on whether an
// external tool (AI assistant, formatter, code generator) produced the
// change. Nil on an event means no signature was computed.
type ExternalToolSignature struct {
	Detected   bool     `json:"detected"`
	ToolType   string   `json:"toolType"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators,omitempty"`
}

// EditEvent is one observed text mutation. All duration fields are in
// milliseconds and all typing speeds in characters per minute; they are
// populated by the capture layer and never recomputed from Timestamp.
type EditEvent struct {
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	FileURI   string `json:"fileUri"`

	Timestamp             time.Time `json:"timestamp"`
	TimeSinceLastChange   int64     `json:"timeSinceLastChange"`
	TimeSinceSessionStart int64     `json:"timeSinceSessionStart"`
	TimeSinceFileOpen     int64     `json:"timeSinceFileOpen"`

	ChangeType    ChangeType `json:"changeType"`
	Position      Position   `json:"position"`
	ContentLength int        `json:"contentLength"`

	// Content is privacy-sensitive and may be stripped before
	// persistence. Heuristics fall back to length-only signals when nil.
	Content *string `json:"content,omitempty"`

	InstantTypingSpeed float64 `json:"instantTypingSpeed"`
	RollingTypingSpeed float64 `json:"rollingTypingSpeed"`
	BurstDetected      bool    `json:"burstDetected"`
	PauseBeforeChange  int64   `json:"pauseBeforeChange"`
	IsCodeBlock        bool    `json:"isCodeBlock"`
	IsComment          bool    `json:"isComment"`
	IsWhitespace       bool    `json:"isWhitespace"`
	LanguageConstruct  string  `json:"languageConstruct"`
	IndentationLevel   int     `json:"indentationLevel"`

	Source        Source                 `json:"source"`
	VSCodeActive  bool                   `json:"vsCodeActive"`
	ExternalTool  *ExternalToolSignature `json:"externalToolSignature,omitempty"`
}

// HasExternalSignature reports whether the event carries a detected
// external-tool signature.
func (e *EditEvent) HasExternalSignature() bool {
	return e.ExternalTool != nil && e.ExternalTool.Detected
}

// ContentOrPlaceholder returns the event content truncated to max runes,
// or a "[N chars]" placeholder when the content was stripped.
func (e *EditEvent) ContentOrPlaceholder(max int) string {
	if e.Content == nil {
		return placeholder(e.ContentLength)
	}
	r := []rune(*e.Content)
	if len(r) > max {
		return string(r[:max])
	}
	return string(r)
}

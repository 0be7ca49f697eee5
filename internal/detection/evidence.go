package detection

import (
	"time"

	"github.com/anthropic/edit-attribution/internal/content"
	"github.com/anthropic/edit-attribution/internal/event"
)

// previewMaxLength bounds redacted content previews in evidence records.
const previewMaxLength = 80

// BulkChange is an evidence record for one oversized insertion.
type BulkChange struct {
	EventID    string    `json:"eventId"`
	Timestamp  time.Time `json:"timestamp"`
	FileURI    string    `json:"fileUri"`
	Size       int       `json:"size"`
	TimespanMs int64     `json:"timespanMs"`
	Preview    string    `json:"preview"`
}

// Burst is an evidence record for one burst-speed event.
type Burst struct {
	EventID    string    `json:"eventId"`
	Timestamp  time.Time `json:"timestamp"`
	Speed      float64   `json:"speed"`
	DurationMs int64     `json:"durationMs"`
	Preview    string    `json:"preview"`
}

// Evidence is the structured findings attached to every attribution,
// computed independently of the classification outcome.
type Evidence struct {
	BulkChanges        []BulkChange `json:"bulkChanges"`
	Bursts             []Burst      `json:"bursts"`
	ExternalIndicators []string     `json:"externalIndicators"`

	BulkChangePattern     bool `json:"bulkChangePattern"`
	TimingAnomalies       bool `json:"timingAnomalies"`
	ExternalToolSignature bool `json:"externalToolSignature"`

	ContentCharacteristics []string `json:"contentCharacteristics"`
	SuspiciousPatterns     []string `json:"suspiciousPatterns"`
}

// Suspicious pattern tags.
const (
	PatternRapidLargeInsertion = "rapid-large-insertion"
	PatternFormattedBulkCode   = "formatted-bulk-code"
)

func emptyEvidence() Evidence {
	return Evidence{}
}

// extractEvidence scans the event stream for the concrete findings that
// back an attribution: bulk changes, bursts, external indicators,
// content characteristics and suspicious-pattern tags. Content previews
// are truncated, and substituted with a "[N chars]" placeholder when
// the raw text was stripped for privacy.
func extractEvidence(events []event.EditEvent, th Thresholds) Evidence {
	var ev Evidence
	indicatorSeen := make(map[string]bool)
	chars := content.NewCharacteristics()
	rapidLarge, formattedBulk := false, false

	for i := range events {
		e := &events[i]

		if e.ChangeType == event.Insert && e.ContentLength > th.BulkInsertionSize {
			ev.BulkChangePattern = true
			ev.BulkChanges = append(ev.BulkChanges, BulkChange{
				EventID:    e.EventID,
				Timestamp:  e.Timestamp,
				FileURI:    e.FileURI,
				Size:       e.ContentLength,
				TimespanMs: e.TimeSinceLastChange,
				Preview:    e.ContentOrPlaceholder(previewMaxLength),
			})
			if e.IsCodeBlock {
				formattedBulk = true
			}
		}

		if e.BurstDetected || e.InstantTypingSpeed > th.FastTypingSpeed {
			ev.Bursts = append(ev.Bursts, Burst{
				EventID:    e.EventID,
				Timestamp:  e.Timestamp,
				Speed:      e.InstantTypingSpeed,
				DurationMs: e.TimeSinceLastChange,
				Preview:    e.ContentOrPlaceholder(previewMaxLength),
			})
		}

		if e.HasExternalSignature() {
			ev.ExternalToolSignature = true
			for _, ind := range e.ExternalTool.Indicators {
				if !indicatorSeen[ind] {
					indicatorSeen[ind] = true
					ev.ExternalIndicators = append(ev.ExternalIndicators, ind)
				}
			}
		}

		gap := e.TimeSinceLastChange
		if len(events) >= 2 && (gap > th.LongPauseThresholdMs || (gap > 0 && gap < th.RapidSequenceThresholdMs)) {
			ev.TimingAnomalies = true
		}

		if e.ContentLength > th.BulkInsertionSize && e.TimeSinceLastChange < th.PasteTimeThresholdMs {
			rapidLarge = true
		}

		chars.ObserveEvent(e.IsCodeBlock, e.IsComment, e.LanguageConstruct)
		if e.Content != nil {
			chars.ObserveText(*e.Content)
		}
	}

	ev.ContentCharacteristics = chars.Tags()
	if rapidLarge {
		ev.SuspiciousPatterns = append(ev.SuspiciousPatterns, PatternRapidLargeInsertion)
	}
	if formattedBulk {
		ev.SuspiciousPatterns = append(ev.SuspiciousPatterns, PatternFormattedBulkCode)
	}

	return ev
}

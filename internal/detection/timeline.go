package detection

import (
	"time"

	"github.com/anthropic/edit-attribution/internal/event"
)

// externalBulkSize is the content size above which an external change
// is projected as a bulk insert rather than a structured edit.
const externalBulkSize = 200

// Gap thresholds for consecutive-event pauses.
const (
	gapMinMs           = 10_000  // pauses shorter than this are ordinary typing cadence
	extendedBreakMinMs = 300_000 // pauses longer than this read as leaving the desk
)

// Gap activity labels.
const (
	ActivityThinkingPause = "thinking-pause"
	ActivityExtendedBreak = "extended-break"
)

// ExternalChange is the projection of one externally-attributed event
// onto the timeline.
type ExternalChange struct {
	Timestamp  time.Time `json:"timestamp"`
	FileURI    string    `json:"fileUri"`
	ChangeType string    `json:"changeType"` // "bulk-insert" or "structured-edit"
	Tool       string    `json:"tool"`
	Confidence float64   `json:"confidence"`
}

// Gap is a pause between consecutive events long enough to annotate.
type Gap struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	DurationMs     int64     `json:"durationMs"`
	LikelyActivity string    `json:"likelyActivity"`
}

// Timeline partitions the raw event list into editor-origin and
// external-origin changes, plus the annotated pauses between events.
type Timeline struct {
	VSCodeEvents    []event.EditEvent `json:"vsCodeEvents"`
	ExternalChanges []ExternalChange  `json:"externalChanges"`
	Gaps            []Gap             `json:"gaps"`
}

func emptyTimeline() Timeline {
	return Timeline{}
}

// extractTimeline builds the attribution timeline: events with a
// detected external signature become ExternalChange projections,
// everything else stays a VSCode-origin event, and pauses over 10s
// between consecutive events are labeled by likely activity.
func extractTimeline(events []event.EditEvent) Timeline {
	var tl Timeline

	for i := range events {
		e := &events[i]
		if e.HasExternalSignature() {
			changeType := "structured-edit"
			if e.ContentLength > externalBulkSize {
				changeType = "bulk-insert"
			}
			tl.ExternalChanges = append(tl.ExternalChanges, ExternalChange{
				Timestamp:  e.Timestamp,
				FileURI:    e.FileURI,
				ChangeType: changeType,
				Tool:       e.ExternalTool.ToolType,
				Confidence: e.ExternalTool.Confidence,
			})
		} else {
			tl.VSCodeEvents = append(tl.VSCodeEvents, *e)
		}
	}

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1].Timestamp, events[i].Timestamp
		gapMs := cur.Sub(prev).Milliseconds()
		if gapMs <= gapMinMs {
			continue
		}
		activity := ActivityThinkingPause
		if gapMs > extendedBreakMinMs {
			activity = ActivityExtendedBreak
		}
		tl.Gaps = append(tl.Gaps, Gap{
			Start:          prev,
			End:            cur,
			DurationMs:     gapMs,
			LikelyActivity: activity,
		})
	}

	return tl
}

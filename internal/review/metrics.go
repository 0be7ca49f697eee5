package review

import (
	"time"

	"github.com/anthropic/edit-attribution/internal/event"
)

// sessionGapMs is the idle gap after which a new edit session starts.
const sessionGapMs = 30 * 60 * 1000

// velocityBucketMs is the width of one edit-velocity bucket.
const velocityBucketMs = 5 * 60 * 1000

// CommitInfo carries optional commit timing for the time-to-commit
// metric. The zero value means no commit context is available.
type CommitInfo struct {
	CommitHash string    `json:"commitHash,omitempty"`
	CommitTime time.Time `json:"commitTime"`
	CoAuthor   string    `json:"coAuthor,omitempty"`
}

// EditSession is one contiguous run of edits separated from its
// neighbors by 30+ minute idle gaps.
type EditSession struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	EventCount int       `json:"eventCount"`
	DurationMs int64     `json:"durationMs"`
}

// VelocityPoint is the edit count within one 5-minute window.
type VelocityPoint struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// TimeMetrics are the temporal measurements behind the review score.
type TimeMetrics struct {
	TotalSpanMs     int64           `json:"totalSpanMs"`
	TimeToCommitMs  int64           `json:"timeToCommitMs"` // -1 when no commit context
	Sessions        []EditSession   `json:"sessions"`
	LongestPauseMs  int64           `json:"longestPauseMs"`
	Velocity        []VelocityPoint `json:"velocity"`
}

// computeTimeMetrics derives span, session segmentation, longest pause
// and the velocity series from an ordered event stream.
func computeTimeMetrics(events []event.EditEvent, commit *CommitInfo) TimeMetrics {
	tm := TimeMetrics{TimeToCommitMs: -1}
	if len(events) == 0 {
		return tm
	}

	first := events[0].Timestamp
	last := events[len(events)-1].Timestamp
	tm.TotalSpanMs = last.Sub(first).Milliseconds()

	if commit != nil && !commit.CommitTime.IsZero() {
		tm.TimeToCommitMs = commit.CommitTime.Sub(last).Milliseconds()
	}

	// Session segmentation: a 30+ minute idle gap starts a new session.
	cur := EditSession{Start: first, End: first, EventCount: 1}
	for i := 1; i < len(events); i++ {
		gap := events[i].Timestamp.Sub(events[i-1].Timestamp).Milliseconds()
		if gap > tm.LongestPauseMs {
			tm.LongestPauseMs = gap
		}
		if gap >= sessionGapMs {
			cur.DurationMs = cur.End.Sub(cur.Start).Milliseconds()
			tm.Sessions = append(tm.Sessions, cur)
			cur = EditSession{Start: events[i].Timestamp, End: events[i].Timestamp, EventCount: 1}
			continue
		}
		cur.End = events[i].Timestamp
		cur.EventCount++
	}
	cur.DurationMs = cur.End.Sub(cur.Start).Milliseconds()
	tm.Sessions = append(tm.Sessions, cur)

	// Velocity: edit counts in fixed 5-minute windows from the first event.
	bucketCount := int(tm.TotalSpanMs/velocityBucketMs) + 1
	counts := make([]int, bucketCount)
	for i := range events {
		idx := int(events[i].Timestamp.Sub(first).Milliseconds() / velocityBucketMs)
		if idx >= 0 && idx < bucketCount {
			counts[idx]++
		}
	}
	for i, c := range counts {
		tm.Velocity = append(tm.Velocity, VelocityPoint{
			Start: first.Add(time.Duration(i) * time.Duration(velocityBucketMs) * time.Millisecond),
			Count: c,
		})
	}

	return tm
}

// Package bucket partitions an edit-event stream into fixed-width,
// contiguous time windows and re-runs the attribution engine per window,
// producing a navigable timeline of AI probability over time.
package bucket

import (
	"time"

	"github.com/anthropic/edit-attribution/internal/detection"
	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/stats"
)

// TimeBucket is one window of the bucketed timeline. Buckets own fresh
// copies of nothing: Events slices the caller's ordering and the
// analysis fields stay nil until AnalyzeBuckets fills them on non-empty
// buckets.
type TimeBucket struct {
	Start      time.Time         `json:"startTime"`
	End        time.Time         `json:"endTime"`
	Events     []event.EditEvent `json:"events"`
	EventCount int               `json:"eventCount"`
	IsEmpty    bool              `json:"isEmpty"`

	AIProbability *float64                   `json:"aiProbability,omitempty"`
	Scores        *detection.HeuristicScores `json:"heuristicScores,omitempty"`
	Attribution   *detection.Attribution     `json:"attribution,omitempty"`
}

// CreateBuckets slices events into half-open [start, start+interval)
// windows beginning at the first event's timestamp. Every event falls
// into exactly one bucket, including one positioned exactly at the last
// window boundary: windows are generated while their start does not
// pass the last event's timestamp, so the final (possibly partial)
// window always covers it. Empty buckets are retained for gap
// visualization but marked IsEmpty per the configured minimum.
//
// Events are assumed ordered by timestamp; bucket boundaries are
// derived from the first and last entries.
func CreateBuckets(events []event.EditEvent, cfg detection.BucketConfig) []TimeBucket {
	if len(events) == 0 {
		return nil
	}

	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	first := events[0].Timestamp
	last := events[len(events)-1].Timestamp

	var buckets []TimeBucket
	for start := first; !start.After(last); start = start.Add(interval) {
		end := start.Add(interval)
		var inWindow []event.EditEvent
		for i := range events {
			ts := events[i].Timestamp
			if !ts.Before(start) && ts.Before(end) {
				inWindow = append(inWindow, events[i])
			}
		}
		buckets = append(buckets, TimeBucket{
			Start:      start,
			End:        end,
			Events:     inWindow,
			EventCount: len(inWindow),
			IsEmpty:    len(inWindow) < cfg.MinEventsPerBucket,
		})
	}
	return buckets
}

// AnalyzeBuckets annotates every non-empty bucket with a fresh
// attribution of exactly that bucket's events. All buckets share the
// engine config snapshot taken at entry; empty buckets are never passed
// to the engine. The input slice is annotated in place and returned.
func AnalyzeBuckets(buckets []TimeBucket, eng *detection.Engine) []TimeBucket {
	for i := range buckets {
		b := &buckets[i]
		if b.IsEmpty || b.EventCount == 0 {
			continue
		}
		attr := eng.Analyze(b.Events)
		b.Attribution = &attr
		prob := attr.AIProbability
		b.AIProbability = &prob
		scores := attr.Scores
		b.Scores = &scores
	}
	return buckets
}

// Analyze is the combined entry point: bucket the events, then analyze
// each non-empty bucket.
func Analyze(events []event.EditEvent, eng *detection.Engine) []TimeBucket {
	return AnalyzeBuckets(CreateBuckets(events, eng.Config().Bucket), eng)
}

// Summary holds aggregate statistics over a bucketed timeline.
type Summary struct {
	TotalBuckets     int       `json:"totalBuckets"`
	ActiveBuckets    int       `json:"activeBuckets"`
	EmptyBuckets     int       `json:"emptyBuckets"`
	MeanAIProbability float64  `json:"meanAiProbability"`
	MaxAIProbability  float64  `json:"maxAiProbability"`
	Span             time.Duration `json:"span"`
}

// Summarize computes bucket counts and the mean/max AI probability over
// active (analyzed) buckets only.
func Summarize(buckets []TimeBucket) Summary {
	var s Summary
	s.TotalBuckets = len(buckets)
	if len(buckets) == 0 {
		return s
	}
	s.Span = buckets[len(buckets)-1].End.Sub(buckets[0].Start)

	var probs []float64
	for i := range buckets {
		if buckets[i].AIProbability == nil {
			s.EmptyBuckets++
			continue
		}
		s.ActiveBuckets++
		probs = append(probs, *buckets[i].AIProbability)
	}
	s.MeanAIProbability = stats.Mean(probs)
	for _, p := range probs {
		if p > s.MaxAIProbability {
			s.MaxAIProbability = p
		}
	}
	return s
}

// Rollup combines per-bucket AI probabilities into one timeline-level
// score using the configured aggregation method: average weighs every
// active bucket equally, max reports the most suspicious window, and
// weighted averages probabilities by bucket event count. Empty buckets
// never contribute. Returns 0 when no bucket was analyzed.
func Rollup(buckets []TimeBucket, method detection.AggregationMethod) float64 {
	var probs, weights []float64
	for i := range buckets {
		if buckets[i].AIProbability == nil {
			continue
		}
		probs = append(probs, *buckets[i].AIProbability)
		weights = append(weights, float64(buckets[i].EventCount))
	}
	if len(probs) == 0 {
		return 0
	}

	switch method {
	case detection.AggregateMax:
		max := probs[0]
		for _, p := range probs[1:] {
			if p > max {
				max = p
			}
		}
		return max
	case detection.AggregateWeighted:
		var num, den float64
		for i, p := range probs {
			num += p * weights[i]
			den += weights[i]
		}
		if den == 0 {
			return 0
		}
		return stats.Clamp01(num / den)
	default: // average
		return stats.Clamp01(stats.Mean(probs))
	}
}

// Package report turns analysis results into human-facing output:
// terminal reports, indented JSON, Markdown summaries, and CSV timeline
// exports. It operates on in-memory results; commands that read the
// SQLite store load records first and format second.
package report

import (
	"github.com/anthropic/edit-attribution/internal/bucket"
	"github.com/anthropic/edit-attribution/internal/detection"
	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/review"
)

// SessionReport is the full analysis output for one edit stream:
// overall attribution, the bucketed timeline with its rollup, and the
// review-quality assessment.
type SessionReport struct {
	SessionID  string `json:"sessionId"`
	FileURI    string `json:"fileUri"`
	EventCount int    `json:"eventCount"`

	Attribution detection.Attribution `json:"attribution"`

	Buckets       []bucket.TimeBucket `json:"buckets"`
	BucketSummary bucket.Summary      `json:"bucketSummary"`
	Rollup        float64             `json:"rollup"`

	Review review.Assessment `json:"review"`
}

// Generate runs the full pipeline over an ordered event stream. Events
// are assumed validated; commit may be nil when no repository context
// is available.
func Generate(sessionID, fileURI string, events []event.EditEvent, eng *detection.Engine, commit *review.CommitInfo) *SessionReport {
	cfg := eng.Config()
	buckets := bucket.Analyze(events, eng)

	return &SessionReport{
		SessionID:     sessionID,
		FileURI:       fileURI,
		EventCount:    len(events),
		Attribution:   eng.Analyze(events),
		Buckets:       buckets,
		BucketSummary: bucket.Summarize(buckets),
		Rollup:        bucket.Rollup(buckets, cfg.Bucket.AggregationMethod),
		Review:        review.AssessQuality(events, commit),
	}
}

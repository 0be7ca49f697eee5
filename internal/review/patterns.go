package review

import (
	"github.com/anthropic/edit-attribution/internal/content"
	"github.com/anthropic/edit-attribution/internal/event"
)

// Edit-pattern thresholds, in characters and milliseconds.
const (
	smallEditMaxChars  = 50
	bulkReplaceMinChars = 100
	refinementGapMs    = 10_000
	refinementMinGapMs = 5_000
)

// EditPatterns are the per-category edit tallies behind the review score.
type EditPatterns struct {
	SmallIncremental  int `json:"smallIncremental"`
	BulkReplacements  int `json:"bulkReplacements"`
	RefinementEdits   int `json:"refinementEdits"`
	CommentAdditions  int `json:"commentAdditions"`
	VariableRenames   int `json:"variableRenames"`
	StructuralChanges int `json:"structuralChanges"`

	// incrementalRuns counts edits preceded by a 5s+ gap that are
	// smaller than the edit before them; feeds the incremental-
	// refinement indicator.
	incrementalRuns int
}

// tallyPatterns classifies each event into the edit-pattern categories.
// Categories requiring raw content (renames, testing evidence) degrade
// to zero when content was stripped.
func tallyPatterns(events []event.EditEvent) EditPatterns {
	var p EditPatterns

	for i := range events {
		e := &events[i]

		if e.ChangeType != event.Delete && e.ContentLength < smallEditMaxChars {
			p.SmallIncremental++
		}

		if e.ChangeType == event.Replace && e.ContentLength > bulkReplaceMinChars {
			p.BulkReplacements++
		}

		if e.TimeSinceLastChange > refinementGapMs && e.ContentLength < smallEditMaxChars {
			p.RefinementEdits++
		}

		if e.IsComment || (e.Content != nil && content.IsCommentText(*e.Content)) {
			p.CommentAdditions++
		}

		if e.ChangeType == event.Replace && e.ContentLength < smallEditMaxChars &&
			e.Content != nil && content.IsIdentifier(*e.Content) {
			p.VariableRenames++
		}

		if e.ChangeType == event.Replace &&
			e.LanguageConstruct != "" && e.LanguageConstruct != content.ConstructUnknown {
			p.StructuralChanges++
		}

		if i > 0 && e.TimeSinceLastChange >= refinementMinGapMs &&
			e.ContentLength < events[i-1].ContentLength {
			p.incrementalRuns++
		}
	}

	return p
}

// hasTestingEvidence reports whether any event's surviving content
// mentions tests, specs or assertions. Requires raw content; stripped
// streams yield false.
func hasTestingEvidence(events []event.EditEvent) bool {
	for i := range events {
		if events[i].Content != nil && content.MentionsTesting(*events[i].Content) {
			return true
		}
	}
	return false
}

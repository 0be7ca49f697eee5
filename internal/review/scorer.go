// Package review scores human-review depth over an edit-event stream:
// a heuristic pipeline structurally parallel to the attribution engine
// that estimates how much deliberate review followed an edit burst
// rather than whether AI produced it.
package review

import (
	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/stats"
)

// QualityLevel buckets the 0-10 review score.
type QualityLevel string

const (
	ImmediateCommit QualityLevel = "immediate-commit"
	LightReview     QualityLevel = "light-review"
	ThoroughReview  QualityLevel = "thorough-review"
	ExtensiveReview QualityLevel = "extensive-review"
)

// Indicators are the boolean review signals derived from the metrics
// and pattern tallies.
type Indicators struct {
	MultiSession          bool `json:"multiSession"`
	ReflectivePauses      bool `json:"reflectivePauses"`
	IncrementalRefinement bool `json:"incrementalRefinement"`
	CommentaryAdded       bool `json:"commentaryAdded"`
	CodeRestructuring     bool `json:"codeRestructuring"`
	TestingEvidence       bool `json:"testingEvidence"`
}

// ScoreBreakdown is the four-part additive decomposition of the overall
// score.
type ScoreBreakdown struct {
	TimeInvestment float64 `json:"timeInvestment"` // 0-3
	Iteration      float64 `json:"iteration"`      // 0-3
	Refinement     float64 `json:"refinement"`     // 0-2
	Thoughtfulness float64 `json:"thoughtfulness"` // 0-2
}

// Assessment is the output of one review-quality analysis.
type Assessment struct {
	OverallScore float64        `json:"overallScore"` // 0-10
	QualityLevel QualityLevel   `json:"qualityLevel"`
	Confidence   float64        `json:"confidence"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
	Indicators   Indicators     `json:"indicators"`
	TimeMetrics  TimeMetrics    `json:"timeMetrics"`
	Patterns     EditPatterns   `json:"editPatterns"`
}

// Scoring thresholds, in milliseconds.
const (
	reflectivePauseMs    = 60_000
	spanModerateMs       = 30 * 60 * 1000      // 30 minutes
	spanLongMs           = 2 * 60 * 60 * 1000  // 2 hours
	preCommitReviewMs    = 10 * 60 * 1000      // 10 minutes between last edit and commit
	iterationManySmall   = 10
	incrementalMinEdits  = 3 // ">2 edits" showing the shrinking-with-pauses shape
)

// AssessQuality scores human-review depth for an ordered event stream,
// optionally informed by commit timing. Pure function of its inputs.
// Empty input yields the canonical zero-score immediate-commit result
// with confidence 1.0: no activity means no review, with full certainty.
func AssessQuality(events []event.EditEvent, commit *CommitInfo) Assessment {
	if len(events) == 0 {
		return Assessment{
			OverallScore: 0,
			QualityLevel: ImmediateCommit,
			Confidence:   1.0,
			TimeMetrics:  TimeMetrics{TimeToCommitMs: -1},
		}
	}

	tm := computeTimeMetrics(events, commit)
	patterns := tallyPatterns(events)

	ind := Indicators{
		MultiSession:          len(tm.Sessions) > 1,
		ReflectivePauses:      tm.LongestPauseMs > reflectivePauseMs,
		IncrementalRefinement: patterns.incrementalRuns > incrementalMinEdits-1,
		CommentaryAdded:       patterns.CommentAdditions > 0,
		CodeRestructuring:     patterns.StructuralChanges > 0,
		TestingEvidence:       hasTestingEvidence(events),
	}

	breakdown := ScoreBreakdown{
		TimeInvestment: scoreTimeInvestment(tm),
		Iteration:      scoreIteration(tm, patterns),
		Refinement:     scoreRefinement(patterns, ind),
		Thoughtfulness: scoreThoughtfulness(ind),
	}
	overall := breakdown.TimeInvestment + breakdown.Iteration +
		breakdown.Refinement + breakdown.Thoughtfulness

	return Assessment{
		OverallScore: overall,
		QualityLevel: classifyQuality(overall),
		Confidence:   assessConfidence(len(events), overall),
		Breakdown:    breakdown,
		Indicators:   ind,
		TimeMetrics:  tm,
		Patterns:     patterns,
	}
}

// scoreTimeInvestment awards up to 3 points: one for a span over 30
// minutes, another for over 2 hours, and one for 10+ minutes between
// the last edit and the commit.
func scoreTimeInvestment(tm TimeMetrics) float64 {
	score := 0.0
	if tm.TotalSpanMs > spanModerateMs {
		score++
	}
	if tm.TotalSpanMs > spanLongMs {
		score++
	}
	if tm.TimeToCommitMs >= preCommitReviewMs {
		score++
	}
	return score
}

// scoreIteration awards up to 3 points for returning to the work:
// second and third edit sessions and a sustained run of small
// incremental edits.
func scoreIteration(tm TimeMetrics, p EditPatterns) float64 {
	score := 0.0
	if len(tm.Sessions) >= 2 {
		score++
	}
	if len(tm.Sessions) >= 3 {
		score++
	}
	if p.SmallIncremental >= iterationManySmall {
		score++
	}
	return score
}

// scoreRefinement awards up to 2 points in half-point steps, one step
// per refinement indicator.
func scoreRefinement(p EditPatterns, ind Indicators) float64 {
	score := 0.0
	if p.RefinementEdits > 0 {
		score += 0.5
	}
	if ind.IncrementalRefinement {
		score += 0.5
	}
	if p.VariableRenames > 0 {
		score += 0.5
	}
	if ind.CodeRestructuring {
		score += 0.5
	}
	return score
}

// scoreThoughtfulness awards up to 2 points: a full point for
// reflective pauses and half points for commentary and testing
// evidence.
func scoreThoughtfulness(ind Indicators) float64 {
	score := 0.0
	if ind.ReflectivePauses {
		score++
	}
	if ind.CommentaryAdded {
		score += 0.5
	}
	if ind.TestingEvidence {
		score += 0.5
	}
	return score
}

// classifyQuality buckets the overall score into the four levels.
func classifyQuality(score float64) QualityLevel {
	switch {
	case score <= 2:
		return ImmediateCommit
	case score <= 5:
		return LightReview
	case score <= 8:
		return ThoroughReview
	default:
		return ExtensiveReview
	}
}

// assessConfidence starts at 0.7, adds 0.1 for more than 10 events,
// another 0.1 for more than 50, and 0.1 when the score sits at either
// extreme, capped at 1.0.
func assessConfidence(eventCount int, score float64) float64 {
	conf := 0.7
	if eventCount > 10 {
		conf += 0.1
	}
	if eventCount > 50 {
		conf += 0.1
	}
	if score <= 2 || score >= 8 {
		conf += 0.1
	}
	return stats.Clamp01(conf)
}

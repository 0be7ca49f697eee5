// Package detection implements the attribution engine: a deterministic,
// configurable pipeline of six heuristic scorers whose weighted
// combination classifies an ordered edit-event stream as human,
// ai-assisted, ai-generated or mixed, with a full decision trace.
package detection

import (
	"fmt"
	"sync"

	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/stats"
)

// SourceClass is the attribution verdict for an event stream.
type SourceClass string

const (
	SourceHuman       SourceClass = "human"
	SourceAIAssisted  SourceClass = "ai-assisted"
	SourceAIGenerated SourceClass = "ai-generated"
	SourceMixed       SourceClass = "mixed"
)

// Attribution is the output of one analysis call.
type Attribution struct {
	Source        SourceClass     `json:"source"`
	Confidence    float64         `json:"confidence"`
	AIProbability float64         `json:"aiProbability"`
	TotalScore    float64         `json:"totalScore"`
	Scores        HeuristicScores `json:"heuristicScores"`
	Evidence      Evidence        `json:"evidence"`
	Timeline      Timeline        `json:"timeline"`
	Trace         []TraceStep     `json:"trace"`
}

// Engine runs the attribution pipeline. It holds the current config
// behind a mutex; every Analyze call operates on a value snapshot taken
// at entry, so a concurrent UpdateConfig can never produce a result
// computed against a mixed config.
type Engine struct {
	mu  sync.RWMutex
	cfg Config
}

// New creates an engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// NewDefault creates an engine with the built-in default configuration.
func NewDefault() *Engine {
	return New(DefaultConfig())
}

// Config returns the current configuration snapshot.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateConfig applies a partial update and returns the new snapshot.
// In-flight analyses keep the snapshot they started with.
func (e *Engine) UpdateConfig(p Patch) Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = p.Apply(e.cfg)
	return e.cfg
}

// Analyze classifies an ordered event stream. It is a pure function of
// (events, config snapshot): no clock reads, no randomness, and the
// same input always yields a byte-identical result including trace
// reasoning strings. Empty input returns the canonical human/0/0
// attribution, a defined base case rather than an error.
func (e *Engine) Analyze(events []event.EditEvent) Attribution {
	cfg := e.Config()
	return analyze(events, cfg)
}

// analyze runs the pipeline against a fixed config snapshot. The bucket
// layer calls this directly with the snapshot it captured once for the
// whole timeline.
func analyze(events []event.EditEvent, cfg Config) Attribution {
	if len(events) == 0 {
		return Attribution{
			Source:   SourceHuman,
			Evidence: emptyEvidence(),
			Timeline: emptyTimeline(),
			Trace: []TraceStep{{
				Step:      StepDecision,
				Decision:  &DecisionStep{Source: SourceHuman, Thresholds: cfg.Classification},
				Reasoning: "no events to analyze, defaulting to human with zero confidence",
			}},
		}
	}

	trace := make([]TraceStep, 0, 8)
	var scores HeuristicScores

	type scorer struct {
		step StepName
		fn   func([]event.EditEvent, Thresholds) (float64, *HeuristicStep, string)
		dst  *float64
	}
	scorers := []scorer{
		{StepBulkInsertion, scoreBulkInsertion, &scores.BulkInsertion},
		{StepTypingSpeed, scoreTypingSpeed, &scores.TypingSpeed},
		{StepPastePattern, scorePastePattern, &scores.PastePattern},
		{StepExternalTool, scoreExternalTool, &scores.ExternalTool},
		{StepContentPattern, scoreContentPattern, &scores.ContentPattern},
		{StepTimingAnomaly, scoreTimingAnomaly, &scores.TimingAnomaly},
	}
	for _, s := range scorers {
		score, hs, reasoning := s.fn(events, cfg.Thresholds)
		*s.dst = score
		trace = append(trace, TraceStep{Step: s.step, Heuristic: hs, Reasoning: reasoning})
	}

	weighted := HeuristicScores{
		BulkInsertion:  scores.BulkInsertion * cfg.Weights.BulkInsertion,
		TypingSpeed:    scores.TypingSpeed * cfg.Weights.TypingSpeed,
		PastePattern:   scores.PastePattern * cfg.Weights.PastePattern,
		ExternalTool:   scores.ExternalTool * cfg.Weights.ExternalTool,
		ContentPattern: scores.ContentPattern * cfg.Weights.ContentPattern,
		TimingAnomaly:  scores.TimingAnomaly * cfg.Weights.TimingAnomaly,
	}
	// Total is deliberately NOT clamped here: classification thresholds
	// see the raw weighted sum even if weights drift above 1.0. Only the
	// final probability and confidence are clamped.
	total := weighted.BulkInsertion + weighted.TypingSpeed + weighted.PastePattern +
		weighted.ExternalTool + weighted.ContentPattern + weighted.TimingAnomaly

	trace = append(trace, TraceStep{
		Step: StepCombination,
		Combined: &CombinationStep{
			Raw:      scores,
			Weights:  cfg.Weights,
			Weighted: weighted,
			Total:    total,
		},
		Reasoning: fmt.Sprintf("weighted total %.3f (bulk %.3f, speed %.3f, paste %.3f, external %.3f, content %.3f, timing %.3f)",
			total, weighted.BulkInsertion, weighted.TypingSpeed, weighted.PastePattern,
			weighted.ExternalTool, weighted.ContentPattern, weighted.TimingAnomaly),
	})

	source, confidence, aiProbability := classify(total, cfg.Classification)

	hasHuman, hasAI := mixedIndicators(events, cfg.Thresholds)
	mixed := false
	if hasHuman && hasAI && source != SourceHuman {
		// Clear evidence of both slow deliberate typing and abrupt
		// AI-shaped insertions is itself evidence of collaboration,
		// whatever the aggregate score says.
		source = SourceMixed
		if confidence > 0.8 {
			confidence = 0.8
		}
		mixed = true
	}

	confidence = stats.Clamp01(confidence)
	aiProbability = stats.Clamp01(aiProbability)

	decision := &DecisionStep{
		Total:              total,
		Thresholds:         cfg.Classification,
		Source:             source,
		Confidence:         confidence,
		AIProbability:      aiProbability,
		HasHumanIndicators: hasHuman,
		HasAIIndicators:    hasAI,
		MixedOverride:      mixed,
	}
	reasoning := fmt.Sprintf("total %.3f against cut points %.2f/%.2f/%.2f -> %s (confidence %.3f, probability %.3f)",
		total, cfg.Classification.HumanThreshold, cfg.Classification.AIAssistedThreshold,
		cfg.Classification.AIGeneratedThreshold, source, confidence, aiProbability)
	if mixed {
		reasoning += "; mixed-signal override applied"
	}
	trace = append(trace, TraceStep{Step: StepDecision, Decision: decision, Reasoning: reasoning})

	return Attribution{
		Source:        source,
		Confidence:    confidence,
		AIProbability: aiProbability,
		TotalScore:    total,
		Scores:        scores,
		Evidence:      extractEvidence(events, cfg.Thresholds),
		Timeline:      extractTimeline(events),
		Trace:         trace,
	}
}

// classify applies the ordered classification ladder; first match wins.
func classify(total float64, cl Classification) (SourceClass, float64, float64) {
	switch {
	case total < cl.HumanThreshold:
		return SourceHuman, 1 - total, total
	case total < cl.AIAssistedThreshold:
		return SourceAIAssisted, 0.8, total
	case total < cl.AIGeneratedThreshold:
		return SourceAIGenerated, total, total
	default:
		return SourceAIGenerated, total, total + 0.1
	}
}

// mixedHumanMaxLength is the content size below which a slow edit reads
// as deliberate hand typing.
const mixedHumanMaxLength = 50

// mixedIndicators scans the raw events for simultaneous evidence of
// hand typing and of AI-shaped insertions, independent of the weighted
// score.
func mixedIndicators(events []event.EditEvent, th Thresholds) (hasHuman, hasAI bool) {
	for i := range events {
		e := &events[i]
		if e.InstantTypingSpeed > 0 && e.InstantTypingSpeed < th.FastTypingSpeed &&
			e.ContentLength < mixedHumanMaxLength {
			hasHuman = true
		}
		if e.HasExternalSignature() ||
			(e.ContentLength > th.BulkInsertionSize && e.TimeSinceLastChange < th.PasteTimeThresholdMs) {
			hasAI = true
		}
		if hasHuman && hasAI {
			return
		}
	}
	return
}

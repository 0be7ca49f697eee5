package detection

import (
	"fmt"

	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/stats"
)

// HeuristicScores holds the six raw heuristic scores, each in [0,1].
// They are surfaced first-class on the Attribution so downstream layers
// never have to recompute them from the trace.
type HeuristicScores struct {
	BulkInsertion  float64 `json:"bulkInsertion"`
	TypingSpeed    float64 `json:"typingSpeed"`
	PastePattern   float64 `json:"pastePattern"`
	ExternalTool   float64 `json:"externalTool"`
	ContentPattern float64 `json:"contentPattern"`
	TimingAnomaly  float64 `json:"timingAnomaly"`
}

// scoreBulkInsertion returns the fraction of insert events whose
// content length exceeds the bulk insertion threshold. AI tools inject
// large contiguous blocks; humans rarely type >100 chars atomically.
func scoreBulkInsertion(events []event.EditEvent, th Thresholds) (float64, *HeuristicStep, string) {
	inserts, bulk := 0, 0
	for i := range events {
		if events[i].ChangeType != event.Insert {
			continue
		}
		inserts++
		if events[i].ContentLength > th.BulkInsertionSize {
			bulk++
		}
	}

	score := 0.0
	if inserts > 0 {
		score = float64(bulk) / float64(inserts)
	}

	step := &HeuristicStep{EventsTotal: inserts, EventsMatched: bulk, Score: score}
	reasoning := fmt.Sprintf("%d of %d insert events exceed %d chars (score %.3f)",
		bulk, inserts, th.BulkInsertionSize, score)
	return score, step, reasoning
}

// scoreTypingSpeed combines mean speed relative to 1.5x the fast-typing
// threshold with the frequency of suspiciously fast events. A single
// device-triggered spike is weaker evidence than sustained superhuman
// speed, so the two components are averaged.
func scoreTypingSpeed(events []event.EditEvent, th Thresholds) (float64, *HeuristicStep, string) {
	var speeds []float64
	for i := range events {
		if events[i].InstantTypingSpeed > 0 {
			speeds = append(speeds, events[i].InstantTypingSpeed)
		}
	}

	if len(speeds) == 0 {
		step := &HeuristicStep{EventsTotal: 0, EventsMatched: 0, Score: 0}
		return 0, step, "no typing speed data (score 0.000)"
	}

	mean := stats.Mean(speeds)
	speedScore := stats.Clamp01(mean / (th.FastTypingSpeed * 1.5))
	fast := 0
	for _, s := range speeds {
		if s > th.FastTypingSpeed {
			fast++
		}
	}
	frequencyScore := float64(fast) / float64(len(speeds))
	score := (speedScore + frequencyScore) / 2

	step := &HeuristicStep{
		EventsTotal:    len(speeds),
		EventsMatched:  fast,
		Score:          score,
		MeanSpeed:      mean,
		SpeedScore:     speedScore,
		FrequencyScore: frequencyScore,
	}
	reasoning := fmt.Sprintf("mean speed %.1f cpm over %d events, %d above %.0f cpm (speed %.3f, frequency %.3f, score %.3f)",
		mean, len(speeds), fast, th.FastTypingSpeed, speedScore, frequencyScore, score)
	return score, step, reasoning
}

// pasteMinContentLength is the minimum insert size for the near-zero
// latency paste signature.
const pasteMinContentLength = 50

// scorePastePattern returns the fraction of events matching the paste
// signature: a sizeable insert landing almost immediately after the
// previous change.
func scorePastePattern(events []event.EditEvent, th Thresholds) (float64, *HeuristicStep, string) {
	matched := 0
	for i := range events {
		e := &events[i]
		if e.ChangeType == event.Insert &&
			e.TimeSinceLastChange < th.PasteTimeThresholdMs &&
			e.ContentLength > pasteMinContentLength {
			matched++
		}
	}

	score := 0.0
	if len(events) > 0 {
		score = float64(matched) / float64(len(events))
	}

	step := &HeuristicStep{EventsTotal: len(events), EventsMatched: matched, Score: score}
	reasoning := fmt.Sprintf("%d of %d events match paste signature (insert >%d chars within %dms, score %.3f)",
		matched, len(events), pasteMinContentLength, th.PasteTimeThresholdMs, score)
	return score, step, reasoning
}

// scoreExternalTool multiplies the detection rate by the mean signature
// confidence. Multiplicative on purpose: a rare but highly confident
// signature should not dominate unless it recurs.
func scoreExternalTool(events []event.EditEvent, _ Thresholds) (float64, *HeuristicStep, string) {
	detected := 0
	confSum := 0.0
	for i := range events {
		if events[i].HasExternalSignature() {
			detected++
			confSum += events[i].ExternalTool.Confidence
		}
	}

	if detected == 0 {
		step := &HeuristicStep{EventsTotal: len(events), EventsMatched: 0, Score: 0}
		return 0, step, "no external tool signatures detected (score 0.000)"
	}

	meanConf := confSum / float64(detected)
	score := stats.Clamp01(float64(detected) / float64(len(events)) * meanConf)

	step := &HeuristicStep{
		EventsTotal:             len(events),
		EventsMatched:           detected,
		Score:                   score,
		MeanSignatureConfidence: meanConf,
	}
	reasoning := fmt.Sprintf("%d of %d events carry external signatures, mean confidence %.3f (score %.3f)",
		detected, len(events), meanConf, score)
	return score, step, reasoning
}

// scoreContentPattern blends the fractions of code-block, structured-
// construct and comment events into one content suspicion score.
func scoreContentPattern(events []event.EditEvent, _ Thresholds) (float64, *HeuristicStep, string) {
	if len(events) == 0 {
		step := &HeuristicStep{Score: 0}
		return 0, step, "no events (score 0.000)"
	}

	codeBlocks, constructs, comments := 0, 0, 0
	for i := range events {
		e := &events[i]
		if e.IsCodeBlock {
			codeBlocks++
		}
		if e.LanguageConstruct != "" && e.LanguageConstruct != "unknown" {
			constructs++
		}
		if e.IsComment {
			comments++
		}
	}

	n := float64(len(events))
	codeBlockRatio := float64(codeBlocks) / n
	constructRatio := float64(constructs) / n
	commentRatio := float64(comments) / n
	score := 0.4*codeBlockRatio + 0.4*constructRatio + 0.2*commentRatio

	step := &HeuristicStep{
		EventsTotal:    len(events),
		EventsMatched:  codeBlocks + constructs + comments,
		Score:          score,
		CodeBlockRatio: codeBlockRatio,
		ConstructRatio: constructRatio,
		CommentRatio:   commentRatio,
	}
	reasoning := fmt.Sprintf("code blocks %.3f, constructs %.3f, comments %.3f of %d events (score %.3f)",
		codeBlockRatio, constructRatio, commentRatio, len(events), score)
	return score, step, reasoning
}

// scoreTimingAnomaly returns the fraction of events deviating from a
// steady human cadence in either direction: long pauses or rapid
// sequences both count, since both are uncharacteristic of continuous
// hand typing.
func scoreTimingAnomaly(events []event.EditEvent, th Thresholds) (float64, *HeuristicStep, string) {
	if len(events) < 2 {
		step := &HeuristicStep{EventsTotal: len(events), Score: 0}
		return 0, step, "fewer than 2 events, timing analysis skipped (score 0.000)"
	}

	longPauses, rapid := 0, 0
	for i := range events {
		gap := events[i].TimeSinceLastChange
		switch {
		case gap > th.LongPauseThresholdMs:
			longPauses++
		case gap > 0 && gap < th.RapidSequenceThresholdMs:
			rapid++
		}
	}

	matched := longPauses + rapid
	score := float64(matched) / float64(len(events))

	step := &HeuristicStep{
		EventsTotal:    len(events),
		EventsMatched:  matched,
		Score:          score,
		LongPauses:     longPauses,
		RapidSequences: rapid,
	}
	reasoning := fmt.Sprintf("%d long pauses (>%dms) and %d rapid sequences (<%dms) in %d events (score %.3f)",
		longPauses, th.LongPauseThresholdMs, rapid, th.RapidSequenceThresholdMs, len(events), score)
	return score, step, reasoning
}

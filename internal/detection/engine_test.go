package detection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/anthropic/edit-attribution/internal/event"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func makeEvent(id string, at time.Time) event.EditEvent {
	return event.EditEvent{
		EventID:    id,
		SessionID:  "s1",
		FileURI:    "file:///main.go",
		Timestamp:  at,
		ChangeType: event.Insert,
		Source:     event.SourceLive,
	}
}

func strPtr(s string) *string { return &s }

// checkUnit fails the test if any surfaced score falls outside [0,1].
func checkUnit(t *testing.T, attr Attribution) {
	t.Helper()
	unit := map[string]float64{
		"confidence":     attr.Confidence,
		"aiProbability":  attr.AIProbability,
		"bulkInsertion":  attr.Scores.BulkInsertion,
		"typingSpeed":    attr.Scores.TypingSpeed,
		"pastePattern":   attr.Scores.PastePattern,
		"externalTool":   attr.Scores.ExternalTool,
		"contentPattern": attr.Scores.ContentPattern,
		"timingAnomaly":  attr.Scores.TimingAnomaly,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			t.Errorf("%s = %f outside [0,1]", name, v)
		}
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	attr := NewDefault().Analyze(nil)

	if attr.Source != SourceHuman {
		t.Errorf("Source = %q, want %q", attr.Source, SourceHuman)
	}
	if attr.Confidence != 0 || attr.AIProbability != 0 {
		t.Errorf("confidence/probability = %f/%f, want 0/0", attr.Confidence, attr.AIProbability)
	}
	if len(attr.Evidence.BulkChanges) != 0 || len(attr.Evidence.Bursts) != 0 ||
		len(attr.Evidence.SuspiciousPatterns) != 0 {
		t.Errorf("evidence not empty: %+v", attr.Evidence)
	}
	if len(attr.Timeline.VSCodeEvents) != 0 || len(attr.Timeline.ExternalChanges) != 0 ||
		len(attr.Timeline.Gaps) != 0 {
		t.Errorf("timeline not empty: %+v", attr.Timeline)
	}
}

func TestAnalyze_SingleRapidBulkInsert(t *testing.T) {
	e := makeEvent("e1", baseTime)
	e.ContentLength = 500
	e.TimeSinceLastChange = 10

	attr := NewDefault().Analyze([]event.EditEvent{e})
	checkUnit(t, attr)

	if attr.Scores.BulkInsertion <= 0 {
		t.Errorf("bulk insertion score = %f, want >0", attr.Scores.BulkInsertion)
	}
	if attr.Scores.PastePattern <= 0 {
		t.Errorf("paste pattern score = %f, want >0", attr.Scores.PastePattern)
	}
	if !attr.Evidence.BulkChangePattern {
		t.Error("bulkChangePattern = false, want true")
	}
	found := false
	for _, p := range attr.Evidence.SuspiciousPatterns {
		if p == PatternRapidLargeInsertion {
			found = true
		}
	}
	if !found {
		t.Errorf("suspicious patterns %v missing %q", attr.Evidence.SuspiciousPatterns, PatternRapidLargeInsertion)
	}
}

func TestAnalyze_SteadyHumanTyping(t *testing.T) {
	var events []event.EditEvent
	at := baseTime
	gaps := []int64{50, 80, 110, 140, 170, 200, 60, 90, 120, 150,
		180, 70, 100, 130, 160, 190, 55, 85, 115, 145}
	for i, gap := range gaps {
		e := makeEvent(eventID(i), at)
		e.ContentLength = 1
		e.InstantTypingSpeed = 120
		e.TimeSinceLastChange = gap
		events = append(events, e)
		at = at.Add(time.Duration(gap) * time.Millisecond)
	}

	attr := NewDefault().Analyze(events)
	checkUnit(t, attr)

	if attr.Source != SourceHuman {
		t.Errorf("Source = %q, want human", attr.Source)
	}
	if attr.AIProbability >= 0.3 {
		t.Errorf("aiProbability = %f, want < 0.3", attr.AIProbability)
	}
}

func eventID(i int) string {
	return "e" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestAnalyze_Deterministic(t *testing.T) {
	e1 := makeEvent("e1", baseTime)
	e1.ContentLength = 500
	e1.Content = strPtr("func generated() {}")
	e1.IsCodeBlock = true
	e2 := makeEvent("e2", baseTime.Add(20*time.Second))
	e2.InstantTypingSpeed = 420
	e2.BurstDetected = true
	e2.ExternalTool = &event.ExternalToolSignature{
		Detected: true, ToolType: "ai-assistant", Confidence: 0.9,
		Indicators: []string{"clipboard-burst"},
	}
	events := []event.EditEvent{e1, e2}

	eng := NewDefault()
	a := eng.Analyze(events)
	b := eng.Analyze(events)

	aj, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(aj) != string(bj) {
		t.Error("two analyses of identical input differ")
	}

	// Trace shape: six heuristics, combination, decision.
	if len(a.Trace) != 8 {
		t.Fatalf("trace has %d steps, want 8", len(a.Trace))
	}
	if a.Trace[6].Step != StepCombination || a.Trace[6].Combined == nil {
		t.Error("seventh step is not a combination step")
	}
	if a.Trace[7].Step != StepDecision || a.Trace[7].Decision == nil {
		t.Error("eighth step is not a decision step")
	}
	for _, ts := range a.Trace[:6] {
		if ts.Heuristic == nil {
			t.Errorf("step %s missing heuristic payload", ts.Step)
		}
		if ts.Reasoning == "" {
			t.Errorf("step %s missing reasoning", ts.Step)
		}
	}
}

func TestAnalyze_WeightDriftStillClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{
		BulkInsertion:  0.4,
		TypingSpeed:    0.3,
		PastePattern:   0.2,
		ExternalTool:   0.2,
		ContentPattern: 0.1,
		TimingAnomaly:  0.1,
	} // sums to 1.3

	// Events that push every heuristic high.
	var events []event.EditEvent
	for i := 0; i < 4; i++ {
		e := makeEvent(eventID(i), baseTime.Add(time.Duration(i)*time.Second))
		e.ContentLength = 400
		e.TimeSinceLastChange = 10
		e.InstantTypingSpeed = 900
		e.IsCodeBlock = true
		e.LanguageConstruct = "function"
		e.ExternalTool = &event.ExternalToolSignature{Detected: true, Confidence: 1}
		events = append(events, e)
	}

	attr := New(cfg).Analyze(events)
	checkUnit(t, attr)

	if attr.TotalScore <= 1 {
		t.Errorf("TotalScore = %f, expected raw total above 1 with drifted weights", attr.TotalScore)
	}
}

func TestAnalyze_WeightMonotonicity(t *testing.T) {
	e := makeEvent("e1", baseTime)
	e.ContentLength = 500 // exercises bulk insertion
	events := []event.EditEvent{e}

	low := DefaultConfig()
	high := DefaultConfig()
	high.Weights.BulkInsertion = low.Weights.BulkInsertion + 0.3

	a := New(low).Analyze(events)
	b := New(high).Analyze(events)
	if b.TotalScore < a.TotalScore {
		t.Errorf("raising bulk weight lowered total: %f -> %f", a.TotalScore, b.TotalScore)
	}
}

func TestClassify_Ladder(t *testing.T) {
	cl := DefaultConfig().Classification

	cases := []struct {
		total      float64
		wantSource SourceClass
		wantConf   float64
		wantProb   float64
	}{
		{0.1, SourceHuman, 0.9, 0.1},
		{0.45, SourceAIAssisted, 0.8, 0.45},
		{0.7, SourceAIGenerated, 0.7, 0.7},
		{0.85, SourceAIGenerated, 0.85, 0.95},
	}
	for _, c := range cases {
		source, conf, prob := classify(c.total, cl)
		if source != c.wantSource {
			t.Errorf("classify(%f) source = %q, want %q", c.total, source, c.wantSource)
		}
		if !almostEqual(conf, c.wantConf) {
			t.Errorf("classify(%f) confidence = %f, want %f", c.total, conf, c.wantConf)
		}
		if !almostEqual(prob, c.wantProb) {
			t.Errorf("classify(%f) probability = %f, want %f", c.total, prob, c.wantProb)
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestAnalyze_MixedOverride(t *testing.T) {
	// Slow deliberate typing...
	human := makeEvent("e1", baseTime)
	human.ContentLength = 3
	human.InstantTypingSpeed = 90
	human.TimeSinceLastChange = 900

	// ...alongside abrupt AI-shaped insertions.
	var events []event.EditEvent
	events = append(events, human)
	for i := 0; i < 6; i++ {
		e := makeEvent(eventID(i+1), baseTime.Add(time.Duration(i+1)*time.Second))
		e.ContentLength = 400
		e.TimeSinceLastChange = 5
		e.IsCodeBlock = true
		e.LanguageConstruct = "function"
		e.ExternalTool = &event.ExternalToolSignature{Detected: true, Confidence: 0.95}
		events = append(events, e)
	}

	attr := NewDefault().Analyze(events)
	checkUnit(t, attr)

	if attr.Source != SourceMixed {
		t.Fatalf("Source = %q, want mixed (total %f)", attr.Source, attr.TotalScore)
	}
	if attr.Confidence > 0.8 {
		t.Errorf("mixed confidence = %f, want <= 0.8", attr.Confidence)
	}
	decision := attr.Trace[len(attr.Trace)-1].Decision
	if decision == nil || !decision.MixedOverride {
		t.Error("decision step does not record mixed override")
	}
}

func TestAnalyze_MixedOverrideSkipsHuman(t *testing.T) {
	// Both indicator kinds present but aggregate score below the human
	// cut point: the override must not fire.
	human := makeEvent("e1", baseTime)
	human.ContentLength = 3
	human.InstantTypingSpeed = 90

	ai := makeEvent("e2", baseTime.Add(time.Second))
	ai.ChangeType = event.Delete // keeps bulk/paste scores at zero
	ai.ContentLength = 200
	ai.TimeSinceLastChange = 5

	var filler []event.EditEvent
	for i := 0; i < 30; i++ {
		e := makeEvent(eventID(i+2), baseTime.Add(time.Duration(i+2)*time.Second))
		e.ContentLength = 2
		e.InstantTypingSpeed = 100
		e.TimeSinceLastChange = 400
		filler = append(filler, e)
	}

	events := append([]event.EditEvent{human, ai}, filler...)
	attr := NewDefault().Analyze(events)

	if attr.Source != SourceHuman {
		t.Errorf("Source = %q, want human (total %f)", attr.Source, attr.TotalScore)
	}
}

func TestUpdateConfig_PartialAndSnapshot(t *testing.T) {
	eng := NewDefault()
	orig := eng.Config()

	newWeights := Weights{BulkInsertion: 1}
	got := eng.UpdateConfig(Patch{Weights: &newWeights})

	if got.Weights.BulkInsertion != 1 || got.Weights.TypingSpeed != 0 {
		t.Errorf("weights not replaced whole: %+v", got.Weights)
	}
	if got.Thresholds != orig.Thresholds {
		t.Errorf("thresholds changed by weights-only patch")
	}
	// The earlier snapshot is unaffected.
	if orig.Weights.BulkInsertion != 0.25 {
		t.Errorf("original snapshot mutated: %+v", orig.Weights)
	}
}

func TestExtractTimeline_GapsAndPartition(t *testing.T) {
	e1 := makeEvent("e1", baseTime)
	e2 := makeEvent("e2", baseTime.Add(30*time.Second)) // 30s gap: thinking pause
	e3 := makeEvent("e3", baseTime.Add(30*time.Second+10*time.Minute)) // 10m gap: extended break
	e3.ContentLength = 500
	e3.ExternalTool = &event.ExternalToolSignature{Detected: true, ToolType: "codegen", Confidence: 0.8}

	tl := extractTimeline([]event.EditEvent{e1, e2, e3})

	if len(tl.VSCodeEvents) != 2 {
		t.Errorf("vscode events = %d, want 2", len(tl.VSCodeEvents))
	}
	if len(tl.ExternalChanges) != 1 {
		t.Fatalf("external changes = %d, want 1", len(tl.ExternalChanges))
	}
	if tl.ExternalChanges[0].ChangeType != "bulk-insert" {
		t.Errorf("external change type = %q, want bulk-insert", tl.ExternalChanges[0].ChangeType)
	}
	if len(tl.Gaps) != 2 {
		t.Fatalf("gaps = %d, want 2", len(tl.Gaps))
	}
	if tl.Gaps[0].LikelyActivity != ActivityThinkingPause {
		t.Errorf("gap[0] = %q, want thinking-pause", tl.Gaps[0].LikelyActivity)
	}
	if tl.Gaps[1].LikelyActivity != ActivityExtendedBreak {
		t.Errorf("gap[1] = %q, want extended-break", tl.Gaps[1].LikelyActivity)
	}
}

func TestExtractEvidence_RedactedPreview(t *testing.T) {
	e := makeEvent("e1", baseTime)
	e.ContentLength = 240 // stripped content
	ev := extractEvidence([]event.EditEvent{e}, DefaultConfig().Thresholds)

	if len(ev.BulkChanges) != 1 {
		t.Fatalf("bulk changes = %d, want 1", len(ev.BulkChanges))
	}
	if ev.BulkChanges[0].Preview != "[240 chars]" {
		t.Errorf("preview = %q, want placeholder", ev.BulkChanges[0].Preview)
	}
}

func TestValidateConfig(t *testing.T) {
	good := DefaultConfig()
	if err := ValidateConfig(good); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := DefaultConfig()
	bad.Weights.TypingSpeed = -0.1
	if err := ValidateConfig(bad); err == nil {
		t.Error("negative weight accepted")
	}

	bad = DefaultConfig()
	bad.Classification.AIAssistedThreshold = 0.2 // below human threshold
	if err := ValidateConfig(bad); err == nil {
		t.Error("non-increasing cut points accepted")
	}

	bad = DefaultConfig()
	bad.Thresholds.PasteTimeThresholdMs = -1
	if err := ValidateConfig(bad); err == nil {
		t.Error("negative threshold accepted")
	}

	bad = DefaultConfig()
	bad.Bucket.AggregationMethod = "median"
	if err := ValidateConfig(bad); err == nil {
		t.Error("unknown aggregation method accepted")
	}
}

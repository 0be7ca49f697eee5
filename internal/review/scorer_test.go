package review

import (
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

func ids(i int) string {
	return "e" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestAssessQuality_EmptyInput(t *testing.T) {
	a := AssessQuality(nil, nil)
	if a.OverallScore != 0 {
		t.Errorf("score = %f, want 0", a.OverallScore)
	}
	if a.QualityLevel != ImmediateCommit {
		t.Errorf("level = %q, want immediate-commit", a.QualityLevel)
	}
	if a.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0", a.Confidence)
	}
}

func TestAssessQuality_RapidBurst(t *testing.T) {
	// A tight 2-minute burst committed immediately: no review signals.
	var events []event.EditEvent
	for i := 0; i < 5; i++ {
		e := makeEvent(ids(i), baseTime.Add(time.Duration(i)*20*time.Second))
		e.ContentLength = 200
		e.TimeSinceLastChange = 20_000
		events = append(events, e)
	}
	commit := &CommitInfo{CommitTime: events[len(events)-1].Timestamp.Add(30 * time.Second)}

	a := AssessQuality(events, commit)
	if a.QualityLevel != ImmediateCommit {
		t.Errorf("level = %q (score %f), want immediate-commit", a.QualityLevel, a.OverallScore)
	}
	// Extreme score plus small event count: 0.7 + 0.1.
	if !almostEqual(a.Confidence, 0.8) {
		t.Errorf("confidence = %f, want 0.8", a.Confidence)
	}
}

func TestAssessQuality_ThoroughSession(t *testing.T) {
	var events []event.EditEvent
	at := baseTime

	// Session 1: steady small edits over ~50 minutes with a reflective pause.
	for i := 0; i < 12; i++ {
		e := makeEvent(ids(i), at)
		e.ContentLength = 20
		e.TimeSinceLastChange = 15_000
		e.Content = strPtr("x := refine()")
		events = append(events, e)
		at = at.Add(4 * time.Minute)
	}

	// 40-minute break, then a second session with restructuring and a comment.
	at = at.Add(40 * time.Minute)
	for i := 12; i < 18; i++ {
		e := makeEvent(ids(i), at)
		e.ChangeType = event.Replace
		e.ContentLength = 30
		e.TimeSinceLastChange = 12_000
		e.LanguageConstruct = "function"
		events = append(events, e)
		at = at.Add(3 * time.Minute)
	}
	last := makeEvent(ids(18), at)
	last.IsComment = true
	last.ContentLength = 25
	last.Content = strPtr("// verify boundary test case")
	events = append(events, last)

	commit := &CommitInfo{CommitTime: at.Add(15 * time.Minute)}
	a := AssessQuality(events, commit)

	if len(a.TimeMetrics.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(a.TimeMetrics.Sessions))
	}
	if !a.Indicators.MultiSession {
		t.Error("multiSession = false")
	}
	if !a.Indicators.ReflectivePauses {
		t.Error("reflectivePauses = false (40m break present)")
	}
	if !a.Indicators.CodeRestructuring {
		t.Error("codeRestructuring = false (replace+construct edits present)")
	}
	if !a.Indicators.CommentaryAdded {
		t.Error("commentaryAdded = false")
	}
	if !a.Indicators.TestingEvidence {
		t.Error("testingEvidence = false (content mentions test)")
	}
	if a.QualityLevel != ThoroughReview && a.QualityLevel != ExtensiveReview {
		t.Errorf("level = %q (score %f), want thorough or extensive", a.QualityLevel, a.OverallScore)
	}
	if a.Confidence < 0.7 || a.Confidence > 1 {
		t.Errorf("confidence = %f outside [0.7,1]", a.Confidence)
	}
}

func TestAssessQuality_TestingEvidenceNeedsContent(t *testing.T) {
	e := makeEvent("e1", baseTime)
	e.ContentLength = 300 // content stripped
	a := AssessQuality([]event.EditEvent{e}, nil)
	if a.Indicators.TestingEvidence {
		t.Error("testingEvidence = true on stripped content")
	}
}

func TestComputeTimeMetrics(t *testing.T) {
	events := []event.EditEvent{
		makeEvent("e1", baseTime),
		makeEvent("e2", baseTime.Add(2*time.Minute)),
		makeEvent("e3", baseTime.Add(50*time.Minute)), // 48m gap: new session
	}
	commit := &CommitInfo{CommitTime: baseTime.Add(70 * time.Minute)}

	tm := computeTimeMetrics(events, commit)
	if tm.TotalSpanMs != 50*60*1000 {
		t.Errorf("span = %d, want 50 minutes", tm.TotalSpanMs)
	}
	if tm.TimeToCommitMs != 20*60*1000 {
		t.Errorf("timeToCommit = %d, want 20 minutes", tm.TimeToCommitMs)
	}
	if len(tm.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(tm.Sessions))
	}
	if tm.Sessions[0].EventCount != 2 || tm.Sessions[1].EventCount != 1 {
		t.Errorf("session counts = %d/%d, want 2/1",
			tm.Sessions[0].EventCount, tm.Sessions[1].EventCount)
	}
	if tm.LongestPauseMs != 48*60*1000 {
		t.Errorf("longest pause = %d, want 48 minutes", tm.LongestPauseMs)
	}
	// 50 minutes of span in 5-minute buckets: 11 points.
	if len(tm.Velocity) != 11 {
		t.Errorf("velocity points = %d, want 11", len(tm.Velocity))
	}
	if tm.Velocity[0].Count != 2 || tm.Velocity[10].Count != 1 {
		t.Errorf("velocity edges = %d/%d, want 2/1",
			tm.Velocity[0].Count, tm.Velocity[10].Count)
	}
}

func TestComputeTimeMetrics_NoCommit(t *testing.T) {
	tm := computeTimeMetrics([]event.EditEvent{makeEvent("e1", baseTime)}, nil)
	if tm.TimeToCommitMs != -1 {
		t.Errorf("timeToCommit = %d, want -1 sentinel", tm.TimeToCommitMs)
	}
}

func TestTallyPatterns(t *testing.T) {
	small := makeEvent("e1", baseTime)
	small.ContentLength = 10

	bulkReplace := makeEvent("e2", baseTime.Add(time.Second))
	bulkReplace.ChangeType = event.Replace
	bulkReplace.ContentLength = 400

	refinement := makeEvent("e3", baseTime.Add(20*time.Second))
	refinement.ContentLength = 15
	refinement.TimeSinceLastChange = 19_000

	rename := makeEvent("e4", baseTime.Add(30*time.Second))
	rename.ChangeType = event.Replace
	rename.ContentLength = 8
	rename.Content = strPtr("newName")
	rename.TimeSinceLastChange = 10_000

	structural := makeEvent("e5", baseTime.Add(40*time.Second))
	structural.ChangeType = event.Replace
	structural.ContentLength = 80
	structural.LanguageConstruct = "class"
	structural.TimeSinceLastChange = 10_000

	comment := makeEvent("e6", baseTime.Add(50*time.Second))
	comment.IsComment = true
	comment.ContentLength = 30
	comment.TimeSinceLastChange = 10_000

	p := tallyPatterns([]event.EditEvent{small, bulkReplace, refinement, rename, structural, comment})

	if p.SmallIncremental != 4 { // small, refinement, rename, comment
		t.Errorf("smallIncremental = %d, want 4", p.SmallIncremental)
	}
	if p.BulkReplacements != 1 {
		t.Errorf("bulkReplacements = %d, want 1", p.BulkReplacements)
	}
	if p.RefinementEdits != 1 { // only e3 pauses longer than 10s before a small edit
		t.Errorf("refinementEdits = %d, want 1", p.RefinementEdits)
	}
	if p.VariableRenames != 1 {
		t.Errorf("variableRenames = %d, want 1", p.VariableRenames)
	}
	if p.StructuralChanges != 1 { // only e5 is a replace on a known construct
		t.Errorf("structuralChanges = %d, want 1", p.StructuralChanges)
	}
	if p.CommentAdditions != 1 {
		t.Errorf("commentAdditions = %d, want 1", p.CommentAdditions)
	}
}

func TestClassifyQuality(t *testing.T) {
	cases := []struct {
		score float64
		want  QualityLevel
	}{
		{0, ImmediateCommit},
		{2, ImmediateCommit},
		{3.5, LightReview},
		{5, LightReview},
		{6, ThoroughReview},
		{8, ThoroughReview},
		{9, ExtensiveReview},
	}
	for _, c := range cases {
		if got := classifyQuality(c.score); got != c.want {
			t.Errorf("classifyQuality(%f) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestAssessConfidence(t *testing.T) {
	cases := []struct {
		events int
		score  float64
		want   float64
	}{
		{5, 4, 0.7},
		{11, 4, 0.8},
		{51, 4, 0.9},
		{51, 1, 1.0},
		{5, 9, 0.8},
	}
	for _, c := range cases {
		if got := assessConfidence(c.events, c.score); !almostEqual(got, c.want) {
			t.Errorf("assessConfidence(%d, %f) = %f, want %f", c.events, c.score, got, c.want)
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

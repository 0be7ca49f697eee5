package bucket

import (
	"testing"
	"time"

	"github.com/anthropic/edit-attribution/internal/detection"
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

func bucketConfig(intervalMin, minEvents int) detection.BucketConfig {
	return detection.BucketConfig{
		IntervalMinutes:    intervalMin,
		AggregationMethod:  detection.AggregateAverage,
		MinEventsPerBucket: minEvents,
	}
}

func TestCreateBuckets_Empty(t *testing.T) {
	if got := CreateBuckets(nil, bucketConfig(30, 1)); got != nil {
		t.Errorf("CreateBuckets(nil) = %v, want nil", got)
	}
}

func TestCreateBuckets_Coverage(t *testing.T) {
	// Events spanning 75 minutes with a 30-minute interval: 3 buckets,
	// every event covered exactly once.
	offsets := []time.Duration{
		0, 5 * time.Minute, 29 * time.Minute,
		31 * time.Minute, 59 * time.Minute,
		61 * time.Minute, 75 * time.Minute,
	}
	var events []event.EditEvent
	for i, off := range offsets {
		events = append(events, makeEvent(ids(i), baseTime.Add(off)))
	}

	buckets := CreateBuckets(events, bucketConfig(30, 1))
	if len(buckets) != 3 {
		t.Fatalf("buckets = %d, want 3", len(buckets))
	}

	seen := make(map[string]int)
	for _, b := range buckets {
		for _, e := range b.Events {
			seen[e.EventID]++
		}
	}
	for _, e := range events {
		if seen[e.EventID] != 1 {
			t.Errorf("event %s counted %d times, want exactly 1", e.EventID, seen[e.EventID])
		}
	}

	counts := []int{3, 2, 2}
	for i, want := range counts {
		if buckets[i].EventCount != want {
			t.Errorf("bucket %d count = %d, want %d", i, buckets[i].EventCount, want)
		}
	}
}

func TestCreateBuckets_LastEventOnBoundary(t *testing.T) {
	// Last event exactly at a window boundary must still land in a
	// bucket (the regression this layer is most at risk of).
	events := []event.EditEvent{
		makeEvent("e0", baseTime),
		makeEvent("e1", baseTime.Add(30*time.Minute)),
	}
	buckets := CreateBuckets(events, bucketConfig(30, 1))
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
	if buckets[1].EventCount != 1 || buckets[1].Events[0].EventID != "e1" {
		t.Errorf("boundary event not captured: %+v", buckets[1])
	}
}

func TestCreateBuckets_SingleEvent(t *testing.T) {
	buckets := CreateBuckets([]event.EditEvent{makeEvent("e0", baseTime)}, bucketConfig(30, 1))
	if len(buckets) != 1 || buckets[0].EventCount != 1 {
		t.Fatalf("single-event buckets = %+v", buckets)
	}
	if buckets[0].End.Sub(buckets[0].Start) != 30*time.Minute {
		t.Errorf("bucket width = %v, want 30m", buckets[0].End.Sub(buckets[0].Start))
	}
}

func TestCreateBuckets_MinEventsMarksEmpty(t *testing.T) {
	// Middle window has one event, below the minimum of 2.
	events := []event.EditEvent{
		makeEvent("e0", baseTime),
		makeEvent("e1", baseTime.Add(time.Minute)),
		makeEvent("e2", baseTime.Add(35*time.Minute)),
		makeEvent("e3", baseTime.Add(65*time.Minute)),
		makeEvent("e4", baseTime.Add(66*time.Minute)),
	}
	buckets := CreateBuckets(events, bucketConfig(30, 2))
	if len(buckets) != 3 {
		t.Fatalf("buckets = %d, want 3", len(buckets))
	}
	if buckets[0].IsEmpty || buckets[2].IsEmpty {
		t.Error("well-populated buckets marked empty")
	}
	if !buckets[1].IsEmpty {
		t.Error("below-minimum bucket not marked empty")
	}
}

func TestAnalyzeBuckets_SkipsEmpty(t *testing.T) {
	events := []event.EditEvent{
		makeEvent("e0", baseTime),
		makeEvent("e1", baseTime.Add(time.Minute)),
		makeEvent("e2", baseTime.Add(65*time.Minute)),
		makeEvent("e3", baseTime.Add(66*time.Minute)),
	}
	eng := detection.New(detection.DefaultConfig())
	cfg := bucketConfig(30, 2)

	buckets := AnalyzeBuckets(CreateBuckets(events, cfg), eng)
	if len(buckets) != 3 {
		t.Fatalf("buckets = %d, want 3", len(buckets))
	}

	if buckets[0].Attribution == nil || buckets[0].AIProbability == nil || buckets[0].Scores == nil {
		t.Error("active bucket not annotated")
	}
	if buckets[1].Attribution != nil || buckets[1].AIProbability != nil {
		t.Error("empty bucket was analyzed")
	}
	if buckets[2].Attribution == nil {
		t.Error("final bucket not annotated")
	}
}

func TestSummarize(t *testing.T) {
	events := []event.EditEvent{
		makeEvent("e0", baseTime),
		makeEvent("e1", baseTime.Add(65*time.Minute)),
	}
	eng := detection.New(detection.DefaultConfig())
	buckets := AnalyzeBuckets(CreateBuckets(events, bucketConfig(30, 1)), eng)

	s := Summarize(buckets)
	if s.TotalBuckets != 3 {
		t.Errorf("total = %d, want 3", s.TotalBuckets)
	}
	if s.ActiveBuckets != 2 || s.EmptyBuckets != 1 {
		t.Errorf("active/empty = %d/%d, want 2/1", s.ActiveBuckets, s.EmptyBuckets)
	}
	if s.Span != 90*time.Minute {
		t.Errorf("span = %v, want 90m", s.Span)
	}
	if s.MeanAIProbability < 0 || s.MeanAIProbability > 1 {
		t.Errorf("mean probability = %f outside [0,1]", s.MeanAIProbability)
	}

	if got := Summarize(nil); got.TotalBuckets != 0 {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}

func TestRollup(t *testing.T) {
	p := func(v float64) *float64 { return &v }
	buckets := []TimeBucket{
		{AIProbability: p(0.2), EventCount: 1},
		{AIProbability: nil, EventCount: 0}, // empty, must not contribute
		{AIProbability: p(0.8), EventCount: 3},
	}

	if got := Rollup(buckets, detection.AggregateAverage); !almostEqual(got, 0.5) {
		t.Errorf("average rollup = %f, want 0.5", got)
	}
	if got := Rollup(buckets, detection.AggregateMax); !almostEqual(got, 0.8) {
		t.Errorf("max rollup = %f, want 0.8", got)
	}
	// weighted: (0.2*1 + 0.8*3) / 4 = 0.65
	if got := Rollup(buckets, detection.AggregateWeighted); !almostEqual(got, 0.65) {
		t.Errorf("weighted rollup = %f, want 0.65", got)
	}
	if got := Rollup(nil, detection.AggregateAverage); got != 0 {
		t.Errorf("empty rollup = %f, want 0", got)
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func ids(i int) string {
	return "e" + string(rune('0'+i))
}

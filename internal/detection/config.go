package detection

import (
	"errors"
	"fmt"
)

// Weights holds the six heuristic weights. They are nominally expected
// to sum to 1.0 but the engine tolerates drift; normalization is a
// config-editing concern, not an engine invariant.
type Weights struct {
	BulkInsertion  float64 `json:"bulkInsertion"`
	TypingSpeed    float64 `json:"typingSpeed"`
	PastePattern   float64 `json:"pastePattern"`
	ExternalTool   float64 `json:"externalTool"`
	ContentPattern float64 `json:"contentPattern"`
	TimingAnomaly  float64 `json:"timingAnomaly"`
}

// Sum returns the total of all six weights.
func (w Weights) Sum() float64 {
	return w.BulkInsertion + w.TypingSpeed + w.PastePattern +
		w.ExternalTool + w.ContentPattern + w.TimingAnomaly
}

// Thresholds holds the raw-signal cut points the heuristics compare
// against. Sizes are in characters, durations in milliseconds, speeds
// in characters per minute.
type Thresholds struct {
	BulkInsertionSize      int     `json:"bulkInsertionSize"`
	FastTypingSpeed        float64 `json:"fastTypingSpeed"`
	PasteTimeThresholdMs   int64   `json:"pasteTimeThreshold"`
	LongPauseThresholdMs   int64   `json:"longPauseThreshold"`
	RapidSequenceThresholdMs int64 `json:"rapidSequenceThreshold"`
}

// Classification holds the three increasing cut points on the weighted
// total score.
type Classification struct {
	HumanThreshold       float64 `json:"humanThreshold"`
	AIAssistedThreshold  float64 `json:"aiAssistedThreshold"`
	AIGeneratedThreshold float64 `json:"aiGeneratedThreshold"`
}

// AggregationMethod selects how per-bucket scores roll up into a single
// timeline score.
type AggregationMethod string

const (
	AggregateAverage  AggregationMethod = "average"
	AggregateMax      AggregationMethod = "max"
	AggregateWeighted AggregationMethod = "weighted"
)

// BucketConfig controls the time-bucketing layer.
type BucketConfig struct {
	IntervalMinutes    int               `json:"intervalMinutes"`
	AggregationMethod  AggregationMethod `json:"aggregationMethod"`
	MinEventsPerBucket int               `json:"minEventsPerBucket"`
}

// Config is the full detection configuration. It is a plain value type:
// copying it yields an independent snapshot, which is how the engine
// isolates an in-flight analysis from concurrent updates.
type Config struct {
	Weights        Weights        `json:"weights"`
	Thresholds     Thresholds     `json:"thresholds"`
	Classification Classification `json:"classification"`
	Bucket         BucketConfig   `json:"bucketConfig"`
}

// DefaultConfig returns the built-in detection configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			BulkInsertion:  0.25,
			TypingSpeed:    0.20,
			PastePattern:   0.20,
			ExternalTool:   0.15,
			ContentPattern: 0.10,
			TimingAnomaly:  0.10,
		},
		Thresholds: Thresholds{
			BulkInsertionSize:        100,
			FastTypingSpeed:          300,
			PasteTimeThresholdMs:     100,
			LongPauseThresholdMs:     10000,
			RapidSequenceThresholdMs: 50,
		},
		Classification: Classification{
			HumanThreshold:       0.3,
			AIAssistedThreshold:  0.6,
			AIGeneratedThreshold: 0.8,
		},
		Bucket: BucketConfig{
			IntervalMinutes:    30,
			AggregationMethod:  AggregateAverage,
			MinEventsPerBucket: 1,
		},
	}
}

// Patch is a partial configuration update. Nil sections keep the
// current values; non-nil sections replace them whole.
type Patch struct {
	Weights        *Weights        `json:"weights,omitempty"`
	Thresholds     *Thresholds     `json:"thresholds,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	Bucket         *BucketConfig   `json:"bucketConfig,omitempty"`
}

// Apply returns a copy of c with the patch's non-nil sections replaced.
func (p Patch) Apply(c Config) Config {
	if p.Weights != nil {
		c.Weights = *p.Weights
	}
	if p.Thresholds != nil {
		c.Thresholds = *p.Thresholds
	}
	if p.Classification != nil {
		c.Classification = *p.Classification
	}
	if p.Bucket != nil {
		c.Bucket = *p.Bucket
	}
	return c
}

// ErrInvalidConfig wraps every config validation failure.
var ErrInvalidConfig = errors.New("invalid detection config")

var validAggregations = map[AggregationMethod]bool{
	AggregateAverage:  true,
	AggregateMax:      true,
	AggregateWeighted: true,
}

// ValidateConfig checks the structural config contract: weights in
// [0,1], thresholds non-negative, classification cut points in [0,1]
// and strictly increasing. Validation is a caller-side guard; the
// engine itself accepts whatever config it is given.
func ValidateConfig(c Config) error {
	weights := []struct {
		name  string
		value float64
	}{
		{"bulkInsertion", c.Weights.BulkInsertion},
		{"typingSpeed", c.Weights.TypingSpeed},
		{"pastePattern", c.Weights.PastePattern},
		{"externalTool", c.Weights.ExternalTool},
		{"contentPattern", c.Weights.ContentPattern},
		{"timingAnomaly", c.Weights.TimingAnomaly},
	}
	for _, w := range weights {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("%w: weight %s = %f outside [0,1]", ErrInvalidConfig, w.name, w.value)
		}
	}

	if c.Thresholds.BulkInsertionSize < 0 ||
		c.Thresholds.FastTypingSpeed < 0 ||
		c.Thresholds.PasteTimeThresholdMs < 0 ||
		c.Thresholds.LongPauseThresholdMs < 0 ||
		c.Thresholds.RapidSequenceThresholdMs < 0 {
		return fmt.Errorf("%w: negative threshold", ErrInvalidConfig)
	}

	cl := c.Classification
	cuts := []struct {
		name  string
		value float64
	}{
		{"humanThreshold", cl.HumanThreshold},
		{"aiAssistedThreshold", cl.AIAssistedThreshold},
		{"aiGeneratedThreshold", cl.AIGeneratedThreshold},
	}
	for _, cut := range cuts {
		if cut.value < 0 || cut.value > 1 {
			return fmt.Errorf("%w: %s = %f outside [0,1]", ErrInvalidConfig, cut.name, cut.value)
		}
	}
	if !(cl.HumanThreshold < cl.AIAssistedThreshold && cl.AIAssistedThreshold < cl.AIGeneratedThreshold) {
		return fmt.Errorf("%w: classification cut points must be strictly increasing", ErrInvalidConfig)
	}

	if c.Bucket.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: intervalMinutes must be positive", ErrInvalidConfig)
	}
	if !validAggregations[c.Bucket.AggregationMethod] {
		return fmt.Errorf("%w: aggregationMethod %q", ErrInvalidConfig, c.Bucket.AggregationMethod)
	}
	if c.Bucket.MinEventsPerBucket < 0 {
		return fmt.Errorf("%w: negative minEventsPerBucket", ErrInvalidConfig)
	}

	return nil
}

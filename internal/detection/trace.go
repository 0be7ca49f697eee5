package detection

// StepName identifies one stage of the decision trace. Consumers switch
// on the step name to know which payload field on TraceStep is set.
type StepName string

const (
	StepBulkInsertion  StepName = "bulk-insertion"
	StepTypingSpeed    StepName = "typing-speed"
	StepPastePattern   StepName = "paste-pattern"
	StepExternalTool   StepName = "external-tool"
	StepContentPattern StepName = "content-pattern"
	StepTimingAnomaly  StepName = "timing-anomaly"
	StepCombination    StepName = "combination"
	StepDecision       StepName = "decision"
)

// TraceStep is one entry in the audit trail of an analysis: one per
// heuristic, one for the weighted combination and one for the final
// decision. Exactly one of the payload fields is non-nil, keyed by Step.
type TraceStep struct {
	Step      StepName        `json:"step"`
	Heuristic *HeuristicStep  `json:"heuristic,omitempty"`
	Combined  *CombinationStep `json:"combination,omitempty"`
	Decision  *DecisionStep   `json:"decision,omitempty"`
	Reasoning string          `json:"reasoning"`
}

// HeuristicStep records the raw inputs and output of one heuristic
// scorer. Which of the optional fields carry meaning depends on the
// step name: typing-speed fills the speed fields, external-tool fills
// MeanSignatureConfidence, content-pattern fills the three ratios, and
// timing-anomaly fills the pause/sequence counts.
type HeuristicStep struct {
	EventsTotal   int     `json:"eventsTotal"`
	EventsMatched int     `json:"eventsMatched"`
	Score         float64 `json:"score"`

	MeanSpeed      float64 `json:"meanSpeed,omitempty"`
	SpeedScore     float64 `json:"speedScore,omitempty"`
	FrequencyScore float64 `json:"frequencyScore,omitempty"`

	MeanSignatureConfidence float64 `json:"meanSignatureConfidence,omitempty"`

	CodeBlockRatio float64 `json:"codeBlockRatio,omitempty"`
	ConstructRatio float64 `json:"constructRatio,omitempty"`
	CommentRatio   float64 `json:"commentRatio,omitempty"`

	LongPauses     int `json:"longPauses,omitempty"`
	RapidSequences int `json:"rapidSequences,omitempty"`
}

// CombinationStep records the weighted combination of the six raw
// heuristic scores into the total.
type CombinationStep struct {
	Raw      HeuristicScores `json:"raw"`
	Weights  Weights         `json:"weights"`
	Weighted HeuristicScores `json:"weighted"`
	Total    float64         `json:"total"`
}

// DecisionStep records the final classification, including whether the
// mixed-signal override fired.
type DecisionStep struct {
	Total              float64        `json:"total"`
	Thresholds         Classification `json:"thresholds"`
	Source             SourceClass    `json:"source"`
	Confidence         float64        `json:"confidence"`
	AIProbability      float64        `json:"aiProbability"`
	HasHumanIndicators bool           `json:"hasHumanIndicators"`
	HasAIIndicators    bool           `json:"hasAIIndicators"`
	MixedOverride      bool           `json:"mixedOverride"`
}

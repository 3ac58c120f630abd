package grading

// MaxScore is the upper bound of a free-response score.
const MaxScore = 10

// Request is the input to one grading call. Nothing in it is persisted.
type Request struct {
	QuestionText  string
	StudentAnswer string
	RubricTables  []RubricTable
}

// Confidence is the coarse reliability signal attached to a score.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence returns the confidence named by value, or false when value is not exactly one of the three levels.
func ParseConfidence(value string) (Confidence, bool) {
	switch Confidence(value) {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return Confidence(value), true
	default:
		return "", false
	}
}

// Result is a normalised grade. Score is always within [0, MaxScore].
type Result struct {
	Score           int                `json:"score"`
	Feedback        string             `json:"feedback"`
	Confidence      Confidence         `json:"confidence"`
	RubricBreakdown map[string]float64 `json:"rubricBreakdown"`
	// Heuristic is set when the model output was not valid JSON and the
	// grade was recovered by pattern matching.
	Heuristic bool `json:"-"`
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

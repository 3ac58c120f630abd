package grading

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultFeedback is used when a parsed response carries no usable feedback.
	DefaultFeedback = "No feedback provided."
	// HeuristicFeedback is used when nothing resembling feedback could be recovered.
	HeuristicFeedback = "Review submitted work for accuracy and completeness."
	// HeuristicScore marks an unrecoverable score for human review.
	HeuristicScore = 5

	minFeedbackLineLength = 20
)

var (
	fencedBlockPattern   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingObjectComma  = regexp.MustCompile(`,\s*}`)
	trailingArrayComma   = regexp.MustCompile(`,\s*]`)
	heuristicScoreRe     = regexp.MustCompile(`(?i)["']?score["']?\s*[:=]\s*(\d+)`)
	heuristicFeedbackRe  = regexp.MustCompile(`(?i)["']?feedback["']?\s*[:=]\s*["']([^"']+)["']`)
	smartQuoteNormalizer = strings.NewReplacer(
		"\u201c", `"`,
		"\u201d", `"`,
		"\u2018", "'",
		"\u2019", "'",
	)
)

// ParseResponse turns raw model output into a Result. It never fails: output that
// is not JSON falls back to pattern extraction with low confidence.
func ParseResponse(raw string) Result {
	candidate := extractJSON(raw)

	var decoded interface{}
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil || decoded == nil {
		return parseHeuristic(raw)
	}

	fields, ok := decoded.(map[string]interface{})
	if !ok {
		fields = map[string]interface{}{}
	}

	result := Result{
		Score:           coerceScore(fields["score"]),
		Feedback:        coerceFeedback(fields["feedback"]),
		Confidence:      ConfidenceMedium,
		RubricBreakdown: coerceBreakdown(fields["rubricBreakdown"]),
	}
	if value, ok := fields["confidence"].(string); ok {
		if confidence, valid := ParseConfidence(value); valid {
			result.Confidence = confidence
		}
	}
	return result
}

func extractJSON(raw string) string {
	candidate := raw
	if match := fencedBlockPattern.FindStringSubmatch(candidate); match != nil {
		candidate = strings.TrimSpace(match[1])
	}

	first := strings.Index(candidate, "{")
	last := strings.LastIndex(candidate, "}")
	if first != -1 && last > first {
		candidate = candidate[first : last+1]
	}

	candidate = trailingObjectComma.ReplaceAllString(candidate, "}")
	candidate = trailingArrayComma.ReplaceAllString(candidate, "]")
	return smartQuoteNormalizer.Replace(candidate)
}

func coerceScore(value interface{}) int {
	var number float64
	switch v := value.(type) {
	case float64:
		number = v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		number = parsed
	case bool:
		if v {
			number = 1
		}
	default:
		return 0
	}

	if math.IsNaN(number) {
		return 0
	}
	rounded := math.Floor(number + 0.5)
	if rounded <= 0 {
		return 0
	}
	if rounded >= MaxScore {
		return MaxScore
	}
	return int(rounded)
}

func coerceFeedback(value interface{}) string {
	switch v := value.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		if v != 0 {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	case bool:
		if v {
			return "true"
		}
	case map[string]interface{}, []interface{}:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
	}
	return DefaultFeedback
}

func coerceBreakdown(value interface{}) map[string]float64 {
	breakdown := map[string]float64{}
	entries, ok := value.(map[string]interface{})
	if !ok {
		return breakdown
	}

	for criterion, points := range entries {
		switch v := points.(type) {
		case float64:
			breakdown[criterion] = v
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
				breakdown[criterion] = parsed
			}
		}
	}
	return breakdown
}

func parseHeuristic(raw string) Result {
	score := HeuristicScore
	if match := heuristicScoreRe.FindStringSubmatch(raw); match != nil {
		parsed, err := strconv.Atoi(match[1])
		if err != nil {
			// Only digits match, so the sole failure is overflow.
			parsed = MaxScore
		}
		score = clampScore(parsed)
	}

	feedback := ""
	if match := heuristicFeedbackRe.FindStringSubmatch(raw); match != nil {
		feedback = match[1]
	}
	if feedback == "" {
		feedback = firstProseLine(raw)
	}

	return Result{
		Score:           score,
		Feedback:        feedback,
		Confidence:      ConfidenceLow,
		RubricBreakdown: map[string]float64{},
		Heuristic:       true,
	}
}

func firstProseLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if utf8.RuneCountInString(trimmed) <= minFeedbackLineLength {
			continue
		}
		if strings.ContainsAny(trimmed, "{}") || strings.Contains(strings.ToLower(trimmed), "json") {
			continue
		}
		return trimmed
	}
	return HeuristicFeedback
}

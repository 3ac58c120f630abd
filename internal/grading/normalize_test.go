package grading

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponseKeepsInRangeScores(t *testing.T) {
	for score := 0; score <= MaxScore; score++ {
		raw := `{"score":` + strconv.Itoa(score) + `,"feedback":"ok","confidence":"high"}`
		result := ParseResponse(raw)
		require.Equal(t, score, result.Score)
		require.False(t, result.Heuristic)
	}
}

func TestParseResponseClampsAndRoundsScores(t *testing.T) {
	cases := map[string]int{
		`{"score":-5}`:     0,
		`{"score":15}`:     10,
		`{"score":10.7}`:   10,
		`{"score":6.5}`:    7,
		`{"score":6.49}`:   6,
		`{"score":"8"}`:    8,
		`{"score":" 4 "}`:  4,
		`{"score":""}`:     0,
		`{"score":"high"}`: 0,
		`{"score":true}`:   1,
		`{"score":null}`:   0,
		`{"feedback":"x"}`: 0,
		`{"score":1e300}`:  10,
	}

	for raw, expected := range cases {
		require.Equal(t, expected, ParseResponse(raw).Score, raw)
	}
}

func TestParseResponseConfidenceDefaults(t *testing.T) {
	require.Equal(t, ConfidenceMedium, ParseResponse(`{"score":5,"confidence":"certain"}`).Confidence)
	require.Equal(t, ConfidenceMedium, ParseResponse(`{"score":5,"confidence":"HIGH"}`).Confidence)
	require.Equal(t, ConfidenceMedium, ParseResponse(`{"score":5}`).Confidence)
	require.Equal(t, ConfidenceLow, ParseResponse(`{"score":5,"confidence":"low"}`).Confidence)

	heuristic := ParseResponse("score: 4, confidence: high, but this is not JSON at all")
	require.True(t, heuristic.Heuristic)
	require.Equal(t, ConfidenceLow, heuristic.Confidence)
}

func TestParseResponseExtractsFencedBlockWithProse(t *testing.T) {
	raw := "Here is the grade:\n```json\n{\"score\":7,\"feedback\":\"Good\",\"confidence\":\"high\"}\n```\nHope this helps!"

	result := ParseResponse(raw)
	require.Equal(t, 7, result.Score)
	require.Equal(t, "Good", result.Feedback)
	require.Equal(t, ConfidenceHigh, result.Confidence)
	require.Empty(t, result.RubricBreakdown)
	require.False(t, result.Heuristic)
}

func TestParseResponseToleratesTrailingCommasAndSmartQuotes(t *testing.T) {
	result := ParseResponse(`{"score":8,"feedback":"ok",}`)
	require.Equal(t, 8, result.Score)
	require.Equal(t, "ok", result.Feedback)
	require.Equal(t, ConfidenceMedium, result.Confidence)

	result = ParseResponse("Sure! {“score”: 9, “feedback”: “It’s right”, “rubricBreakdown”: {“Logic”: 4, “Clarity”: [1,],},}")
	require.Equal(t, 9, result.Score)
	require.Equal(t, "It's right", result.Feedback)
	require.Equal(t, map[string]float64{"Logic": 4}, result.RubricBreakdown)
}

func TestParseResponseCoercesFeedbackAndBreakdown(t *testing.T) {
	require.Equal(t, DefaultFeedback, ParseResponse(`{"score":3,"feedback":""}`).Feedback)
	require.Equal(t, DefaultFeedback, ParseResponse(`{"score":3,"feedback":0}`).Feedback)
	require.Equal(t, "42", ParseResponse(`{"score":3,"feedback":42}`).Feedback)
	require.Equal(t, `{"note":"see proof"}`, ParseResponse(`{"score":3,"feedback":{"note":"see proof"}}`).Feedback)

	result := ParseResponse(`{"score":3,"rubricBreakdown":{"Logic":"2.5","Clarity":1,"Style":"n/a"}}`)
	require.Equal(t, map[string]float64{"Logic": 2.5, "Clarity": 1}, result.RubricBreakdown)
}

func TestParseResponseHeuristicScoreWithoutFeedback(t *testing.T) {
	result := ParseResponse("score: 6")
	require.Equal(t, 6, result.Score)
	require.Equal(t, ConfidenceLow, result.Confidence)
	require.Equal(t, HeuristicFeedback, result.Feedback)
	require.Empty(t, result.RubricBreakdown)
	require.True(t, result.Heuristic)
}

func TestParseResponseHeuristicRecoversFeedback(t *testing.T) {
	result := ParseResponse(`{"score": 12, 'feedback': 'Strong induction step' oops`)
	require.Equal(t, 10, result.Score)
	require.Equal(t, "Strong induction step", result.Feedback)

	raw := "I could not produce json output.\nShort line\nThe argument misses the base case entirely.\n{broken"
	result = ParseResponse(raw)
	require.Equal(t, HeuristicScore, result.Score)
	require.Equal(t, "The argument misses the base case entirely.", result.Feedback)
}

func TestParseResponseHeuristicOverflowClampsToMax(t *testing.T) {
	result := ParseResponse("score = 99999999999999999999999 and nothing else")
	require.Equal(t, MaxScore, result.Score)
}

func TestParseResponseNullFallsBackToHeuristic(t *testing.T) {
	result := ParseResponse("null")
	require.True(t, result.Heuristic)
	require.Equal(t, HeuristicScore, result.Score)
}

func TestParseResponseNonObjectJSONBehavesLikeEmptyObject(t *testing.T) {
	result := ParseResponse(`[1, 2, 3]`)
	require.False(t, result.Heuristic)
	require.Equal(t, 0, result.Score)
	require.Equal(t, DefaultFeedback, result.Feedback)
	require.Equal(t, ConfidenceMedium, result.Confidence)
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
)

// SubmissionResponse is returned to API clients when viewing a graded submission.
type SubmissionResponse struct {
	ID                uint                             `json:"id"`
	Day               string                           `json:"day"`
	StudentEmail      string                           `json:"student_email"`
	StudentName       string                           `json:"student_name"`
	Q1Correct         bool                             `json:"q1_correct"`
	Q2Correct         bool                             `json:"q2_correct"`
	Q3Score           *int                             `json:"q3_score"`
	Q3Feedback        string                           `json:"q3_feedback"`
	TotalScore        int                              `json:"total_score"`
	GradingStatus     string                           `json:"grading_status"`
	AssignedTo        string                           `json:"assigned_to,omitempty"`
	AssignedToName    string                           `json:"assigned_to_name,omitempty"`
	AssignedAt        *time.Time                       `json:"assigned_at,omitempty"`
	AIScore           *int                             `json:"ai_score"`
	AIFeedback        string                           `json:"ai_feedback,omitempty"`
	AIConfidence      string                           `json:"ai_confidence,omitempty"`
	AIRubricBreakdown map[string]float64               `json:"ai_rubric_breakdown,omitempty"`
	AIModel           string                           `json:"ai_model,omitempty"`
	AIGradedAt        *time.Time                       `json:"ai_graded_at,omitempty"`
	GradedBy          string                           `json:"graded_by,omitempty"`
	GradedByName      string                           `json:"graded_by_name,omitempty"`
	HumanGradedAt     *time.Time                       `json:"human_graded_at,omitempty"`
	History           []SubmissionGradeHistoryResponse `json:"history"`
	SubmittedAt       time.Time                        `json:"submitted_at"`
	UpdatedAt         time.Time                        `json:"updated_at"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Source     string    `json:"source"`
	Score      int       `json:"score"`
	Feedback   string    `json:"feedback"`
	Confidence string    `json:"confidence,omitempty"`
	Model      string    `json:"model,omitempty"`
	GradedBy   string    `json:"graded_by"`
	GradedAt   time.Time `json:"graded_at"`
}

// NewSubmissionResponse maps a submission model to its API representation.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	history := make([]SubmissionGradeHistoryResponse, 0, len(submission.History))
	for _, entry := range submission.History {
		history = append(history, SubmissionGradeHistoryResponse{
			Source:     string(entry.Source),
			Score:      entry.Score,
			Feedback:   entry.Feedback,
			Confidence: entry.Confidence,
			Model:      entry.Model,
			GradedBy:   entry.GradedBy,
			GradedAt:   entry.GradedAt,
		})
	}

	var breakdown map[string]float64
	if len(submission.AIRubricBreakdown) > 0 {
		_ = json.Unmarshal(submission.AIRubricBreakdown, &breakdown)
	}

	return SubmissionResponse{
		ID:                submission.ID,
		Day:               submission.Day,
		StudentEmail:      submission.StudentEmail,
		StudentName:       submission.StudentName,
		Q1Correct:         submission.Q1Correct,
		Q2Correct:         submission.Q2Correct,
		Q3Score:           submission.Q3Score,
		Q3Feedback:        submission.Q3Feedback,
		TotalScore:        submission.TotalScore(),
		GradingStatus:     string(submission.Status()),
		AssignedTo:        submission.AssignedTo,
		AssignedToName:    submission.AssignedToName,
		AssignedAt:        submission.AssignedAt,
		AIScore:           submission.AIScore,
		AIFeedback:        submission.AIFeedback,
		AIConfidence:      submission.AIConfidence,
		AIRubricBreakdown: breakdown,
		AIModel:           submission.AIModel,
		AIGradedAt:        submission.AIGradedAt,
		GradedBy:          submission.GradedBy,
		GradedByName:      submission.GradedByName,
		HumanGradedAt:     submission.HumanGradedAt,
		History:           history,
		SubmittedAt:       submission.SubmittedAt,
		UpdatedAt:         submission.UpdatedAt,
	}
}

package dto

import (
	"encoding/json"
	"time"
)

// GradeSubmissionRequest is the body accepted by the AI grading endpoint.
// Rubric and QuestionText are decoded leniently by the handler.
type GradeSubmissionRequest struct {
	Q3Answer     *string         `json:"q3Answer"`
	Rubric       json.RawMessage `json:"rubric"`
	QuestionText json.RawMessage `json:"questionText"`
}

// GradeSubmissionResponse is the success body of the AI grading endpoint.
type GradeSubmissionResponse struct {
	Success         bool               `json:"success"`
	Score           int                `json:"score"`
	Feedback        string             `json:"feedback"`
	Confidence      string             `json:"confidence"`
	RubricBreakdown map[string]float64 `json:"rubricBreakdown"`
	Model           string             `json:"model"`
}

// GradeErrorResponse is the failure body of the AI grading endpoint.
type GradeErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HumanGradeRequest captures a grader's Q3 score and feedback.
type HumanGradeRequest struct {
	Score    *int   `json:"score" validate:"required,gte=0,lte=10"`
	Feedback string `json:"feedback" validate:"required"`
}

// GraderRef identifies a grader that can receive assignments.
type GraderRef struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// AutoAssignRequest lists the graders to distribute pending submissions over.
type AutoAssignRequest struct {
	Graders []GraderRef `json:"graders" validate:"required,min=1,dive"`
}

// AutoAssignResponse reports the outcome of a round-robin assignment.
type AutoAssignResponse struct {
	Assigned int            `json:"assigned"`
	Skipped  int            `json:"skipped"`
	ByGrader map[string]int `json:"by_grader"`
}

// BulkGradeFailure describes one submission that could not be AI graded.
type BulkGradeFailure struct {
	SubmissionID uint   `json:"submission_id"`
	Error        string `json:"error"`
}

// BulkGradeResponse summarises a bulk AI grading run.
type BulkGradeResponse struct {
	Graded   int                `json:"graded"`
	Failed   int                `json:"failed"`
	Failures []BulkGradeFailure `json:"failures"`
}

// GraderQueueItem is one submission awaiting a grader's review.
type GraderQueueItem struct {
	SubmissionID    uint       `json:"submission_id"`
	Day             string     `json:"day"`
	StudentName     string     `json:"student_name"`
	GradingStatus   string     `json:"grading_status"`
	AnswerPreview   string     `json:"answer_preview"`
	AIScore         *int       `json:"ai_score"`
	AIConfidence    string     `json:"ai_confidence,omitempty"`
	FeedbackPreview string     `json:"feedback_preview"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
}

// GradingStatsResponse counts submissions per grading status.
type GradingStatsResponse struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Assigned    int `json:"assigned"`
	AIGraded    int `json:"ai_graded"`
	HumanGraded int `json:"human_graded"`
}

package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// GradingStatus tracks a submission through AI and human grading.
type GradingStatus string

const (
	GradingStatusPending     GradingStatus = "pending"
	GradingStatusAssigned    GradingStatus = "assigned"
	GradingStatusAIGraded    GradingStatus = "ai_graded"
	GradingStatusHumanGraded GradingStatus = "human_graded"
)

// Points awarded for the objective questions.
const (
	Q1Points = 4
	Q2Points = 6
)

// Submission is one student's answers for a single day's quiz.
type Submission struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Day          string `gorm:"column:day;size:16;index;not null" json:"day"`
	StudentEmail string `gorm:"column:student_email;size:255;index;not null" json:"student_email"`
	StudentName  string `gorm:"column:student_name;size:255" json:"student_name"`
	Q1Answer     string `gorm:"column:q1_answer;size:255" json:"q1_answer"`
	Q1Correct    bool   `gorm:"column:q1_correct" json:"q1_correct"`
	Q2Answer     string `gorm:"column:q2_answer;size:255" json:"q2_answer"`
	Q2Correct    bool   `gorm:"column:q2_correct" json:"q2_correct"`
	Q3Answer     string `gorm:"column:q3_answer;type:text" json:"q3_answer"`
	Q3Score      *int   `gorm:"column:q3_score" json:"q3_score"`
	Q3Feedback   string `gorm:"column:q3_feedback;type:text" json:"q3_feedback"`
	// TotalTime is the seconds spent on the quiz.
	TotalTime int `gorm:"column:total_time" json:"total_time"`

	GradingStatus     GradingStatus  `gorm:"column:grading_status;size:32;index" json:"grading_status"`
	AssignedTo        string         `gorm:"column:assigned_to;size:128;index" json:"assigned_to,omitempty"`
	AssignedToName    string         `gorm:"column:assigned_to_name;size:255" json:"assigned_to_name,omitempty"`
	AssignedAt        *time.Time     `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	AIScore           *int           `gorm:"column:ai_score" json:"ai_score,omitempty"`
	AIFeedback        string         `gorm:"column:ai_feedback;type:text" json:"ai_feedback,omitempty"`
	AIConfidence      string         `gorm:"column:ai_confidence;size:16" json:"ai_confidence,omitempty"`
	AIRubricBreakdown datatypes.JSON `gorm:"column:ai_rubric_breakdown" json:"ai_rubric_breakdown,omitempty"`
	AIModel           string         `gorm:"column:ai_model;size:128" json:"ai_model,omitempty"`
	AIGradedAt        *time.Time     `gorm:"column:ai_graded_at" json:"ai_graded_at,omitempty"`
	GradedBy          string         `gorm:"column:graded_by;size:128" json:"graded_by,omitempty"`
	GradedByName      string         `gorm:"column:graded_by_name;size:255" json:"graded_by_name,omitempty"`
	HumanGradedAt     *time.Time     `gorm:"column:human_graded_at" json:"human_graded_at,omitempty"`
	// GradingVersion increments on every grading write and guards concurrent updates.
	GradingVersion int `gorm:"column:grading_version;not null;default:0" json:"grading_version"`

	SubmittedAt time.Time                `gorm:"column:submitted_at" json:"submitted_at"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	History     []SubmissionGradeHistory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history,omitempty"`
}

// Status returns the grading status, treating empty or unknown values as pending.
func (s Submission) Status() GradingStatus {
	switch GradingStatus(strings.TrimSpace(string(s.GradingStatus))) {
	case GradingStatusAssigned:
		return GradingStatusAssigned
	case GradingStatusAIGraded:
		return GradingStatusAIGraded
	case GradingStatusHumanGraded:
		return GradingStatusHumanGraded
	default:
		return GradingStatusPending
	}
}

// TotalScore is the quiz total: objective points plus the Q3 score when graded.
func (s Submission) TotalScore() int {
	total := 0
	if s.Q1Correct {
		total += Q1Points
	}
	if s.Q2Correct {
		total += Q2Points
	}
	if s.Q3Score != nil {
		total += *s.Q3Score
	}
	return total
}

// GradeSource identifies who produced a grade history entry.
type GradeSource string

const (
	GradeSourceAI    GradeSource = "ai"
	GradeSourceHuman GradeSource = "human"
)

// SubmissionGradeHistory records every grade written to a submission.
type SubmissionGradeHistory struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	SubmissionID uint        `gorm:"index;not null" json:"submission_id"`
	Source       GradeSource `gorm:"size:16;not null" json:"source"`
	Score        int         `json:"score"`
	Feedback     string      `gorm:"type:text" json:"feedback"`
	Confidence   string      `gorm:"size:16" json:"confidence,omitempty"`
	Model        string      `gorm:"size:128" json:"model,omitempty"`
	GradedBy     string      `gorm:"size:128" json:"graded_by"`
	GradedAt     time.Time   `json:"graded_at"`
}

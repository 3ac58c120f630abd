package dto

import (
	"time"

	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
)

// QuestionUpsertRequest authors the free-response question of a day.
type QuestionUpsertRequest struct {
	Q3Text   string                `json:"q3_text" validate:"max=10000"`
	Q3Rubric []grading.RubricTable `json:"q3_rubric" validate:"max=20"`
}

// QuestionResponse is the API representation of a day's question.
type QuestionResponse struct {
	Day       string                `json:"day"`
	Q3Text    string                `json:"q3_text"`
	Q3Rubric  []grading.RubricTable `json:"q3_rubric"`
	UpdatedAt time.Time             `json:"updated_at"`
}

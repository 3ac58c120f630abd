package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question holds the free-response prompt and rubric for one quiz day.
type Question struct {
	Day       string         `gorm:"primaryKey;size:16" json:"day"`
	Q3Text    string         `gorm:"column:q3_text;type:text" json:"q3_text"`
	Q3Rubric  datatypes.JSON `gorm:"column:q3_rubric" json:"q3_rubric"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

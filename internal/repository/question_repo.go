package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
)

// QuestionRepository persists per-day free-response questions.
type QuestionRepository interface {
	GetByDay(ctx context.Context, day string) (models.Question, error)
	Upsert(ctx context.Context, question *models.Question) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) GetByDay(ctx context.Context, day string) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).Where("day = ?", day).First(&question).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) Upsert(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"q3_text", "q3_rubric", "updated_at"}),
	}).Create(question).Error
}

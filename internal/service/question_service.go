package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
	"github.com/123123123123Sitar/dpotdquicktest/internal/repository"
)

var (
	// ErrQuestionNotFound indicates no question was authored for the day.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidDay indicates the day is not formatted as YYYY-MM-DD.
	ErrInvalidDay = errors.New("day must be formatted as YYYY-MM-DD")
)

const dayLayout = "2006-01-02"

// QuestionService manages the per-day free-response question and rubric.
type QuestionService interface {
	Get(ctx context.Context, day string) (dto.QuestionResponse, error)
	Upsert(ctx context.Context, day string, payload dto.QuestionUpsertRequest) (dto.QuestionResponse, error)
}

type questionService struct {
	repo      repository.QuestionRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(repo repository.QuestionRepository, validator *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Get(ctx context.Context, day string) (dto.QuestionResponse, error) {
	day, err := normalizeDay(day)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.repo.GetByDay(ctx, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	return s.toResponse(question), nil
}

func (s *questionService) Upsert(ctx context.Context, day string, payload dto.QuestionUpsertRequest) (dto.QuestionResponse, error) {
	day, err := normalizeDay(day)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	rubric := payload.Q3Rubric
	if rubric == nil {
		rubric = []grading.RubricTable{}
	}
	encoded, err := json.Marshal(rubric)
	if err != nil {
		return dto.QuestionResponse{}, fmt.Errorf("encode rubric: %w", err)
	}

	question := models.Question{
		Day:       day,
		Q3Text:    strings.TrimSpace(payload.Q3Text),
		Q3Rubric:  datatypes.JSON(encoded),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	return s.toResponse(question), nil
}

func (s *questionService) toResponse(question models.Question) dto.QuestionResponse {
	return dto.QuestionResponse{
		Day:       question.Day,
		Q3Text:    question.Q3Text,
		Q3Rubric:  decodeRubric(question.Q3Rubric, s.logger),
		UpdatedAt: question.UpdatedAt,
	}
}

// decodeRubric never fails; a corrupt rubric degrades to the default breakdown at prompt time.
func decodeRubric(raw datatypes.JSON, logger zerolog.Logger) []grading.RubricTable {
	tables := []grading.RubricTable{}
	if len(raw) == 0 {
		return tables
	}
	if err := json.Unmarshal(raw, &tables); err != nil {
		logger.Warn().Err(err).Msg("stored rubric is not decodable")
		return []grading.RubricTable{}
	}
	return tables
}

func normalizeDay(day string) (string, error) {
	day = strings.TrimSpace(day)
	if _, err := time.Parse(dayLayout, day); err != nil {
		return "", ErrInvalidDay
	}
	return day, nil
}

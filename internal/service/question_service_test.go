package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
)

type memoryQuestionRepo struct {
	questions map[string]models.Question
}

func (m *memoryQuestionRepo) GetByDay(_ context.Context, day string) (models.Question, error) {
	question, ok := m.questions[day]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (m *memoryQuestionRepo) Upsert(_ context.Context, question *models.Question) error {
	m.questions[question.Day] = *question
	return nil
}

func newTestQuestionService() (QuestionService, *memoryQuestionRepo) {
	repo := &memoryQuestionRepo{questions: map[string]models.Question{}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewQuestionService(repo, validate, testLogger()), repo
}

func TestQuestionServiceUpsertAndGet(t *testing.T) {
	svc, repo := newTestQuestionService()
	ctx := context.Background()

	saved, err := svc.Upsert(ctx, "2025-01-15", dto.QuestionUpsertRequest{
		Q3Text: "  Prove that there are infinitely many primes.  ",
		Q3Rubric: []grading.RubricTable{{
			Columns: []string{"Criterion", "Points"},
			Rows:    []grading.RubricRow{grading.KeyedRow(map[int]string{0: "Logic", 1: "4"})},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "Prove that there are infinitely many primes.", saved.Q3Text)
	require.JSONEq(t, `[{"columns":["Criterion","Points"],"rows":[{"c0":"Logic","c1":"4"}]}]`, string(repo.questions["2025-01-15"].Q3Rubric))

	loaded, err := svc.Get(ctx, "2025-01-15")
	require.NoError(t, err)
	require.Len(t, loaded.Q3Rubric, 1)
	require.True(t, loaded.Q3Rubric[0].Rows[0].IsKeyed())
}

func TestQuestionServiceErrors(t *testing.T) {
	svc, repo := newTestQuestionService()
	ctx := context.Background()

	_, err := svc.Get(ctx, "2025-01-16")
	require.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = svc.Get(ctx, "yesterday")
	require.ErrorIs(t, err, ErrInvalidDay)

	repo.questions["2025-01-17"] = models.Question{Day: "2025-01-17", Q3Rubric: datatypes.JSON(`{"not":"a list"}`)}
	loaded, err := svc.Get(ctx, "2025-01-17")
	require.NoError(t, err)
	require.Empty(t, loaded.Q3Rubric)
}

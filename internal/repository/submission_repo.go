package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
)

// ErrStaleSubmission indicates the submission was graded or reassigned since it was read.
var ErrStaleSubmission = errors.New("submission grading state changed concurrently")

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	Statuses   []models.GradingStatus
	AssignedTo string
	Day        string
	// NeedsAIGrade selects submissions with a Q3 answer and no Q3 score yet.
	NeedsAIGrade bool
}

// SubmissionRepository defines data operations for quiz submissions and their grades.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	// UpdateGrading persists the grading columns only when the stored status still
	// equals expected and the stored version matches the one loaded. It returns
	// ErrStaleSubmission otherwise and bumps submission.GradingVersion on success.
	UpdateGrading(ctx context.Context, submission *models.Submission, expected models.GradingStatus) error
	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses)+1)
		includePending := false
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
			if status == models.GradingStatusPending {
				includePending = true
			}
		}
		if includePending {
			query = query.Where("(grading_status IN ? OR grading_status = '' OR grading_status IS NULL)", statuses)
		} else {
			query = query.Where("grading_status IN ?", statuses)
		}
	}

	if filter.AssignedTo != "" {
		query = query.Where("assigned_to = ?", filter.AssignedTo)
	}

	if filter.Day != "" {
		query = query.Where("day = ?", filter.Day)
	}

	if filter.NeedsAIGrade {
		query = query.Where("q3_answer <> '' AND q3_score IS NULL")
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("graded_at DESC")
		}).
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) UpdateGrading(ctx context.Context, submission *models.Submission, expected models.GradingStatus) error {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND grading_version = ?", submission.ID, submission.GradingVersion)
	if expected == models.GradingStatusPending {
		query = query.Where("(grading_status = ? OR grading_status = '' OR grading_status IS NULL)", expected)
	} else {
		query = query.Where("grading_status = ?", expected)
	}

	result := query.Updates(gradingColumns(submission))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleSubmission
	}
	submission.GradingVersion++
	return nil
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func gradingColumns(s *models.Submission) map[string]interface{} {
	return map[string]interface{}{
		"grading_status":      s.GradingStatus,
		"q3_score":            s.Q3Score,
		"q3_feedback":         s.Q3Feedback,
		"assigned_to":         s.AssignedTo,
		"assigned_to_name":    s.AssignedToName,
		"assigned_at":         s.AssignedAt,
		"ai_score":            s.AIScore,
		"ai_feedback":         s.AIFeedback,
		"ai_confidence":       s.AIConfidence,
		"ai_rubric_breakdown": s.AIRubricBreakdown,
		"ai_model":            s.AIModel,
		"ai_graded_at":        s.AIGradedAt,
		"graded_by":           s.GradedBy,
		"graded_by_name":      s.GradedByName,
		"human_graded_at":     s.HumanGradedAt,
		"grading_version":     gorm.Expr("grading_version + 1"),
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
	"github.com/123123123123Sitar/dpotdquicktest/internal/observability"
	"github.com/123123123123Sitar/dpotdquicktest/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates the submission was not located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrInvalidTransition indicates the grading status cannot move as requested.
	ErrInvalidTransition = errors.New("submission has already been graded by a human")
	// ErrGradingInProgress indicates another grading call holds the submission lock.
	ErrGradingInProgress = errors.New("submission is already being graded")
	// ErrGradingConflict indicates the submission changed while it was being graded.
	ErrGradingConflict = errors.New("submission was modified by another grader")
	// ErrNotAssignedGrader indicates a grader tried to grade someone else's submission.
	ErrNotAssignedGrader = errors.New("submission is not assigned to this grader")
	// ErrNoGraders indicates auto-assignment was requested without graders.
	ErrNoGraders = errors.New("at least one grader is required")
	// ErrFeedbackRequired indicates human feedback was empty.
	ErrFeedbackRequired = errors.New("feedback is required")
)

const (
	// RoleAdmin may grade any submission.
	RoleAdmin = "admin"
	// RoleGrader may only grade submissions assigned to them.
	RoleGrader = "grader"

	previewLength          = 280
	defaultGradingLockTTL  = 2 * time.Minute
	gradingLockKeyTemplate = "grading:lock:%d"
)

// GradingActor identifies the user driving a workflow operation.
type GradingActor struct {
	ID   string
	Name string
	Role string
}

// SubmissionGradingService advances submissions through the grading workflow.
type SubmissionGradingService interface {
	AIGrade(ctx context.Context, submissionID uint, actor GradingActor) (dto.SubmissionResponse, error)
	BulkAIGrade(ctx context.Context, actor GradingActor) (dto.BulkGradeResponse, error)
	AutoAssign(ctx context.Context, payload dto.AutoAssignRequest) (dto.AutoAssignResponse, error)
	HumanGrade(ctx context.Context, submissionID uint, payload dto.HumanGradeRequest, actor GradingActor) (dto.SubmissionResponse, error)
	GraderQueue(ctx context.Context, graderID string) ([]dto.GraderQueueItem, error)
	Stats(ctx context.Context) (dto.GradingStatsResponse, error)
}

// SubmissionGradingConfig carries the workflow's collaborators.
type SubmissionGradingConfig struct {
	Submissions repository.SubmissionRepository
	Questions   repository.QuestionRepository
	Grader      GradingService
	Events      GradingEventPublisher
	Leaderboard LeaderboardService
	Redis       *redis.Client
	LockTTL     time.Duration
	Validator   *validator.Validate
}

type submissionGradingService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	grader      GradingService
	events      GradingEventPublisher
	leaderboard LeaderboardService
	redis       *redis.Client
	lockTTL     time.Duration
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionGradingService constructs the grading workflow.
func NewSubmissionGradingService(cfg SubmissionGradingConfig, logger zerolog.Logger) SubmissionGradingService {
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultGradingLockTTL
	}
	validate := cfg.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &submissionGradingService{
		submissions: cfg.Submissions,
		questions:   cfg.Questions,
		grader:      cfg.Grader,
		events:      cfg.Events,
		leaderboard: cfg.Leaderboard,
		redis:       cfg.Redis,
		lockTTL:     lockTTL,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", componentSubmissionGrading).Logger(),
		tracer:      otel.Tracer("github.com/123123123123Sitar/dpotdquicktest/internal/service/submission_grading"),
		now:         time.Now,
	}
}

func (s *submissionGradingService) AIGrade(ctx context.Context, submissionID uint, actor GradingActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.ai_grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.String("grading.actor_id", actor.ID),
	)
	defer span.End()

	release, err := s.acquireLock(ctx, submissionID, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock_unavailable")
		return dto.SubmissionResponse{}, err
	}
	defer release()

	submission, err := s.load(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	previous := submission.Status()
	if previous == models.GradingStatusHumanGraded {
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.SubmissionResponse{}, ErrInvalidTransition
	}

	req, err := s.gradingRequest(ctx, submission)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "question_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	outcome, err := s.grader.GradeSubmission(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_failed")
		return dto.SubmissionResponse{}, err
	}

	breakdown, err := json.Marshal(outcome.RubricBreakdown)
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("encode rubric breakdown: %w", err)
	}

	gradedAt := s.now().UTC()
	score := outcome.Score
	aiScore := outcome.Score
	submission.AIScore = &aiScore
	submission.AIFeedback = outcome.Feedback
	submission.AIConfidence = string(outcome.Confidence)
	submission.AIRubricBreakdown = datatypes.JSON(breakdown)
	submission.AIModel = outcome.Model
	submission.AIGradedAt = &gradedAt
	submission.Q3Score = &score
	submission.Q3Feedback = outcome.Feedback
	submission.GradingStatus = models.GradingStatusAIGraded

	if err := s.persist(ctx, &submission, previous); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	s.recordHistory(ctx, models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Source:       models.GradeSourceAI,
		Score:        outcome.Score,
		Feedback:     outcome.Feedback,
		Confidence:   string(outcome.Confidence),
		Model:        outcome.Model,
		GradedBy:     actor.ID,
		GradedAt:     gradedAt,
	})
	s.afterChange(ctx, GradingEventAIGraded, submission, previous)

	span.SetAttributes(
		attribute.Int("grading.score", outcome.Score),
		attribute.String("grading.model", outcome.Model),
	)

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionGradingService) BulkAIGrade(ctx context.Context, actor GradingActor) (dto.BulkGradeResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{NeedsAIGrade: true})
	if err != nil {
		return dto.BulkGradeResponse{}, err
	}

	response := dto.BulkGradeResponse{Failures: []dto.BulkGradeFailure{}}
	for _, submission := range submissions {
		if err := ctx.Err(); err != nil {
			return response, err
		}

		if _, err := s.AIGrade(ctx, submission.ID, actor); err != nil {
			response.Failed++
			response.Failures = append(response.Failures, dto.BulkGradeFailure{
				SubmissionID: submission.ID,
				Error:        err.Error(),
			})
			s.log(ctx).Warn().Err(err).Uint("submission_id", submission.ID).Msg("bulk AI grading skipped submission")
			continue
		}
		response.Graded++
	}

	s.log(ctx).Info().Int("graded", response.Graded).Int("failed", response.Failed).Msg("bulk AI grading finished")
	return response, nil
}

func (s *submissionGradingService) AutoAssign(ctx context.Context, payload dto.AutoAssignRequest) (dto.AutoAssignResponse, error) {
	if len(payload.Graders) == 0 {
		return dto.AutoAssignResponse{}, ErrNoGraders
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AutoAssignResponse{}, err
	}

	pending, err := s.submissions.List(ctx, repository.SubmissionFilter{
		Statuses: []models.GradingStatus{models.GradingStatusPending},
	})
	if err != nil {
		return dto.AutoAssignResponse{}, err
	}

	response := dto.AutoAssignResponse{ByGrader: make(map[string]int, len(payload.Graders))}
	next := 0
	for _, submission := range pending {
		grader := payload.Graders[next%len(payload.Graders)]
		assignedAt := s.now().UTC()

		previous := submission.Status()
		submission.GradingStatus = models.GradingStatusAssigned
		submission.AssignedTo = strings.TrimSpace(grader.ID)
		submission.AssignedToName = strings.TrimSpace(grader.Name)
		submission.AssignedAt = &assignedAt

		if err := s.persist(ctx, &submission, previous); err != nil {
			if errors.Is(err, ErrGradingConflict) {
				response.Skipped++
				continue
			}
			return response, err
		}

		next++
		response.Assigned++
		response.ByGrader[submission.AssignedTo]++
		s.afterChange(ctx, GradingEventAssigned, submission, previous)
	}

	return response, nil
}

func (s *submissionGradingService) HumanGrade(ctx context.Context, submissionID uint, payload dto.HumanGradeRequest, actor GradingActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.human_grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.String("grading.actor_id", actor.ID),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	feedback := strings.TrimSpace(payload.Feedback)
	if feedback == "" {
		return dto.SubmissionResponse{}, ErrFeedbackRequired
	}

	submission, err := s.load(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	if !strings.EqualFold(actor.Role, RoleAdmin) && submission.AssignedTo != actor.ID {
		span.SetStatus(codes.Error, "not_assigned")
		return dto.SubmissionResponse{}, ErrNotAssignedGrader
	}

	score := *payload.Score
	previous := submission.Status()
	isIdempotent := previous == models.GradingStatusHumanGraded &&
		submission.Q3Score != nil && *submission.Q3Score == score &&
		strings.TrimSpace(submission.Q3Feedback) == feedback &&
		submission.GradedBy == actor.ID
	if isIdempotent {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return dto.NewSubmissionResponse(submission), nil
	}

	gradedAt := s.now().UTC()
	submission.Q3Score = &score
	submission.Q3Feedback = feedback
	submission.GradingStatus = models.GradingStatusHumanGraded
	submission.GradedBy = actor.ID
	submission.GradedByName = actor.Name
	submission.HumanGradedAt = &gradedAt

	if err := s.persist(ctx, &submission, previous); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, err
	}

	s.recordHistory(ctx, models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Source:       models.GradeSourceHuman,
		Score:        score,
		Feedback:     feedback,
		GradedBy:     actor.ID,
		GradedAt:     gradedAt,
	})
	s.afterChange(ctx, GradingEventHumanGraded, submission, previous)

	span.SetAttributes(attribute.Int("grading.score", score))
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionGradingService) GraderQueue(ctx context.Context, graderID string) ([]dto.GraderQueueItem, error) {
	graderID = strings.TrimSpace(graderID)
	if graderID == "" {
		return []dto.GraderQueueItem{}, nil
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignedTo: graderID,
		Statuses:   []models.GradingStatus{models.GradingStatusAssigned, models.GradingStatusAIGraded},
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.GraderQueueItem, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.GraderQueueItem{
			SubmissionID:    submission.ID,
			Day:             submission.Day,
			StudentName:     submission.StudentName,
			GradingStatus:   string(submission.Status()),
			AnswerPreview:   s.preview(submission.Q3Answer),
			AIScore:         submission.AIScore,
			AIConfidence:    submission.AIConfidence,
			FeedbackPreview: s.preview(submission.AIFeedback),
			AssignedAt:      submission.AssignedAt,
		})
	}
	return items, nil
}

func (s *submissionGradingService) Stats(ctx context.Context) (dto.GradingStatsResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		return dto.GradingStatsResponse{}, err
	}

	stats := dto.GradingStatsResponse{Total: len(submissions)}
	for _, submission := range submissions {
		switch submission.Status() {
		case models.GradingStatusAssigned:
			stats.Assigned++
		case models.GradingStatusAIGraded:
			stats.AIGraded++
		case models.GradingStatusHumanGraded:
			stats.HumanGraded++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

func (s *submissionGradingService) load(ctx context.Context, submissionID uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionGradingService) gradingRequest(ctx context.Context, submission models.Submission) (grading.Request, error) {
	req := grading.Request{StudentAnswer: submission.Q3Answer}
	if s.questions == nil || submission.Day == "" {
		return req, nil
	}

	question, err := s.questions.GetByDay(ctx, submission.Day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log(ctx).Warn().Str("day", submission.Day).Msg("no question authored for day, grading with defaults")
			return req, nil
		}
		return grading.Request{}, err
	}

	req.QuestionText = question.Q3Text
	req.RubricTables = decodeRubric(question.Q3Rubric, s.logger)
	return req, nil
}

func (s *submissionGradingService) persist(ctx context.Context, submission *models.Submission, previous models.GradingStatus) error {
	if err := s.submissions.UpdateGrading(ctx, submission, previous); err != nil {
		if errors.Is(err, repository.ErrStaleSubmission) {
			return ErrGradingConflict
		}
		return err
	}
	return nil
}

// acquireLock takes the per-submission Redis lock. Without Redis the status
// compare-and-swap is the only guard.
func (s *submissionGradingService) acquireLock(ctx context.Context, submissionID uint, actor GradingActor) (func(), error) {
	noop := func() {}
	if s.redis == nil {
		return noop, nil
	}

	key := fmt.Sprintf(gradingLockKeyTemplate, submissionID)
	acquired, err := s.redis.SetNX(ctx, key, actor.ID, s.lockTTL).Result()
	if err != nil {
		s.log(ctx).Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to acquire grading lock")
		return noop, nil
	}
	if !acquired {
		return noop, ErrGradingInProgress
	}

	return func() {
		if err := s.redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			s.log(ctx).Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to release grading lock")
		}
	}, nil
}

func (s *submissionGradingService) recordHistory(ctx context.Context, history models.SubmissionGradeHistory) {
	if err := s.submissions.CreateHistory(ctx, &history); err != nil {
		s.log(ctx).Warn().Err(err).Uint("submission_id", history.SubmissionID).Msg("failed to persist grading history")
	}
}

func (s *submissionGradingService) afterChange(ctx context.Context, eventType string, submission models.Submission, previous models.GradingStatus) {
	observability.GradingTransitions().WithLabelValues(string(previous), string(submission.Status())).Inc()

	if s.events != nil {
		if err := s.events.Publish(ctx, NewGradingEvent(eventType, submission, s.now())); err != nil {
			s.log(ctx).Warn().Err(err).Uint("submission_id", submission.ID).Str("event", eventType).Msg("failed to publish grading event")
		}
	}
	if s.leaderboard != nil && eventType != GradingEventAssigned {
		s.leaderboard.Invalidate(ctx)
	}
}

// preview renders LaTeX content as the HTML-safe text shown in grader queues.
func (s *submissionGradingService) preview(content string) string {
	body := strings.TrimSpace(s.sanitizer.Sanitize(grading.DocumentBody(content)))
	runes := []rune(body)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "…"
	}
	return body
}

package service

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	componentGrading           = "grading_service"
	componentLeaderboard       = "leaderboard_service"
	componentSubmissionGrading = "submission_grading_service"
)

// loggerFor returns the request-scoped logger bound to ctx tagged with component.
// Without one it falls back to base.
func loggerFor(ctx context.Context, base zerolog.Logger, component string) *zerolog.Logger {
	scoped := zerolog.Ctx(ctx)
	if scoped.GetLevel() == zerolog.Disabled || scoped == zerolog.DefaultContextLogger {
		return &base
	}
	tagged := scoped.With().Str("component", component).Logger()
	return &tagged
}

func (s *gradingService) log(ctx context.Context) *zerolog.Logger {
	return loggerFor(ctx, s.logger, componentGrading)
}

func (s *leaderboardService) log(ctx context.Context) *zerolog.Logger {
	return loggerFor(ctx, s.logger, componentLeaderboard)
}

func (s *submissionGradingService) log(ctx context.Context) *zerolog.Logger {
	return loggerFor(ctx, s.logger, componentSubmissionGrading)
}

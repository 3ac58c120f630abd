package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/repository"
)

const leaderboardCacheKey = "leaderboard:all"

// LeaderboardService ranks students across every quiz day.
type LeaderboardService interface {
	Leaderboard(ctx context.Context) ([]dto.LeaderboardEntry, error)
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	excluded    map[string]struct{}
	logger      zerolog.Logger
}

// NewLeaderboardService builds the leaderboard aggregator. Excluded e-mails are
// compared case-insensitively.
func NewLeaderboardService(submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, excludedEmails []string, logger zerolog.Logger) LeaderboardService {
	excluded := make(map[string]struct{}, len(excludedEmails))
	for _, email := range excludedEmails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized != "" {
			excluded[normalized] = struct{}{}
		}
	}

	return &leaderboardService{
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		excluded:    excluded,
		logger:      logger.With().Str("component", componentLeaderboard).Logger(),
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context) ([]dto.LeaderboardEntry, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, leaderboardCacheKey).Result(); err == nil {
			var entries []dto.LeaderboardEntry
			if unmarshalErr := json.Unmarshal([]byte(cached), &entries); unmarshalErr == nil {
				s.log(ctx).Debug().Msg("leaderboard cache hit")
				return entries, nil
			}
		} else if err != redis.Nil {
			s.log(ctx).Warn().Err(err).Msg("failed to read leaderboard cache")
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]*dto.LeaderboardEntry)
	for _, submission := range submissions {
		email := strings.ToLower(strings.TrimSpace(submission.StudentEmail))
		if email == "" {
			continue
		}
		if _, skip := s.excluded[email]; skip {
			continue
		}

		entry, ok := byEmail[email]
		if !ok {
			entry = &dto.LeaderboardEntry{Email: email}
			byEmail[email] = entry
		}
		if entry.Name == "" {
			entry.Name = strings.TrimSpace(submission.StudentName)
		}
		entry.Total += submission.TotalScore()
		entry.TotalTime += submission.TotalTime
		entry.Days++
	}

	entries := make([]dto.LeaderboardEntry, 0, len(byEmail))
	for _, entry := range byEmail {
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		if entries[i].TotalTime != entries[j].TotalTime {
			return entries[i].TotalTime < entries[j].TotalTime
		}
		return entries[i].Email < entries[j].Email
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if s.cache != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			if err := s.cache.Set(ctx, leaderboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.log(ctx).Warn().Err(err).Msg("failed to store leaderboard cache")
			}
		}
	}

	return entries, nil
}

func (s *leaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		s.log(ctx).Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

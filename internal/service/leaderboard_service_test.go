package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
	"github.com/123123123123Sitar/dpotdquicktest/internal/repository"
)

type stubSubmissionLister struct {
	repository.SubmissionRepository
	submissions []models.Submission
	listCalls   int
}

func (s *stubSubmissionLister) List(context.Context, repository.SubmissionFilter) ([]models.Submission, error) {
	s.listCalls++
	return s.submissions, nil
}

func intPtr(v int) *int {
	return &v
}

func TestLeaderboardAggregatesAndSorts(t *testing.T) {
	repo := &stubSubmissionLister{submissions: []models.Submission{
		{StudentEmail: "Alice@Example.com", StudentName: "Alice", Q1Correct: true, Q2Correct: true, Q3Score: intPtr(5), TotalTime: 300},
		{StudentEmail: "alice@example.com", Q1Correct: true, TotalTime: 200},
		{StudentEmail: "bob@example.com", StudentName: "Bob", Q1Correct: true, Q2Correct: true, Q3Score: intPtr(9), TotalTime: 400},
		{StudentEmail: "carol@example.com", StudentName: "Carol", Q1Correct: true, Q2Correct: true, Q3Score: intPtr(9), TotalTime: 100},
		{StudentEmail: "dave@example.com", StudentName: "Dave", Q2Correct: true, Q3Score: intPtr(9), TotalTime: 100},
		{StudentEmail: "erin@example.com", StudentName: "Erin", Q2Correct: true, Q3Score: intPtr(9), TotalTime: 100},
		{StudentEmail: "admin@example.com", Q1Correct: true, Q2Correct: true, Q3Score: intPtr(10)},
	}}

	svc := NewLeaderboardService(repo, nil, time.Minute, []string{" ADMIN@example.com "}, testLogger())
	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 5)

	require.Equal(t, "carol@example.com", entries[0].Email)
	require.Equal(t, 19, entries[0].Total)
	require.Equal(t, "bob@example.com", entries[1].Email)
	require.Equal(t, "alice@example.com", entries[2].Email)
	require.Equal(t, 19, entries[2].Total)
	require.Equal(t, 500, entries[2].TotalTime)
	require.Equal(t, 2, entries[2].Days)
	require.Equal(t, "Alice", entries[2].Name)
	require.Equal(t, "dave@example.com", entries[3].Email)
	require.Equal(t, "erin@example.com", entries[4].Email)

	for i, entry := range entries {
		require.Equal(t, i+1, entry.Rank)
	}
}

func TestLeaderboardUsesRedisCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	repo := &stubSubmissionLister{submissions: []models.Submission{
		{StudentEmail: "a@example.com", Q1Correct: true},
	}}
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc := NewLeaderboardService(repo, client, time.Minute, nil, testLogger())

	first, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	second, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.listCalls)
	require.True(t, mini.Exists("leaderboard:all"))

	svc.Invalidate(context.Background())
	require.False(t, mini.Exists("leaderboard:all"))

	_, err = svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.listCalls)
}

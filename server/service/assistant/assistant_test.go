package assistant

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/stridesense/internal/profile"
	"github.com/hrygo/stridesense/plugin/ai"
	"github.com/hrygo/stridesense/plugin/strava"
	qerr "github.com/hrygo/stridesense/internal/errors"
	"github.com/hrygo/stridesense/store"
	storetest "github.com/hrygo/stridesense/store/test"
)

type fakeSource struct {
	index      *strava.ActivityIndex
	stats      *strava.AthleteStats
	fetchErr   error
	details    map[int64]*strava.DetailedActivity
	detailErr  map[int64]error
	detailHits int32
}

func (f *fakeSource) GetAthleteStats(ctx context.Context, accessToken string, athleteID int64) (*strava.AthleteStats, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.stats, nil
}

func (f *fakeSource) GetHistorySummary(ctx context.Context, accessToken string) (*strava.ActivityIndex, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.index, nil
}

func (f *fakeSource) GetActivityDetail(ctx context.Context, accessToken string, activityID int64) (*strava.DetailedActivity, error) {
	atomic.AddInt32(&f.detailHits, 1)
	if err, ok := f.detailErr[activityID]; ok {
		return nil, err
	}
	if detail, ok := f.details[activityID]; ok {
		return detail, nil
	}
	return &strava.DetailedActivity{ID: activityID}, nil
}

func (f *fakeSource) GetSegmentDetail(ctx context.Context, accessToken string, segmentID int64) (*strava.SegmentDetail, error) {
	return &strava.SegmentDetail{ID: segmentID, Name: "Fake Segment"}, nil
}

func (f *fakeSource) GetSegmentLeaderboard(ctx context.Context, accessToken string, segmentID int64) (*strava.Leaderboard, error) {
	return &strava.Leaderboard{EntryCount: 0}, nil
}

func (f *fakeSource) GetSegmentHistory(ctx context.Context, accessToken string, segmentID int64, perPage int) ([]strava.EffortSummary, error) {
	return nil, nil
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) GetValidToken(ctx context.Context, userID int32) (string, error) {
	return f.token, f.err
}

type fakeLLM struct {
	configured bool
	response   string
	err        error
	calls      int32
	lastPrompt string
}

func (f *fakeLLM) IsConfigured() bool {
	return f.configured
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts *ai.GenerateOptions) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testIndex(now time.Time, days int) *strava.ActivityIndex {
	records := make([]*strava.ActivityRecord, 0, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i)
		records = append(records, &strava.ActivityRecord{
			ID:        int64(i + 1),
			Name:      fmt.Sprintf("Morning Run %d", i+1),
			Type:      "Run",
			StartTime: day,
			Date:      strava.DateKey(day),
		})
	}
	return strava.BuildIndex(records)
}

func newTestService(t *testing.T, source *fakeSource, llm *fakeLLM) (*Service, int32) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	athlete, err := ts.UpsertAthlete(ctx, &store.UpsertAthlete{AthleteID: 555, FirstName: "Casey"})
	require.NoError(t, err)

	svc := NewService(
		&profile.Profile{Mode: "dev"},
		ts,
		source,
		&fakeTokens{token: "test-token"},
		llm,
		nil,
	)
	return svc, athlete.ID
}

func TestAnswerQuestionHappyPath(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	source := &fakeSource{index: testIndex(now, 3), stats: &strava.AthleteStats{}}
	llm := &fakeLLM{configured: true, response: "You ran three times."}
	svc, userID := newTestService(t, source, llm)

	answer, err := svc.AnswerQuestion(ctx, userID, "tell me about my recent workouts")
	require.NoError(t, err)
	assert.Equal(t, "You ran three times.", answer.Answer)
	assert.False(t, answer.Cached)
	assert.NotEmpty(t, answer.Strategy)

	t.Run("second identical question is served from cache", func(t *testing.T) {
		again, err := svc.AnswerQuestion(ctx, userID, "tell me about my recent workouts")
		require.NoError(t, err)
		assert.True(t, again.Cached)
		assert.Equal(t, "You ran three times.", again.Answer)
		assert.Equal(t, int32(1), atomic.LoadInt32(&llm.calls), "cache hit must not call the model")
	})
}

func TestAnswerQuestionRateLimitedAdvisory(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{fetchErr: strava.ErrRateLimited}
	llm := &fakeLLM{configured: true}
	svc, userID := newTestService(t, source, llm)

	answer, err := svc.AnswerQuestion(ctx, userID, "how far did I run last week")
	require.NoError(t, err, "rate limiting is advisory, not an error")
	assert.Equal(t, systemAlertModel, answer.Model)
	assert.Contains(t, answer.Answer, "Rate Limit")
	assert.Equal(t, int32(0), atomic.LoadInt32(&llm.calls))
}

func TestAnswerQuestionUpstreamUnauthorized(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{fetchErr: strava.ErrUnauthorized}
	llm := &fakeLLM{configured: true}
	svc, userID := newTestService(t, source, llm)

	_, err := svc.AnswerQuestion(ctx, userID, "how far did I run last week")
	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.ErrCodeReauthRequired))
}

func TestAnswerQuestionEnrichmentPartialFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	source := &fakeSource{
		index: testIndex(now, 3),
		stats: &strava.AthleteStats{},
		details: map[int64]*strava.DetailedActivity{
			1: {
				ID:          1,
				Name:        "Morning Run 1",
				PrivateNote: "felt great",
				SegmentEfforts: []strava.SegmentEffortDetail{
					{
						ID:          901,
						ElapsedTime: 125,
						StartDate:   now,
						Segment:     strava.SegmentCore{ID: 42, Name: "Park Loop", Distance: 800},
					},
				},
			},
		},
		detailErr: map[int64]error{2: errors.New("boom")},
	}
	llm := &fakeLLM{configured: true, response: "answered"}
	svc, userID := newTestService(t, source, llm)

	answer, err := svc.AnswerQuestion(ctx, userID, "what did my notes say this week")
	require.NoError(t, err, "one failed detail fetch must not fail the question")
	assert.Equal(t, "answered", answer.Answer)

	// The successfully enriched record made it into the prompt.
	assert.Contains(t, llm.lastPrompt, "felt great")
	assert.Contains(t, llm.lastPrompt, "Park Loop")
	assert.Contains(t, llm.lastPrompt, "2:05")

	// Segments from the enriched activity were persisted.
	segment, serr := svc.store.GetSegment(ctx, &store.FindSegment{ID: ptrInt64(42)})
	require.NoError(t, serr)
	require.NotNil(t, segment)
	assert.Equal(t, "Park Loop", segment.Name)
}

func TestAnswerQuestionContextTooLargeDegrades(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	source := &fakeSource{index: testIndex(now, 3), stats: &strava.AthleteStats{}}
	llm := &fakeLLM{configured: true, err: qerr.ContextTooLarge(errors.New("maximum context length exceeded"))}
	svc, userID := newTestService(t, source, llm)

	answer, err := svc.AnswerQuestion(ctx, userID, "list everything about all my training")
	require.NoError(t, err)
	assert.Equal(t, systemAlertModel, answer.Model)
	assert.Contains(t, answer.Answer, "too much data")
}

func TestAnswerQuestionUnconfiguredLLM(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	source := &fakeSource{index: testIndex(now, 3), stats: &strava.AthleteStats{}}
	llm := &fakeLLM{configured: false}
	svc, userID := newTestService(t, source, llm)

	_, err := svc.AnswerQuestion(ctx, userID, "how is my training going")
	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.ErrCodeConfig))
}

func TestAnswerQuestionTokenFailurePropagates(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	athlete, err := ts.UpsertAthlete(ctx, &store.UpsertAthlete{AthleteID: 556})
	require.NoError(t, err)

	svc := NewService(
		&profile.Profile{Mode: "dev"},
		ts,
		&fakeSource{},
		&fakeTokens{err: qerr.ReauthRequired("no stored credential", nil)},
		&fakeLLM{configured: true},
		nil,
	)

	_, err = svc.AnswerQuestion(ctx, athlete.ID, "any question")
	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.ErrCodeReauthRequired))
}

func TestDetermineQueryType(t *testing.T) {
	assert.Equal(t, "aggregate", DetermineQueryType("what is my total distance"))
	assert.Equal(t, "comparison", DetermineQueryType("2023 vs 2024 mileage"))
	assert.Equal(t, "analysis", DetermineQueryType("why am I slower this month"))
	assert.Equal(t, "general", DetermineQueryType("tell me about yesterday"))
}

func ptrInt64(v int64) *int64 {
	return &v
}

// Package assistant orchestrates the question answering pipeline: token,
// activity context, optimization, enrichment, and the LLM call.
package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/stridesense/internal/profile"
	"github.com/hrygo/stridesense/plugin/ai"
	"github.com/hrygo/stridesense/plugin/strava"
	qerr "github.com/hrygo/stridesense/internal/errors"
	"github.com/hrygo/stridesense/server/internal/observability"
	"github.com/hrygo/stridesense/server/queryengine"
	"github.com/hrygo/stridesense/store"
)

// advisoryRateLimitAnswer is returned with a normal response when Strava
// throttles the bulk fetch; the user gets guidance instead of an error page.
const advisoryRateLimitAnswer = "**Strava API Rate Limit Reached**\n\n" +
	"Strava is currently limiting requests, likely during a full history sync. " +
	"Please try again in approximately 15 minutes.\n\n" +
	"*System Note: further upstream requests are paused to avoid API bans.*"

// degradedContextAnswer is returned when even the narrowed context exceeds
// the model limit.
const degradedContextAnswer = "I apologize, but the query requires too much data to process at once. " +
	"Please try a more specific question or a shorter time range."

// systemAlertModel marks answers produced by the pipeline itself.
const systemAlertModel = "system-alert"

// ActivitySource is the upstream activity API surface the pipeline consumes.
type ActivitySource interface {
	GetAthleteStats(ctx context.Context, accessToken string, athleteID int64) (*strava.AthleteStats, error)
	GetHistorySummary(ctx context.Context, accessToken string) (*strava.ActivityIndex, error)
	GetActivityDetail(ctx context.Context, accessToken string, activityID int64) (*strava.DetailedActivity, error)
	GetSegmentDetail(ctx context.Context, accessToken string, segmentID int64) (*strava.SegmentDetail, error)
	GetSegmentLeaderboard(ctx context.Context, accessToken string, segmentID int64) (*strava.Leaderboard, error)
	GetSegmentHistory(ctx context.Context, accessToken string, segmentID int64, perPage int) ([]strava.EffortSummary, error)
}

// TokenProvider hands out valid upstream access tokens.
type TokenProvider interface {
	GetValidToken(ctx context.Context, userID int32) (string, error)
}

// AnswerGenerator produces the final natural language answer.
type AnswerGenerator interface {
	IsConfigured() bool
	Generate(ctx context.Context, prompt string, opts *ai.GenerateOptions) (string, error)
}

// Answer is the result of one question.
type Answer struct {
	Answer   string                   `json:"answer"`
	Model    string                   `json:"model,omitempty"`
	Cached   bool                     `json:"cached,omitempty"`
	Strategy queryengine.StrategyKind `json:"strategy,omitempty"`
}

// Service wires the pipeline collaborators together.
type Service struct {
	profile   *profile.Profile
	store     *store.Store
	source    ActivitySource
	tokens    TokenProvider
	llm       AnswerGenerator
	optimizer *queryengine.Optimizer
	cache     *strava.IndexCache
}

// NewService creates the assistant service.
func NewService(p *profile.Profile, s *store.Store, source ActivitySource, tokens TokenProvider, llm AnswerGenerator, optimizerConfig *queryengine.Config) *Service {
	return &Service{
		profile:   p,
		store:     s,
		source:    source,
		tokens:    tokens,
		llm:       llm,
		optimizer: queryengine.NewOptimizer(optimizerConfig),
		cache:     strava.NewIndexCache(0, 0),
	}
}

// AnswerQuestion runs the full pipeline for one question.
func (s *Service) AnswerQuestion(ctx context.Context, userID int32, question string) (*Answer, error) {
	logCtx, ok := observability.FromContext(ctx)
	if !ok {
		logCtx = observability.NewRequestContext(slog.Default(), "assistant", userID)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, qerr.Wrap(nil, qerr.ErrCodeInternal, "question is empty")
	}

	accessToken, err := s.tokens.GetValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	athlete, err := s.store.GetAthlete(ctx, &store.FindAthlete{ID: &userID})
	if err != nil {
		return nil, qerr.Wrap(err, qerr.ErrCodeInternal, "failed to load athlete")
	}
	if athlete == nil {
		return nil, qerr.Unauthenticated("unknown athlete")
	}

	index, stats, err := s.activityContext(ctx, accessToken, athlete.AthleteID)
	if err != nil {
		if errors.Is(err, strava.ErrRateLimited) {
			logCtx.Warn("upstream rate limited, returning advisory answer")
			return &Answer{Answer: advisoryRateLimitAnswer, Model: systemAlertModel}, nil
		}
		if errors.Is(err, strava.ErrUnauthorized) {
			return nil, qerr.ReauthRequired("upstream rejected the access token", err)
		}
		return nil, qerr.Upstream("failed to fetch activity data", err)
	}

	optimized := s.optimizer.Optimize(question, index, stats)
	logCtx.Info("context optimized",
		slog.String(observability.LogFieldStrategy, string(optimized.Strategy)),
		slog.Int("activity_count", len(optimized.RelevantActivities)),
	)

	mentioned := s.collectMentionedSegments(ctx, logCtx, accessToken, question)
	s.enrichActivities(ctx, logCtx, accessToken, question, optimized)

	prompt := buildPrompt(question, optimized, mentioned)
	promptHash := hashPrompt(prompt)

	if cached, err := s.store.GetAnswerCache(ctx, promptHash); err != nil {
		logCtx.Error("answer cache lookup failed", err)
	} else if cached != nil {
		logCtx.Info("returning cached answer")
		return &Answer{Answer: cached.Response, Cached: true, Strategy: optimized.Strategy}, nil
	}

	if !s.llm.IsConfigured() {
		return nil, qerr.Config("no LLM API key configured")
	}

	answerText, err := s.llm.Generate(ctx, prompt, &ai.GenerateOptions{
		System:        systemInstruction,
		Temperature:   0.3,
		MaxTokens:     2000,
		QueryTypeHint: DetermineQueryType(question),
	})
	if err != nil {
		if qerr.IsCode(err, qerr.ErrCodeContextTooLarge) {
			logCtx.Warn("context too large even after narrowing, degrading answer")
			return &Answer{Answer: degradedContextAnswer, Model: systemAlertModel, Strategy: optimized.Strategy}, nil
		}
		return nil, err
	}

	if _, err := s.store.UpsertAnswerCache(ctx, &store.AnswerCache{PromptHash: promptHash, Response: answerText}); err != nil {
		logCtx.Error("failed to cache answer", err)
	}

	logCtx.Info("answer generated", slog.Int64(observability.LogFieldDuration, logCtx.DurationMs()))
	return &Answer{Answer: answerText, Strategy: optimized.Strategy}, nil
}

// activityContext returns the athlete's index and stats, from cache when
// fresh, otherwise fetched in parallel and cached.
func (s *Service) activityContext(ctx context.Context, accessToken string, athleteID int64) (*strava.ActivityIndex, *strava.AthleteStats, error) {
	if index, stats, ok := s.cache.Get(athleteID); ok {
		return index, stats, nil
	}

	var (
		index *strava.ActivityIndex
		stats *strava.AthleteStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.source.GetAthleteStats(gctx, accessToken, athleteID)
		return err
	})
	g.Go(func() error {
		var err error
		index, err = s.source.GetHistorySummary(gctx, accessToken)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	s.cache.Set(athleteID, index, stats)
	return index, stats, nil
}

// InvalidateContext drops the cached index for an athlete, forcing the next
// question to refetch.
func (s *Service) InvalidateContext(athleteID int64) {
	s.cache.Invalidate(athleteID)
}

package assistant

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/stridesense/plugin/strava"
	"github.com/hrygo/stridesense/server/internal/observability"
	"github.com/hrygo/stridesense/store"
)

// segmentURLPattern matches pasted segment links or explicit segment IDs.
var segmentURLPattern = regexp.MustCompile(`segments/(\d+)`)

// leaderboardVocabulary triggers a leaderboard fetch for a mentioned segment.
var leaderboardVocabulary = []string{"cr", "kom", "qom", "leader", "fastest", "rank", "who"}

// historyVocabulary triggers a full effort history fetch for a mentioned segment.
var historyVocabulary = []string{"list", "history", "all times", "previous times", "efforts", "past"}

const (
	leaderboardTopEntries = 3
	historyPerPage        = 30
)

// MentionedSegment is the context block injected for a segment the question
// names directly.
type MentionedSegment struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Details *SegmentDetails `json:"details,omitempty"`

	Leaderboard *SegmentLeaderboard `json:"leaderboard,omitempty"`
	History     []SegmentHistoryRow `json:"history,omitempty"`

	// RecentDBEfforts are the stored personal bests, fastest first.
	RecentDBEfforts []SegmentEffortRow `json:"recent_db_efforts,omitempty"`
}

// SegmentDetails is the authoritative upstream record subset.
type SegmentDetails struct {
	Distance        float64               `json:"distance,omitempty"`
	AverageGrade    float64               `json:"average_grade,omitempty"`
	AthletePREffort *strava.EffortSummary `json:"athlete_pr_effort,omitempty"`
}

// SegmentLeaderboard is the truncated leaderboard view.
type SegmentLeaderboard struct {
	TopEntries []strava.LeaderboardEntry `json:"top_entries"`
	EntryCount int                       `json:"entry_count"`
}

// SegmentHistoryRow is one upstream effort in the history listing.
type SegmentHistoryRow struct {
	Date           string `json:"date"`
	ElapsedSeconds int64  `json:"elapsed_time_seconds"`
	MovingSeconds  int64  `json:"moving_time_seconds"`
	Rank           *int32 `json:"rank,omitempty"`
}

// SegmentEffortRow is one stored effort.
type SegmentEffortRow struct {
	Date           string `json:"date"`
	ElapsedSeconds int64  `json:"elapsed_time_seconds"`
	PRRank         *int32 `json:"pr_rank,omitempty"`
}

// collectMentionedSegments finds segments the question names, by stored name
// substring or pasted URL, and assembles their context blocks. Every failure
// here is auxiliary: logged and skipped, never failing the question.
func (s *Service) collectMentionedSegments(ctx context.Context, logCtx *observability.RequestContext, accessToken, question string) []*MentionedSegment {
	questionLower := strings.ToLower(question)

	type candidate struct {
		id   int64
		name string
	}
	candidates := []candidate{}

	known, err := s.store.ListSegments(ctx, &store.FindSegment{})
	if err != nil {
		logCtx.Error("segment lookup failed", err)
	} else {
		for _, segment := range known {
			if segment.Name != "" && strings.Contains(questionLower, strings.ToLower(segment.Name)) {
				candidates = append(candidates, candidate{id: segment.ID, name: segment.Name})
			}
		}
	}

	if m := segmentURLPattern.FindStringSubmatch(question); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			duplicate := false
			for _, c := range candidates {
				if c.id == id {
					duplicate = true
					break
				}
			}
			if !duplicate {
				candidates = append(candidates, candidate{id: id, name: ""})
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	wantsLeaderboard := containsAnyWord(questionLower, leaderboardVocabulary)
	wantsHistory := containsAnyWord(questionLower, historyVocabulary)

	mentioned := make([]*MentionedSegment, 0, len(candidates))
	for _, c := range candidates {
		block := &MentionedSegment{ID: c.id, Name: c.name}

		if detail, err := s.source.GetSegmentDetail(ctx, accessToken, c.id); err != nil {
			logCtx.Warn("segment detail fetch failed",
				slog.Int64("segment_id", c.id), slog.String("error", err.Error()))
		} else {
			if block.Name == "" {
				block.Name = detail.Name
			}
			block.Details = &SegmentDetails{
				Distance:        detail.Distance,
				AverageGrade:    detail.AverageGrade,
				AthletePREffort: detail.AthletePREffort,
			}
		}

		if wantsLeaderboard {
			if leaderboard, err := s.source.GetSegmentLeaderboard(ctx, accessToken, c.id); err != nil {
				logCtx.Warn("segment leaderboard fetch failed",
					slog.Int64("segment_id", c.id), slog.String("error", err.Error()))
			} else {
				entries := leaderboard.Entries
				if len(entries) > leaderboardTopEntries {
					entries = entries[:leaderboardTopEntries]
				}
				block.Leaderboard = &SegmentLeaderboard{
					TopEntries: entries,
					EntryCount: leaderboard.EntryCount,
				}
			}
		}

		if wantsHistory {
			if history, err := s.source.GetSegmentHistory(ctx, accessToken, c.id, historyPerPage); err != nil {
				logCtx.Warn("segment history fetch failed",
					slog.Int64("segment_id", c.id), slog.String("error", err.Error()))
			} else {
				for _, effort := range history {
					rank := effort.KOMRank
					if rank == nil {
						rank = effort.PRRank
					}
					block.History = append(block.History, SegmentHistoryRow{
						Date:           effort.StartDateLocal.Format("2006-01-02"),
						ElapsedSeconds: effort.ElapsedTime,
						MovingSeconds:  effort.MovingTime,
						Rank:           rank,
					})
				}
			}
		}

		if best, err := s.store.BestSegmentEfforts(ctx, c.id); err != nil {
			logCtx.Error("stored effort lookup failed", err, slog.Int64("segment_id", c.id))
		} else {
			for _, effort := range best {
				block.RecentDBEfforts = append(block.RecentDBEfforts, SegmentEffortRow{
					Date:           time.Unix(effort.StartTs, 0).UTC().Format("2006-01-02"),
					ElapsedSeconds: effort.ElapsedTime,
					PRRank:         effort.PRRank,
				})
			}
		}

		mentioned = append(mentioned, block)
	}

	logCtx.Info("segments mentioned in question", slog.Int("segment_count", len(mentioned)))
	return mentioned
}

// containsAnyWord checks substring containment for any of the phrases.
func containsAnyWord(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/stridesense/plugin/strava"
	"github.com/hrygo/stridesense/server/internal/observability"
	"github.com/hrygo/stridesense/server/queryengine"
	"github.com/hrygo/stridesense/store"
)

const (
	// enrichmentCap bounds detail fetches per question to stay inside the
	// upstream 15-minute quota.
	enrichmentCap = 5
	// segmentSummaryCap bounds how many segment efforts one enriched record
	// carries into the prompt.
	segmentSummaryCap = 15
)

// enrichmentVocabulary marks questions that need note, description or segment
// detail beyond the condensed record.
var enrichmentVocabulary = []string{
	"note", "desc", "pain", "detail", "mention", "say", "with", "segment",
}

// enrichActivities upgrades the most relevant records in the optimized
// context with notes, descriptions and segment times. Individual fetch
// failures only skip that record. The cached index is never mutated: each
// enriched record replaces its slice entry with a copy.
func (s *Service) enrichActivities(ctx context.Context, logCtx *observability.RequestContext, accessToken, question string, optimized *queryengine.OptimizedContext) {
	relevant := optimized.RelevantActivities
	if len(relevant) == 0 {
		return
	}

	questionLower := strings.ToLower(question)
	needsEnrichment := false
	for _, word := range enrichmentVocabulary {
		if strings.Contains(questionLower, word) {
			needsEnrichment = true
			break
		}
	}
	// Small candidate sets are cheap enough to always enrich.
	if !needsEnrichment && len(relevant) > enrichmentCap {
		return
	}

	ranked := queryengine.RankByRelevance(question, relevant)
	toEnrich := ranked
	if len(toEnrich) > enrichmentCap {
		toEnrich = toEnrich[:enrichmentCap]
	}

	var mu sync.Mutex
	enriched := make(map[int64]*strava.ActivityRecord, len(toEnrich))

	g, gctx := errgroup.WithContext(ctx)
	for _, record := range toEnrich {
		record := record
		g.Go(func() error {
			detail, err := s.source.GetActivityDetail(gctx, accessToken, record.ID)
			if err != nil {
				logCtx.Warn("enrichment fetch failed, keeping condensed record",
					slog.Int64("activity_id", record.ID),
					slog.String("error", err.Error()),
				)
				// Partial failure tolerance: never fail the group.
				return nil
			}

			mu.Lock()
			enriched[record.ID] = mergeDetail(record, detail)
			mu.Unlock()

			if err := s.persistActivitySegments(gctx, detail); err != nil {
				logCtx.Error("failed to persist activity segments", err,
					slog.Int64("activity_id", record.ID))
			}
			return nil
		})
	}
	// Workers swallow their own errors.
	_ = g.Wait()

	if len(enriched) == 0 {
		return
	}

	out := make([]*strava.ActivityRecord, len(relevant))
	for i, record := range relevant {
		if e, ok := enriched[record.ID]; ok {
			out[i] = e
		} else {
			out[i] = record
		}
	}
	optimized.RelevantActivities = out

	logCtx.Info("activities enriched", slog.Int("enriched_count", len(enriched)))
}

// mergeDetail copies a condensed record and fills in the detail fields.
func mergeDetail(record *strava.ActivityRecord, detail *strava.DetailedActivity) *strava.ActivityRecord {
	merged := *record
	if detail.Name != "" {
		merged.Name = detail.Name
	}
	merged.PrivateNote = detail.PrivateNote
	merged.Description = detail.Description

	efforts := detail.SegmentEfforts
	if len(efforts) > segmentSummaryCap {
		efforts = efforts[:segmentSummaryCap]
	}
	merged.Segments = make([]strava.SegmentSummary, 0, len(efforts))
	for _, effort := range efforts {
		merged.Segments = append(merged.Segments, strava.SegmentSummary{
			ID:          effort.Segment.ID,
			Name:        effort.Segment.Name,
			ElapsedTime: formatElapsed(effort.ElapsedTime),
		})
	}
	return &merged
}

// persistActivitySegments stores every segment and effort a detailed activity
// revealed, transactionally.
func (s *Service) persistActivitySegments(ctx context.Context, detail *strava.DetailedActivity) error {
	if len(detail.SegmentEfforts) == 0 {
		return nil
	}

	upsert := &store.UpsertActivitySegments{ActivityID: detail.ID}
	seen := make(map[int64]bool, len(detail.SegmentEfforts))
	for _, effort := range detail.SegmentEfforts {
		if !seen[effort.Segment.ID] {
			seen[effort.Segment.ID] = true
			upsert.Segments = append(upsert.Segments, &store.Segment{
				ID:           effort.Segment.ID,
				Name:         effort.Segment.Name,
				Distance:     effort.Segment.Distance,
				AverageGrade: effort.Segment.AverageGrade,
				City:         effort.Segment.City,
			})
		}
		upsert.Efforts = append(upsert.Efforts, &store.SegmentEffort{
			ID:          effort.ID,
			SegmentID:   effort.Segment.ID,
			ActivityID:  detail.ID,
			ElapsedTime: effort.ElapsedTime,
			MovingTime:  effort.MovingTime,
			StartTs:     effort.StartDate.Unix(),
			KOMRank:     effort.KOMRank,
			PRRank:      effort.PRRank,
		})
	}
	return s.store.UpsertActivitySegments(ctx, upsert)
}

// formatElapsed renders seconds as M:SS.
func formatElapsed(seconds int64) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

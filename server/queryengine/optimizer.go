package queryengine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hrygo/stridesense/plugin/strava"
)

// StrategyKind identifies how the optimizer shaped the context.
type StrategyKind string

const (
	// StrategySummaryOnly answers aggregate questions from rollups alone.
	StrategySummaryOnly StrategyKind = "summary_only"
	// StrategyFullDetails includes every record matching the question window.
	StrategyFullDetails StrategyKind = "full_details"
	// StrategySpecificDate includes only the records of one calendar date.
	StrategySpecificDate StrategyKind = "specific_date"
	// StrategyLimitedRecent truncates an over-budget window to what fits.
	StrategyLimitedRecent StrategyKind = "limited_recent"
	// StrategySummaryPlusRecent falls back to rollups plus the last 30 days.
	StrategySummaryPlusRecent StrategyKind = "summary_plus_recent"
)

// detailVocabulary marks questions that need per-activity records. Matching is
// substring containment, so "on" also fires inside words like "long"; that
// looseness errs toward providing detail and is kept on purpose.
var detailVocabulary = []string{
	"activity", "activities", "run", "ride", "workout", "training",
	"on", "date", "day", "specific", "list", "show", "what did",
}

// aggregateVocabulary marks questions answerable from rollups alone.
var aggregateVocabulary = []string{
	"total", "sum", "average", "compare", "statistics", "stats",
	"how many", "how much", "total distance", "total time",
}

// OptimizedContext is the context package handed to the language model. The
// year rollups and stats are always present; the remaining fields depend on
// the chosen strategy.
type OptimizedContext struct {
	Strategy            StrategyKind              `json:"strategy"`
	Note                string                    `json:"note,omitempty"`
	SummaryByYear       map[int]*strava.YearRollup `json:"summary_by_year"`
	Stats               *strava.AthleteStats      `json:"stats"`
	RelevantActivities  []*strava.ActivityRecord  `json:"relevant_activities,omitempty"`
	ActivityCount       int                       `json:"activity_count,omitempty"`
	EstimatedTokens     int                       `json:"estimated_tokens,omitempty"`
	TotalAvailable      int                       `json:"total_available,omitempty"`
	RecentActivityCount int                       `json:"recent_activity_count,omitempty"`
}

// Optimizer selects the cheapest context that can still answer a question.
type Optimizer struct {
	config *Config

	// nowFunc is swappable so range resolution is deterministic in tests.
	nowFunc func() time.Time
}

// NewOptimizer creates an optimizer with the given budget configuration.
func NewOptimizer(config *Config) *Optimizer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Optimizer{
		config:  config,
		nowFunc: time.Now,
	}
}

// estimateTokens approximates token cost as compact JSON length over four.
func estimateTokens(data any) int {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0
	}
	return len(raw) / 4
}

// Optimize builds the context package for a question over an activity index.
// It never fails: when the full window exceeds the budget it degrades through
// narrower strategies instead of returning an error.
func (o *Optimizer) Optimize(question string, index *strava.ActivityIndex, stats *strava.AthleteStats) *OptimizedContext {
	questionLower := strings.ToLower(question)
	now := o.nowFunc()

	optimized := &OptimizedContext{
		SummaryByYear: index.ByYear,
		Stats:         stats,
	}

	dateRange := ResolveDateRange(questionLower, now)

	needsDetails := containsAny(questionLower, detailVocabulary)
	isAggregate := containsAny(questionLower, aggregateVocabulary)

	// Aggregates without a detail cue are answerable from rollups alone.
	if isAggregate && !needsDetails {
		optimized.Strategy = StrategySummaryOnly
		optimized.Note = "Using summary data for aggregate query"
		return optimized
	}

	var relevant []*strava.ActivityRecord
	if dateRange != nil {
		relevant = index.RecordsInRange(dateRange.Start, dateRange.End)
	} else {
		relevant = index.AllRecords()
	}

	baseTokens := estimateTokens(optimized)
	activityTokens := len(relevant) * o.config.TokensPerActivity
	totalEstimated := baseTokens + activityTokens + o.config.TokenOverhead

	if totalEstimated < o.config.MaxContextTokens {
		optimized.RelevantActivities = relevant
		optimized.Strategy = StrategyFullDetails
		optimized.ActivityCount = len(relevant)
		optimized.EstimatedTokens = totalEstimated
		return optimized
	}

	// Over budget. Narrow to a single date when the question points at one.
	if strings.Contains(questionLower, "on") || strings.Contains(questionLower, "date") {
		if parsed := ParseSpecificDate(questionLower, now); parsed != nil {
			dateKey := strava.DateKey(*parsed)
			if records := index.RecordsOnDate(dateKey); len(records) > 0 {
				optimized.RelevantActivities = records
				optimized.Strategy = StrategySpecificDate
				optimized.Note = fmt.Sprintf("Showing activities for %s only", dateKey)
				return optimized
			}
		}
	}

	// With a date range, keep the most recent records that still fit.
	if dateRange != nil {
		sorted := make([]*strava.ActivityRecord, len(relevant))
		copy(sorted, relevant)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].StartTime.After(sorted[j].StartTime)
		})

		maxActivities := (o.config.MaxContextTokens - baseTokens - o.config.TokenOverhead) / o.config.TokensPerActivity
		if maxActivities < 0 {
			maxActivities = 0
		}
		if maxActivities > len(sorted) {
			maxActivities = len(sorted)
		}

		optimized.RelevantActivities = sorted[:maxActivities]
		optimized.Strategy = StrategyLimitedRecent
		optimized.Note = fmt.Sprintf("Showing %d most recent activities from date range", maxActivities)
		optimized.TotalAvailable = len(sorted)
		return optimized
	}

	// Last resort: rollups for everything, details for recent days only.
	recent := index.RecentRecords(o.config.RecentDetailDays)
	optimized.RelevantActivities = recent
	optimized.Strategy = StrategySummaryPlusRecent
	optimized.Note = fmt.Sprintf("Using year summaries + recent %d days of activities. For older data, summaries are available.", o.config.RecentDetailDays)
	optimized.RecentActivityCount = len(recent)
	return optimized
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

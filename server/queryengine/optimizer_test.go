package queryengine

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/stridesense/plugin/strava"
)

func testRecord(id int64, name string, start time.Time) *strava.ActivityRecord {
	return &strava.ActivityRecord{
		ID:            id,
		Name:          name,
		Type:          "Run",
		DistanceMiles: 5,
		StartTime:     start,
		Date:          strava.DateKey(start),
	}
}

// dailyIndex builds an index with one record per day counting back from start.
func dailyIndex(start time.Time, days int) *strava.ActivityIndex {
	records := make([]*strava.ActivityRecord, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, -i)
		records = append(records, testRecord(int64(i+1), fmt.Sprintf("Morning Run %d", i+1), day))
	}
	return strava.BuildIndex(records)
}

func newTestOptimizer(config *Config, now time.Time) *Optimizer {
	o := NewOptimizer(config)
	o.nowFunc = func() time.Time { return now }
	return o
}

func TestOptimizeSummaryOnly(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 10)
	o := newTestOptimizer(nil, now)

	ctx := o.Optimize("what is my total distance", index, &strava.AthleteStats{})

	assert.Equal(t, StrategySummaryOnly, ctx.Strategy)
	assert.Empty(t, ctx.RelevantActivities)
	assert.NotNil(t, ctx.SummaryByYear)
	assert.NotNil(t, ctx.Stats)
}

func TestOptimizeAggregateWithDetailCueKeepsDetails(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 10)
	o := newTestOptimizer(nil, now)

	// "list" is a detail cue, so the aggregate shortcut must not fire.
	ctx := o.Optimize("list my total runs", index, &strava.AthleteStats{})

	assert.NotEqual(t, StrategySummaryOnly, ctx.Strategy)
	assert.NotEmpty(t, ctx.RelevantActivities)
}

func TestOptimizeFullDetails(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 20)
	o := newTestOptimizer(nil, now)

	t.Run("whole history fits", func(t *testing.T) {
		ctx := o.Optimize("show me my workouts", index, &strava.AthleteStats{})

		assert.Equal(t, StrategyFullDetails, ctx.Strategy)
		assert.Len(t, ctx.RelevantActivities, 20)
		assert.Equal(t, 20, ctx.ActivityCount)
		assert.Greater(t, ctx.EstimatedTokens, 0)
		assert.Less(t, ctx.EstimatedTokens, DefaultConfig().MaxContextTokens)
	})

	t.Run("date range narrows the window", func(t *testing.T) {
		ctx := o.Optimize("show my workouts from the last 5 days", index, &strava.AthleteStats{})

		assert.Equal(t, StrategyFullDetails, ctx.Strategy)
		for _, record := range ctx.RelevantActivities {
			assert.False(t, record.StartTime.Before(now.Add(-5*24*time.Hour)))
		}
	})
}

func TestOptimizeSpecificDateFallback(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 100)
	config := &Config{
		MaxContextTokens:  1000,
		TokenOverhead:     500,
		TokensPerActivity: 50,
		RecentDetailDays:  30,
	}
	o := newTestOptimizer(config, now)

	ctx := o.Optimize("what did I do on June 1, 2025", index, &strava.AthleteStats{})

	require.Equal(t, StrategySpecificDate, ctx.Strategy)
	require.Len(t, ctx.RelevantActivities, 1)
	assert.Equal(t, "2025-06-01", ctx.RelevantActivities[0].Date)
	assert.Contains(t, ctx.Note, "2025-06-01")
}

func TestOptimizeLimitedRecent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 100)
	config := &Config{
		MaxContextTokens:  3000,
		TokenOverhead:     500,
		TokensPerActivity: 50,
		RecentDetailDays:  30,
	}
	o := newTestOptimizer(config, now)

	// A year mention pins a date range without naming a single day the
	// index has under "on"/"date" phrasing.
	ctx := o.Optimize("list my training in 2025", index, &strava.AthleteStats{})

	require.Equal(t, StrategyLimitedRecent, ctx.Strategy)
	assert.Equal(t, 100, ctx.TotalAvailable)
	require.NotEmpty(t, ctx.RelevantActivities)
	assert.Less(t, len(ctx.RelevantActivities), 100)

	for i := 1; i < len(ctx.RelevantActivities); i++ {
		prev := ctx.RelevantActivities[i-1].StartTime
		curr := ctx.RelevantActivities[i].StartTime
		assert.False(t, prev.Before(curr), "records must be most recent first")
	}
}

func TestOptimizeLimitedRecentClampsToZero(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 100)
	config := &Config{
		MaxContextTokens:  501,
		TokenOverhead:     500,
		TokensPerActivity: 50,
		RecentDetailDays:  30,
	}
	o := newTestOptimizer(config, now)

	ctx := o.Optimize("list my training in 2025", index, &strava.AthleteStats{})

	require.Equal(t, StrategyLimitedRecent, ctx.Strategy)
	assert.Empty(t, ctx.RelevantActivities)
	assert.Equal(t, 100, ctx.TotalAvailable)
}

func TestOptimizeSummaryPlusRecent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 100)
	config := &Config{
		MaxContextTokens:  1000,
		TokenOverhead:     500,
		TokensPerActivity: 50,
		RecentDetailDays:  30,
	}
	o := newTestOptimizer(config, now)

	// No date cue at all, so neither narrowing strategy applies.
	ctx := o.Optimize("tell me about my recent workouts", index, &strava.AthleteStats{})

	require.Equal(t, StrategySummaryPlusRecent, ctx.Strategy)
	assert.Equal(t, 30, ctx.RecentActivityCount)
	require.Len(t, ctx.RelevantActivities, 30)

	// Only records from the 30 most recent distinct dates survive.
	cutoff := strava.DateKey(now.AddDate(0, 0, -29))
	for _, record := range ctx.RelevantActivities {
		assert.GreaterOrEqual(t, record.Date, cutoff)
	}
	assert.NotNil(t, ctx.SummaryByYear, "rollups must remain for older data")
}

func TestOptimizeYearWindowOffUTC(t *testing.T) {
	zones := []struct {
		name string
		loc  *time.Location
	}{
		{"east of UTC", time.FixedZone("UTC+8", 8*60*60)},
		{"west of UTC", time.FixedZone("UTC-5", -5*60*60)},
	}

	for _, zone := range zones {
		t.Run(zone.name, func(t *testing.T) {
			now := time.Date(2022, 6, 15, 12, 0, 0, 0, zone.loc)
			index := strava.BuildIndex([]*strava.ActivityRecord{
				testRecord(1, "Prev Year Run", time.Date(2020, 12, 31, 9, 0, 0, 0, zone.loc)),
				testRecord(2, "In Year Run", time.Date(2021, 6, 1, 9, 0, 0, 0, zone.loc)),
				testRecord(3, "Next Year Run", time.Date(2022, 1, 1, 9, 0, 0, 0, zone.loc)),
			})
			o := newTestOptimizer(nil, now)

			ctx := o.Optimize("list my training in 2021", index, &strava.AthleteStats{})

			require.Equal(t, StrategyFullDetails, ctx.Strategy)
			require.Len(t, ctx.RelevantActivities, 1)
			assert.Equal(t, "In Year Run", ctx.RelevantActivities[0].Name)
		})
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	index := dailyIndex(now, 50)
	o := newTestOptimizer(nil, now)

	first := o.Optimize("show my runs from the last 2 weeks", index, &strava.AthleteStats{})
	second := o.Optimize("show my runs from the last 2 weeks", index, &strava.AthleteStats{})

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestEstimateTokens(t *testing.T) {
	tokens := estimateTokens(map[string]string{"key": "value"})
	// {"key":"value"} is 15 characters, so 3 tokens at 4 chars each.
	assert.Equal(t, 3, tokens)
}

package queryengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/stridesense/plugin/strava"
)

func TestRelevanceScore(t *testing.T) {
	record := &strava.ActivityRecord{
		Name:        "Boston Marathon",
		PrivateNote: "legs felt heavy after mile 20",
		Description: "perfect weather",
	}

	t.Run("each matching word scores ten", func(t *testing.T) {
		assert.Equal(t, 20, RelevanceScore("boston weather", record))
	})

	t.Run("stop words never score", func(t *testing.T) {
		// "run" appears nowhere, and the stop words would not count even
		// if they did match.
		assert.Equal(t, 0, RelevanceScore("what was the run", record))
	})

	t.Run("matching is case insensitive", func(t *testing.T) {
		assert.Equal(t, 10, RelevanceScore("BOSTON", record))
	})

	t.Run("note and description both count", func(t *testing.T) {
		assert.Equal(t, 20, RelevanceScore("heavy perfect", record))
	})
}

func TestRankByRelevance(t *testing.T) {
	older := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("higher score first", func(t *testing.T) {
		records := []*strava.ActivityRecord{
			{ID: 1, Name: "Easy Spin", StartTime: newer},
			{ID: 2, Name: "Hill Repeats", PrivateNote: "knee pain on the climbs", StartTime: older},
		}

		ranked := RankByRelevance("knee pain", records)
		require.Len(t, ranked, 2)
		assert.Equal(t, int64(2), ranked[0].ID)
	})

	t.Run("ties break toward recency", func(t *testing.T) {
		records := []*strava.ActivityRecord{
			{ID: 1, Name: "Tempo Intervals", StartTime: older},
			{ID: 2, Name: "Tempo Intervals", StartTime: newer},
		}

		ranked := RankByRelevance("tempo", records)
		assert.Equal(t, int64(2), ranked[0].ID)
		assert.Equal(t, int64(1), ranked[1].ID)
	})

	t.Run("fully tied records keep input order", func(t *testing.T) {
		same := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
		records := []*strava.ActivityRecord{
			{ID: 7, Name: "Recovery", StartTime: same},
			{ID: 8, Name: "Recovery", StartTime: same},
			{ID: 9, Name: "Recovery", StartTime: same},
		}

		ranked := RankByRelevance("recovery", records)
		assert.Equal(t, []int64{7, 8, 9}, []int64{ranked[0].ID, ranked[1].ID, ranked[2].ID})
	})

	t.Run("input slice is untouched", func(t *testing.T) {
		records := []*strava.ActivityRecord{
			{ID: 1, Name: "Easy Spin", StartTime: older},
			{ID: 2, Name: "Knee Strength", StartTime: newer},
		}

		_ = RankByRelevance("knee", records)
		assert.Equal(t, int64(1), records[0].ID)
	})
}

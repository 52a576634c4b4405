package queryengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDateRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("explicit single year", func(t *testing.T) {
		r := ResolveDateRange("how far did I ride in 2023", now)
		require.NotNil(t, r)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), r.End)
	})

	t.Run("year range spans min to max", func(t *testing.T) {
		r := ResolveDateRange("compare 2021 and 2023 mileage", now)
		require.NotNil(t, r)
		assert.Equal(t, 2021, r.Start.Year())
		assert.Equal(t, 2023, r.End.Year())
	})

	t.Run("explicit year beats all-time phrasing", func(t *testing.T) {
		r := ResolveDateRange("all activities in 2022", now)
		require.NotNil(t, r)
		assert.Equal(t, 2022, r.Start.Year())
		assert.Equal(t, 2022, r.End.Year())
	})

	t.Run("all-time phrases resolve to nil", func(t *testing.T) {
		for _, q := range []string{
			"show me everything",
			"my all time distance",
			"list all activities",
			"entire history",
			"complete log",
		} {
			assert.Nil(t, ResolveDateRange(q, now), "question: %s", q)
		}
	})

	t.Run("last year", func(t *testing.T) {
		r := ResolveDateRange("how was last year", now)
		require.NotNil(t, r)
		assert.Equal(t, 2024, r.Start.Year())
		assert.Equal(t, time.January, r.Start.Month())
		assert.Equal(t, 2024, r.End.Year())
		assert.Equal(t, time.December, r.End.Month())
	})

	t.Run("this year", func(t *testing.T) {
		r := ResolveDateRange("distance this year", now)
		require.NotNil(t, r)
		assert.Equal(t, 2025, r.Start.Year())
		assert.Equal(t, 2025, r.End.Year())
	})

	t.Run("last N months approximates 30 days each", func(t *testing.T) {
		r := ResolveDateRange("rides in the last 3 months", now)
		require.NotNil(t, r)
		assert.Equal(t, now, r.End)
		assert.Equal(t, now.Add(-90*24*time.Hour), r.Start)
	})

	t.Run("last N weeks", func(t *testing.T) {
		r := ResolveDateRange("what happened in the last 2 weeks", now)
		require.NotNil(t, r)
		assert.Equal(t, now.Add(-14*24*time.Hour), r.Start)
	})

	t.Run("last N days", func(t *testing.T) {
		r := ResolveDateRange("training over the last 10 days", now)
		require.NotNil(t, r)
		assert.Equal(t, now.Add(-10*24*time.Hour), r.Start)
	})

	t.Run("free text date collapses to one day", func(t *testing.T) {
		r := ResolveDateRange("what did I do on March 5", now)
		require.NotNil(t, r)
		assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, time.Date(2025, 3, 5, 23, 59, 59, 0, time.UTC), r.End)
	})

	t.Run("no date cue returns nil", func(t *testing.T) {
		assert.Nil(t, ResolveDateRange("how is my training going", now))
	})
}

func TestParseSpecificDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("month day with year", func(t *testing.T) {
		d := ParseSpecificDate("my ride on July 4, 2023", now)
		require.NotNil(t, d)
		assert.Equal(t, time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC), *d)
	})

	t.Run("month day without year is past biased", func(t *testing.T) {
		// July 4 has not happened yet relative to June 15, so it resolves
		// to the previous year.
		d := ParseSpecificDate("my ride on July 4", now)
		require.NotNil(t, d)
		assert.Equal(t, 2024, d.Year())

		d = ParseSpecificDate("my ride on March 5", now)
		require.NotNil(t, d)
		assert.Equal(t, 2025, d.Year())
	})

	t.Run("day month form", func(t *testing.T) {
		d := ParseSpecificDate("the run on 5th of March", now)
		require.NotNil(t, d)
		assert.Equal(t, time.March, d.Month())
		assert.Equal(t, 5, d.Day())
	})

	t.Run("iso form", func(t *testing.T) {
		d := ParseSpecificDate("activities on 2024-11-02", now)
		require.NotNil(t, d)
		assert.Equal(t, time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC), *d)
	})

	t.Run("slash form", func(t *testing.T) {
		d := ParseSpecificDate("the ride on 3/14/2024", now)
		require.NotNil(t, d)
		assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), *d)
	})

	t.Run("bare ordinal is not a date", func(t *testing.T) {
		assert.Nil(t, ParseSpecificDate("the 16th running of the club race", now))
		assert.Nil(t, ParseSpecificDate("I finished 3rd overall", now))
	})

	t.Run("impossible date is rejected", func(t *testing.T) {
		assert.Nil(t, ParseSpecificDate("the ride on 2024-02-31", now))
	})

	t.Run("plain text has no date", func(t *testing.T) {
		assert.Nil(t, ParseSpecificDate("how do I improve my climbing", now))
	})
}

package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/stridesense/store"
)

func int32Ptr(v int32) *int32 {
	return &v
}

func TestUpsertActivitySegments(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	upsert := &store.UpsertActivitySegments{
		ActivityID: 9001,
		Segments: []*store.Segment{
			{ID: 100, Name: "College Hill Climb", Distance: 1200, AverageGrade: 8.5, City: "Providence"},
			{ID: 101, Name: "River Road Sprint", Distance: 600, AverageGrade: 0.4, City: "Providence"},
		},
		Efforts: []*store.SegmentEffort{
			{ID: 1, SegmentID: 100, ActivityID: 9001, ElapsedTime: 312, MovingTime: 310, StartTs: 1718000000, PRRank: int32Ptr(1)},
			{ID: 2, SegmentID: 101, ActivityID: 9001, ElapsedTime: 45, MovingTime: 45, StartTs: 1718000500},
		},
	}

	require.NoError(t, ts.UpsertActivitySegments(ctx, upsert))

	t.Run("segments and efforts are stored", func(t *testing.T) {
		segments, err := ts.ListSegments(ctx, &store.FindSegment{})
		require.NoError(t, err)
		require.Len(t, segments, 2)

		efforts, err := ts.ListSegmentEfforts(ctx, &store.FindSegmentEffort{})
		require.NoError(t, err)
		require.Len(t, efforts, 2)
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		require.NoError(t, ts.UpsertActivitySegments(ctx, upsert))

		segments, err := ts.ListSegments(ctx, &store.FindSegment{})
		require.NoError(t, err)
		require.Len(t, segments, 2)

		efforts, err := ts.ListSegmentEfforts(ctx, &store.FindSegmentEffort{})
		require.NoError(t, err)
		require.Len(t, efforts, 2)
	})

	t.Run("replay refreshes fields last write wins", func(t *testing.T) {
		renamed := &store.UpsertActivitySegments{
			ActivityID: 9001,
			Segments: []*store.Segment{
				{ID: 100, Name: "College Hill Climb (Renamed)", Distance: 1210, AverageGrade: 8.6, City: "Providence"},
			},
			Efforts: []*store.SegmentEffort{
				{ID: 1, SegmentID: 100, ActivityID: 9001, ElapsedTime: 308, MovingTime: 306, StartTs: 1718000000, PRRank: int32Ptr(1)},
			},
		}
		require.NoError(t, ts.UpsertActivitySegments(ctx, renamed))

		segment, err := ts.GetSegment(ctx, &store.FindSegment{ID: &renamed.Segments[0].ID})
		require.NoError(t, err)
		require.NotNil(t, segment)
		require.Equal(t, "College Hill Climb (Renamed)", segment.Name)

		efforts, err := ts.ListSegmentEfforts(ctx, &store.FindSegmentEffort{SegmentID: &renamed.Segments[0].ID})
		require.NoError(t, err)
		require.Len(t, efforts, 1)
		require.Equal(t, int64(308), efforts[0].ElapsedTime)
	})

	t.Run("name search is case insensitive", func(t *testing.T) {
		name := "river road"
		segments, err := ts.ListSegments(ctx, &store.FindSegment{NameLike: &name})
		require.NoError(t, err)
		require.Len(t, segments, 1)
		require.Equal(t, int64(101), segments[0].ID)
	})
}

func TestBestSegmentEfforts(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	upsert := &store.UpsertActivitySegments{
		ActivityID: 9002,
		Segments: []*store.Segment{
			{ID: 200, Name: "Blackstone Loop", Distance: 2500, AverageGrade: 1.2, City: "Providence"},
		},
		Efforts: []*store.SegmentEffort{
			{ID: 10, SegmentID: 200, ActivityID: 9002, ElapsedTime: 420, StartTs: 1718000000},
			{ID: 11, SegmentID: 200, ActivityID: 9003, ElapsedTime: 395, StartTs: 1718100000},
			{ID: 12, SegmentID: 200, ActivityID: 9004, ElapsedTime: 440, StartTs: 1718200000},
			{ID: 13, SegmentID: 200, ActivityID: 9005, ElapsedTime: 401, StartTs: 1718300000},
		},
	}
	require.NoError(t, ts.UpsertActivitySegments(ctx, upsert))

	best, err := ts.BestSegmentEfforts(ctx, 200)
	require.NoError(t, err)
	require.Len(t, best, 3, "best efforts are capped at three")
	require.Equal(t, int64(395), best[0].ElapsedTime)
	require.Equal(t, int64(401), best[1].ElapsedTime)
	require.Equal(t, int64(420), best[2].ElapsedTime)
}

package store

import (
	"context"
)

// Segment is the object representing a Strava segment. Rows are keyed by the
// upstream segment ID; upserts are last-write-wins.
type Segment struct {
	ID           int64
	Name         string
	Distance     float64
	AverageGrade float64
	City         string
	UpdatedTs    int64
}

// SegmentEffort is one timed traversal of a segment, keyed by the upstream
// effort ID.
type SegmentEffort struct {
	ID          int64
	SegmentID   int64
	ActivityID  int64
	ElapsedTime int64
	MovingTime  int64
	StartTs     int64
	KOMRank     *int32
	PRRank      *int32
}

// FindSegment is the find condition for segment.
type FindSegment struct {
	ID *int64

	// NameLike filters by case-insensitive substring match on name.
	NameLike *string

	Limit *int
}

// FindSegmentEffort is the find condition for segment effort.
type FindSegmentEffort struct {
	SegmentID  *int64
	ActivityID *int64

	// OrderByElapsedAsc orders fastest first instead of most recent first.
	OrderByElapsedAsc bool

	Limit *int
}

// UpsertActivitySegments is the transactional upsert of everything a detailed
// activity revealed: each segment plus the effort ridden on it.
type UpsertActivitySegments struct {
	ActivityID int64
	Segments   []*Segment
	Efforts    []*SegmentEffort
}

// bestEffortLimit caps how many personal bests a segment lookup reports.
const bestEffortLimit = 3

// UpsertActivitySegments persists the segments and efforts of one detailed
// activity in a single transaction. Replaying the same activity is a no-op
// beyond refreshing fields.
func (s *Store) UpsertActivitySegments(ctx context.Context, upsert *UpsertActivitySegments) error {
	return s.driver.UpsertActivitySegments(ctx, upsert)
}

// ListSegments lists segments with filter.
func (s *Store) ListSegments(ctx context.Context, find *FindSegment) ([]*Segment, error) {
	return s.driver.ListSegments(ctx, find)
}

// GetSegment gets a single segment by filter, nil if absent.
func (s *Store) GetSegment(ctx context.Context, find *FindSegment) (*Segment, error) {
	list, err := s.driver.ListSegments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListSegmentEfforts lists efforts with filter.
func (s *Store) ListSegmentEfforts(ctx context.Context, find *FindSegmentEffort) ([]*SegmentEffort, error) {
	return s.driver.ListSegmentEfforts(ctx, find)
}

// BestSegmentEfforts returns the athlete's fastest efforts on a segment,
// fastest first, at most three.
func (s *Store) BestSegmentEfforts(ctx context.Context, segmentID int64) ([]*SegmentEffort, error) {
	limit := bestEffortLimit
	return s.driver.ListSegmentEfforts(ctx, &FindSegmentEffort{
		SegmentID:         &segmentID,
		OrderByElapsedAsc: true,
		Limit:             &limit,
	})
}

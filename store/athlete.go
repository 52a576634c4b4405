package store

import (
	"context"
)

// Athlete is the object representing a connected Strava account.
type Athlete struct {
	ID        int32
	AthleteID int64
	FirstName string
	LastName  string
	AvatarURL string
	CreatedTs int64
	UpdatedTs int64
}

// FindAthlete is the find condition for athlete.
type FindAthlete struct {
	ID        *int32
	AthleteID *int64

	// Pagination
	Limit  *int
	Offset *int
}

// UpsertAthlete is the upsert request for athlete, keyed by the upstream
// athlete ID.
type UpsertAthlete struct {
	AthleteID int64
	FirstName string
	LastName  string
	AvatarURL string
}

// UpsertAthlete creates or refreshes the athlete row for an upstream account.
func (s *Store) UpsertAthlete(ctx context.Context, upsert *UpsertAthlete) (*Athlete, error) {
	return s.driver.UpsertAthlete(ctx, upsert)
}

// ListAthletes lists athletes with filter.
func (s *Store) ListAthletes(ctx context.Context, find *FindAthlete) ([]*Athlete, error) {
	return s.driver.ListAthletes(ctx, find)
}

// GetAthlete gets a single athlete matching the filter.
func (s *Store) GetAthlete(ctx context.Context, find *FindAthlete) (*Athlete, error) {
	list, err := s.driver.ListAthletes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

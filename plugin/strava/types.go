// Package strava implements the activity source collaborator: a thin client
// for the Strava v3 API plus the in-memory activity index built from it.
package strava

import (
	"time"
)

const (
	metersPerMile = 1609.344
	feetPerMeter  = 3.28084
)

// ActivityRecord is the condensed per-activity representation used for bulk
// context. Detail enrichment fills PrivateNote, Description and Segments.
type ActivityRecord struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Type           string           `json:"type"`
	DistanceMiles  float64          `json:"distance_miles"`
	ElevationFeet  float64          `json:"elevation_feet"`
	MovingTimeSec  int64            `json:"moving_time_seconds"`
	ElapsedTimeSec int64            `json:"elapsed_time_seconds"`
	StartTime      time.Time        `json:"start_time"`
	Date           string           `json:"date"` // YYYY-MM-DD
	PrivateNote    string           `json:"private_note,omitempty"`
	Description    string           `json:"description,omitempty"`
	Segments       []SegmentSummary `json:"segments,omitempty"`
}

// SegmentSummary is the compact segment reference injected into enriched records.
type SegmentSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ElapsedTime string `json:"elapsed_time"` // M:SS
}

// TypeRollup aggregates one activity type within a year.
type TypeRollup struct {
	Count         int     `json:"count"`
	DistanceMiles float64 `json:"distance_miles"`
}

// MonthRollup aggregates one calendar month within a year.
type MonthRollup struct {
	Activities    int     `json:"activities"`
	DistanceMiles float64 `json:"distance_miles"`
}

// YearRollup aggregates a full calendar year of activity.
type YearRollup struct {
	TotalActivities    int                     `json:"total_activities"`
	TotalDistanceMiles float64                 `json:"total_distance_miles"`
	TotalElevationFeet float64                 `json:"total_elevation_feet"`
	TotalMovingTimeSec int64                   `json:"total_moving_time_seconds"`
	ByType             map[string]*TypeRollup  `json:"by_type"`
	ByMonth            map[string]*MonthRollup `json:"by_month"` // "01".."12"
}

// ActivityIndex is the day-keyed view over the full activity history plus
// year rollups. Rollups are rebuilt from scratch on every fetch, so they are
// always derivable from ByDate.
type ActivityIndex struct {
	ByDate map[string][]*ActivityRecord `json:"activities_by_date"`
	ByYear map[int]*YearRollup          `json:"by_year"`
}

// AthleteStats is the aggregate stats blob from /athletes/{id}/stats.
type AthleteStats struct {
	BiggestRideDistance float64     `json:"biggest_ride_distance"`
	RecentRideTotals    StatsTotals `json:"recent_ride_totals"`
	RecentRunTotals     StatsTotals `json:"recent_run_totals"`
	YTDRideTotals       StatsTotals `json:"ytd_ride_totals"`
	YTDRunTotals        StatsTotals `json:"ytd_run_totals"`
	AllRideTotals       StatsTotals `json:"all_ride_totals"`
	AllRunTotals        StatsTotals `json:"all_run_totals"`
}

// StatsTotals is one aggregation bucket inside AthleteStats.
type StatsTotals struct {
	Count         int     `json:"count"`
	Distance      float64 `json:"distance"`
	MovingTime    int64   `json:"moving_time"`
	ElapsedTime   int64   `json:"elapsed_time"`
	ElevationGain float64 `json:"elevation_gain"`
}

// Athlete is the subset of the athlete profile the server stores.
type Athlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Profile   string `json:"profile"`
}

// SegmentCore is the nested segment object inside a segment effort.
type SegmentCore struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Distance     float64 `json:"distance"`
	AverageGrade float64 `json:"average_grade"`
	City         string  `json:"city"`
}

// SegmentEffortDetail is one timed traversal inside a detailed activity.
type SegmentEffortDetail struct {
	ID          int64       `json:"id"`
	ElapsedTime int64       `json:"elapsed_time"`
	MovingTime  int64       `json:"moving_time"`
	StartDate   time.Time   `json:"start_date"`
	KOMRank     *int32      `json:"kom_rank"`
	PRRank      *int32      `json:"pr_rank"`
	Segment     SegmentCore `json:"segment"`
}

// DetailedActivity adds the expensive fields a summary record lacks.
type DetailedActivity struct {
	ID             int64                 `json:"id"`
	Name           string                `json:"name"`
	Type           string                `json:"type"`
	Description    string                `json:"description"`
	PrivateNote    string                `json:"private_note"`
	SegmentEfforts []SegmentEffortDetail `json:"segment_efforts"`
}

// SegmentDetail is the authoritative segment record from /segments/{id}.
type SegmentDetail struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Distance        float64        `json:"distance"`
	AverageGrade    float64        `json:"average_grade"`
	City            string         `json:"city"`
	AthletePREffort *EffortSummary `json:"athlete_pr_effort"`
}

// EffortSummary is one entry of a segment effort listing.
type EffortSummary struct {
	ID             int64     `json:"id"`
	ElapsedTime    int64     `json:"elapsed_time"`
	MovingTime     int64     `json:"moving_time"`
	StartDateLocal time.Time `json:"start_date_local"`
	KOMRank        *int32    `json:"kom_rank"`
	PRRank         *int32    `json:"pr_rank"`
}

// LeaderboardEntry is one row of a segment leaderboard.
type LeaderboardEntry struct {
	AthleteName string `json:"athlete_name"`
	ElapsedTime int64  `json:"elapsed_time"`
	Rank        int    `json:"rank"`
}

// Leaderboard is the segment leaderboard blob.
type Leaderboard struct {
	EntryCount int                `json:"entry_count"`
	Entries    []LeaderboardEntry `json:"entries"`
}

// TokenResponse is the Strava OAuth token payload.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"`
	Athlete      Athlete `json:"athlete"`
}

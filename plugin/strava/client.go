package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Sentinel errors the pipeline inspects. A 429 from Strava is advisory, not
// fatal; a 401 means the access token is no longer usable.
var (
	ErrRateLimited  = errors.New("strava: rate limited")
	ErrUnauthorized = errors.New("strava: unauthorized")
)

const (
	// historyPageSize is the maximum page size the activity list endpoint allows.
	historyPageSize = 200
	// maxHistoryPages caps full-history pagination at 20k activities.
	maxHistoryPages = 100
)

// Config holds the Strava client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond paces outbound calls to stay inside Strava's
	// 15-minute quota during full-history syncs.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.strava.com/api/v3",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 2,
		Burst:             5,
	}
}

// Client is a thin Strava v3 API client.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Strava client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.strava.com/api/v3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// summaryActivity is the wire shape of one /athlete/activities entry.
type summaryActivity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	Distance           float64   `json:"distance"`             // meters
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	MovingTime         int64     `json:"moving_time"`
	ElapsedTime        int64     `json:"elapsed_time"`
	StartDateLocal     time.Time `json:"start_date_local"`
}

func (a *summaryActivity) condense() *ActivityRecord {
	return &ActivityRecord{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		DistanceMiles:  a.Distance / metersPerMile,
		ElevationFeet:  a.TotalElevationGain * feetPerMeter,
		MovingTimeSec:  a.MovingTime,
		ElapsedTimeSec: a.ElapsedTime,
		StartTime:      a.StartDateLocal,
		Date:           DateKey(a.StartDateLocal),
	}
}

// GetAthleteStats fetches the aggregate stats blob for an athlete.
func (c *Client) GetAthleteStats(ctx context.Context, accessToken string, athleteID int64) (*AthleteStats, error) {
	stats := &AthleteStats{}
	path := fmt.Sprintf("/athletes/%d/stats", athleteID)
	if err := c.get(ctx, accessToken, path, nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetHistorySummary paginates the full activity list and builds the
// day-keyed index with fresh year rollups.
func (c *Client) GetHistorySummary(ctx context.Context, accessToken string) (*ActivityIndex, error) {
	all := []*ActivityRecord{}
	for page := 1; page <= maxHistoryPages; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(historyPageSize))
		params.Set("page", strconv.Itoa(page))

		batch := []summaryActivity{}
		if err := c.get(ctx, accessToken, "/athlete/activities", params, &batch); err != nil {
			return nil, err
		}
		for i := range batch {
			all = append(all, batch[i].condense())
		}
		if len(batch) < historyPageSize {
			break
		}
	}
	return BuildIndex(all), nil
}

// GetActivityDetail fetches a single activity with notes, description and
// segment efforts.
func (c *Client) GetActivityDetail(ctx context.Context, accessToken string, activityID int64) (*DetailedActivity, error) {
	detail := &DetailedActivity{}
	path := fmt.Sprintf("/activities/%d", activityID)
	if err := c.get(ctx, accessToken, path, nil, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetSegmentDetail fetches the authoritative segment record.
func (c *Client) GetSegmentDetail(ctx context.Context, accessToken string, segmentID int64) (*SegmentDetail, error) {
	detail := &SegmentDetail{}
	path := fmt.Sprintf("/segments/%d", segmentID)
	if err := c.get(ctx, accessToken, path, nil, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetSegmentLeaderboard fetches the segment leaderboard.
func (c *Client) GetSegmentLeaderboard(ctx context.Context, accessToken string, segmentID int64) (*Leaderboard, error) {
	leaderboard := &Leaderboard{}
	path := fmt.Sprintf("/segments/%d/leaderboard", segmentID)
	if err := c.get(ctx, accessToken, path, nil, leaderboard); err != nil {
		return nil, err
	}
	return leaderboard, nil
}

// GetSegmentHistory fetches the athlete's effort history on a segment.
func (c *Client) GetSegmentHistory(ctx context.Context, accessToken string, segmentID int64, perPage int) ([]EffortSummary, error) {
	params := url.Values{}
	params.Set("segment_id", strconv.FormatInt(segmentID, 10))
	params.Set("per_page", strconv.Itoa(perPage))

	efforts := []EffortSummary{}
	if err := c.get(ctx, accessToken, "/segment_efforts", params, &efforts); err != nil {
		return nil, err
	}
	return efforts, nil
}

// get performs a paced, authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait")
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build request for %s", path)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("strava returned %d for %s: %s", resp.StatusCode, path, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", path)
	}
	return nil
}

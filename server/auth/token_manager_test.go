package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	qerr "github.com/hrygo/stridesense/internal/errors"
	"github.com/hrygo/stridesense/store"
	storetest "github.com/hrygo/stridesense/store/test"
)

func seedAthleteWithCredential(t *testing.T, ts *store.Store, expiresAt int64) int32 {
	ctx := context.Background()
	athlete, err := ts.UpsertAthlete(ctx, &store.UpsertAthlete{AthleteID: 777, FirstName: "Sam"})
	require.NoError(t, err)

	_, err = ts.UpsertCredential(ctx, &store.UpsertCredential{
		UserID:       athlete.ID,
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    expiresAt,
	})
	require.NoError(t, err)
	return athlete.ID
}

func TestGetValidTokenFreshCredential(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	userID := seedAthleteWithCredential(t, ts, time.Now().Add(time.Hour).Unix())

	tm := NewTokenManager(ts, &oauth2.Config{})
	tm.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		t.Fatal("fresh credential must not be refreshed")
		return nil, nil
	}

	token, err := tm.GetValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "stale-token", token)
}

func TestGetValidTokenRefreshesExpiring(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	userID := seedAthleteWithCredential(t, ts, time.Now().Add(time.Minute).Unix())

	tm := NewTokenManager(ts, &oauth2.Config{})
	tm.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		assert.Equal(t, "refresh-token", refreshToken)
		return &oauth2.Token{
			AccessToken:  "fresh-token",
			RefreshToken: "rotated-refresh",
			Expiry:       time.Now().Add(6 * time.Hour),
		}, nil
	}

	token, err := tm.GetValidToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	// The rotated pair must have been persisted.
	credential, err := ts.GetCredential(ctx, &store.FindCredential{UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", credential.AccessToken)
	assert.Equal(t, "rotated-refresh", credential.RefreshToken)
}

func TestGetValidTokenSingleRefreshUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	userID := seedAthleteWithCredential(t, ts, time.Now().Add(time.Minute).Unix())

	var refreshCalls int32
	tm := NewTokenManager(ts, &oauth2.Config{})
	tm.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		atomic.AddInt32(&refreshCalls, 1)
		time.Sleep(20 * time.Millisecond)
		return &oauth2.Token{
			AccessToken: "fresh-token",
			Expiry:      time.Now().Add(6 * time.Hour),
		}, nil
	}

	const workers = 10
	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tm.GetValidToken(ctx, userID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh-token", results[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls), "exactly one upstream refresh")

	// Refresh token was not rotated upstream, so the stored one survives.
	credential, err := ts.GetCredential(ctx, &store.FindCredential{UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", credential.RefreshToken)
}

func TestGetValidTokenNoCredential(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)

	tm := NewTokenManager(ts, &oauth2.Config{})
	_, err := tm.GetValidToken(ctx, 1234)
	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.ErrCodeReauthRequired))
}

func TestGetValidTokenRefreshFailure(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	userID := seedAthleteWithCredential(t, ts, time.Now().Add(time.Minute).Unix())

	tm := NewTokenManager(ts, &oauth2.Config{})
	tm.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return nil, fmt.Errorf("invalid_grant")
	}

	_, err := tm.GetValidToken(ctx, userID)
	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.ErrCodeReauthRequired))
}

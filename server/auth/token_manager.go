package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	qerr "github.com/hrygo/stridesense/internal/errors"
	"github.com/hrygo/stridesense/store"
)

// expiryBuffer refreshes tokens this long before they actually expire, so a
// token never dies mid-pipeline.
const expiryBuffer = 5 * time.Minute

// TokenManager hands out valid access tokens, refreshing them at most once
// per user under concurrency.
type TokenManager struct {
	store  *store.Store
	config *oauth2.Config

	// refresh is swappable in tests.
	refresh func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	mu    sync.Mutex
	locks map[int32]*sync.Mutex
}

// NewTokenManager creates a token manager backed by the given OAuth config.
func NewTokenManager(s *store.Store, config *oauth2.Config) *TokenManager {
	tm := &TokenManager{
		store:  s,
		config: config,
		locks:  make(map[int32]*sync.Mutex),
	}
	tm.refresh = tm.refreshUpstream
	return tm
}

// userLock returns the mutex serializing refreshes for one user.
func (tm *TokenManager) userLock(userID int32) *sync.Mutex {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	lock, ok := tm.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		tm.locks[userID] = lock
	}
	return lock
}

// GetValidToken returns an access token guaranteed to outlive the expiry
// buffer, refreshing against Strava when needed. Concurrent callers for the
// same user trigger exactly one upstream refresh; the rest reuse its result.
func (tm *TokenManager) GetValidToken(ctx context.Context, userID int32) (string, error) {
	credential, err := tm.store.GetCredential(ctx, &store.FindCredential{UserID: &userID})
	if err != nil {
		return "", qerr.Wrap(err, qerr.ErrCodeInternal, "failed to load credential")
	}
	if credential == nil {
		return "", qerr.ReauthRequired("no stored credential", nil)
	}
	if !credential.ExpiresWithin(expiryBuffer) {
		return credential.AccessToken, nil
	}

	lock := tm.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read inside the lock: a concurrent caller may have refreshed while
	// we waited.
	credential, err = tm.store.GetCredential(ctx, &store.FindCredential{UserID: &userID})
	if err != nil {
		return "", qerr.Wrap(err, qerr.ErrCodeInternal, "failed to reload credential")
	}
	if credential == nil {
		return "", qerr.ReauthRequired("credential disappeared during refresh", nil)
	}
	if !credential.ExpiresWithin(expiryBuffer) {
		return credential.AccessToken, nil
	}

	token, err := tm.refresh(ctx, credential.RefreshToken)
	if err != nil {
		return "", qerr.ReauthRequired("token refresh rejected, reconnect your Strava account", err)
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = credential.RefreshToken
	}
	if _, err := tm.store.UpsertCredential(ctx, &store.UpsertCredential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    token.Expiry.Unix(),
	}); err != nil {
		return "", qerr.Wrap(err, qerr.ErrCodeInternal, "failed to persist refreshed credential")
	}

	return token.AccessToken, nil
}

// refreshUpstream exchanges a refresh token at the provider.
func (tm *TokenManager) refreshUpstream(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := tm.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return source.Token()
}

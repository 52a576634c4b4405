package store

import (
	"context"
	"time"
)

// Credential is the object representing a stored OAuth token pair. One row
// per athlete; refreshing overwrites in place.
type Credential struct {
	UserID       int32
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	UpdatedTs    int64
}

// FindCredential is the find condition for credential.
type FindCredential struct {
	UserID *int32
}

// UpsertCredential is the upsert request for credential.
type UpsertCredential struct {
	UserID       int32
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// ExpiresWithin reports whether the access token expires inside the given
// buffer from now.
func (c *Credential) ExpiresWithin(buffer time.Duration) bool {
	return time.Now().Add(buffer).Unix() >= c.ExpiresAt
}

// UpsertCredential stores or replaces the token pair for an athlete.
func (s *Store) UpsertCredential(ctx context.Context, upsert *UpsertCredential) (*Credential, error) {
	return s.driver.UpsertCredential(ctx, upsert)
}

// GetCredential gets the credential for an athlete, nil if none stored.
func (s *Store) GetCredential(ctx context.Context, find *FindCredential) (*Credential, error) {
	return s.driver.GetCredential(ctx, find)
}

// DeleteCredential drops the stored token pair, forcing re-authorization.
func (s *Store) DeleteCredential(ctx context.Context, find *FindCredential) error {
	return s.driver.DeleteCredential(ctx, find)
}

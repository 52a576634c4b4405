// Package auth implements the Strava OAuth flow and access token lifecycle.
package auth

import (
	"context"
	"encoding/json"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/hrygo/stridesense/internal/profile"
	"github.com/hrygo/stridesense/plugin/strava"
	"github.com/hrygo/stridesense/store"
)

// oauthScopes is what the assistant needs: activity history including private
// notes, plus the profile for display.
const oauthScopes = "read,activity:read_all,profile:read_all"

// OAuthService drives the authorization code flow against Strava.
type OAuthService struct {
	config *oauth2.Config
	store  *store.Store
}

// NewOAuthService creates the OAuth service from the runtime profile.
func NewOAuthService(p *profile.Profile, s *store.Store) *OAuthService {
	return &OAuthService{
		config: &oauth2.Config{
			ClientID:     p.StravaClientID,
			ClientSecret: p.StravaClientSecret,
			RedirectURL:  p.StravaRedirectURI,
			Scopes:       []string{oauthScopes},
			Endpoint:     endpoints.Strava,
		},
		store: s,
	}
}

// NewState returns a fresh opaque state value for an authorization redirect.
func (s *OAuthService) NewState() string {
	return shortuuid.New()
}

// AuthCodeURL builds the Strava authorization URL for the given state.
func (s *OAuthService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// HandleCallback exchanges the authorization code, stores the athlete and the
// token pair, and returns the stored athlete.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (*store.Athlete, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}

	upstream, err := athleteFromToken(token)
	if err != nil {
		return nil, err
	}

	athlete, err := s.store.UpsertAthlete(ctx, &store.UpsertAthlete{
		AthleteID: upstream.ID,
		FirstName: upstream.FirstName,
		LastName:  upstream.LastName,
		AvatarURL: upstream.Profile,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to store athlete")
	}

	if _, err := s.store.UpsertCredential(ctx, &store.UpsertCredential{
		UserID:       athlete.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.Unix(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to store credential")
	}

	return athlete, nil
}

// Config exposes the underlying oauth2 config for the token manager.
func (s *OAuthService) Config() *oauth2.Config {
	return s.config
}

// athleteFromToken pulls the athlete object Strava attaches to its token
// response.
func athleteFromToken(token *oauth2.Token) (*strava.Athlete, error) {
	raw := token.Extra("athlete")
	if raw == nil {
		return nil, errors.New("token response carries no athlete")
	}

	bytes, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to re-encode athlete payload")
	}

	athlete := &strava.Athlete{}
	if err := json.Unmarshal(bytes, athlete); err != nil {
		return nil, errors.Wrap(err, "failed to decode athlete payload")
	}
	if athlete.ID == 0 {
		return nil, errors.New("athlete payload missing id")
	}
	return athlete, nil
}

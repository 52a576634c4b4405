package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/stridesense/server/auth"
	"github.com/hrygo/stridesense/store"
)

// stateCookieName carries the OAuth state between the start and callback legs.
const stateCookieName = "stridesense_oauth_state"

// sessionMaxAge keeps the session shorter than the Strava refresh token
// lifetime so a live session always has a refreshable credential behind it.
const sessionMaxAge = 30 * 24 * time.Hour

// StartStravaAuth returns the Strava authorization URL for the frontend to
// redirect to, and pins the state in a short-lived cookie.
func (s *APIV1Service) StartStravaAuth(c echo.Context) error {
	if s.Profile.StravaClientID == "" || s.Profile.StravaClientSecret == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "strava application is not configured")
	}

	state := s.OAuth.NewState()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]string{
		"url": s.OAuth.AuthCodeURL(state),
	})
}

// StravaCallback exchanges the authorization code, establishes the session
// cookie, and sends the browser back to the frontend.
func (s *APIV1Service) StravaCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	stateCookie, err := c.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "state mismatch")
	}

	athlete, err := s.OAuth.HandleCallback(c.Request().Context(), code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "authorization failed").SetInternal(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    auth.SignSession(s.Secret, athlete.ID),
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.Profile.IsDev(),
	})

	return c.Redirect(http.StatusFound, s.Profile.FrontendURL+"/?connected=true")
}

// GetMe returns the logged-in athlete's profile.
func (s *APIV1Service) GetMe(c echo.Context) error {
	userID, ok := sessionUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	athlete, err := s.Store.GetAthlete(c.Request().Context(), &store.FindAthlete{ID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load athlete").SetInternal(err)
	}
	if athlete == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown athlete")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":              athlete.ID,
		"strava_id":       athlete.AthleteID,
		"name":            athlete.FirstName + " " + athlete.LastName,
		"profile_picture": athlete.AvatarURL,
		"connected":       true,
	})
}

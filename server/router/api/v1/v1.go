// Package v1 exposes the REST surface: OAuth handshake, session lookup, and
// the question endpoint.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/stridesense/internal/profile"
	"github.com/hrygo/stridesense/server/auth"
	qerr "github.com/hrygo/stridesense/internal/errors"
	"github.com/hrygo/stridesense/server/middleware"
	"github.com/hrygo/stridesense/server/service/assistant"
	"github.com/hrygo/stridesense/store"
)

// queryRatePerMinute caps how often one user may hit the question endpoint.
const queryRatePerMinute = 10

type APIV1Service struct {
	Secret    string
	Profile   *profile.Profile
	Store     *store.Store
	OAuth     *auth.OAuthService
	Assistant *assistant.Service

	queryLimiter *middleware.RateLimiter
}

func NewAPIV1Service(secret string, p *profile.Profile, s *store.Store, oauthService *auth.OAuthService, assistantService *assistant.Service) *APIV1Service {
	return &APIV1Service{
		Secret:       secret,
		Profile:      p,
		Store:        s,
		OAuth:        oauthService,
		Assistant:    assistantService,
		queryLimiter: middleware.NewRateLimiter(queryRatePerMinute),
	}
}

// Register mounts the REST routes on the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")

	group.POST("/auth/strava/start", s.StartStravaAuth)
	group.GET("/auth/strava/callback", s.StravaCallback)
	group.GET("/me", s.GetMe, s.sessionRequired)
	group.POST("/query", s.PostQuery, s.sessionRequired)
}

// sessionRequired resolves the signed session cookie into a user ID and
// rejects requests without one.
func (s *APIV1Service) sessionRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(auth.SessionCookieName)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}
		userID, ok := auth.VerifySession(s.Secret, cookie.Value)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
		}
		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

const userIDContextKey = "stridesense.user-id"

func sessionUserID(c echo.Context) (int32, bool) {
	userID, ok := c.Get(userIDContextKey).(int32)
	return userID, ok
}

// httpStatusFor maps the pipeline error taxonomy to HTTP statuses.
func httpStatusFor(code qerr.ErrorCode) int {
	switch code {
	case qerr.ErrCodeUnauthenticated, qerr.ErrCodeReauthRequired:
		return http.StatusUnauthorized
	case qerr.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case qerr.ErrCodeUpstream:
		return http.StatusBadGateway
	case qerr.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case qerr.ErrCodeContextTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	qerr "github.com/hrygo/stridesense/internal/errors"
	"github.com/hrygo/stridesense/server/internal/observability"
)

// maxQuestionLength bounds the question body.
const maxQuestionLength = 1000

type queryRequest struct {
	Question string `json:"question"`
}

// PostQuery answers one question about the athlete's activity data.
func (s *APIV1Service) PostQuery(c echo.Context) error {
	userID, ok := sessionUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	request := &queryRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	question := strings.TrimSpace(request.Question)
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question cannot be empty")
	}
	if len(question) > maxQuestionLength {
		return echo.NewHTTPError(http.StatusBadRequest, "question is too long")
	}

	if !s.queryLimiter.Allow(userID) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many questions, slow down")
	}

	logCtx := observability.NewRequestContext(slog.Default(), "api", userID)
	ctx := observability.WithRequestContext(c.Request().Context(), logCtx)

	answer, err := s.Assistant.AnswerQuestion(ctx, userID, question)
	if err != nil {
		code := qerr.GetCodeFromError(err, qerr.ErrCodeInternal)
		logCtx.Error("question failed", err, slog.String(observability.LogFieldErrorCode, string(code)))
		return echo.NewHTTPError(httpStatusFor(code), userFacingMessage(code)).SetInternal(err)
	}

	return c.JSON(http.StatusOK, answer)
}

// userFacingMessage keeps internal detail out of API error bodies.
func userFacingMessage(code qerr.ErrorCode) string {
	switch code {
	case qerr.ErrCodeConfig:
		return "the assistant is not fully configured, contact the operator"
	case qerr.ErrCodeReauthRequired:
		return "your Strava connection expired, please reconnect"
	case qerr.ErrCodeRateLimited:
		return "too many requests right now, try again shortly"
	case qerr.ErrCodeUpstream:
		return "Strava is unavailable right now, try again shortly"
	case qerr.ErrCodeTimeout:
		return "the request took too long, try a narrower question"
	default:
		return "something went wrong answering your question"
	}
}

// Package server assembles the HTTP server around the assistant pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/stridesense/internal/profile"
	"github.com/hrygo/stridesense/plugin/ai"
	"github.com/hrygo/stridesense/plugin/strava"
	"github.com/hrygo/stridesense/server/auth"
	apiv1 "github.com/hrygo/stridesense/server/router/api/v1"
	"github.com/hrygo/stridesense/server/service/assistant"
	"github.com/hrygo/stridesense/store"
)

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	secret := p.SessionSecret
	if secret == "" {
		return nil, errors.New("session secret is not configured")
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{p.FrontendURL},
		AllowCredentials: true,
	}))

	server := &Server{
		Secret:     secret,
		Profile:    p,
		Store:      s,
		echoServer: echoServer,
	}

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "Service ready.")
	})

	stravaClient := strava.NewClient(&strava.Config{BaseURL: p.StravaBaseURL})
	oauthService := auth.NewOAuthService(p, s)
	tokenManager := auth.NewTokenManager(s, oauthService.Config())
	llmProvider, err := ai.NewProvider(&ai.Config{
		BaseURL:   p.LLMBaseURL,
		APIKey:    p.LLMAPIKey,
		ChatModel: p.LLMModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM provider")
	}

	assistantService := assistant.NewService(p, s, stravaClient, tokenManager, llmProvider, nil)
	apiV1Service := apiv1.NewAPIV1Service(secret, p, s, oauthService, assistantService)
	apiV1Service.Register(echoServer)

	return server, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", slog.String("address", address))
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("stridesense stopped properly")
}

package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where stridesense stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// SessionSecret signs the session cookie
	SessionSecret string
	// FrontendURL is where the OAuth callback redirects after login
	FrontendURL string

	// Strava application configuration
	StravaClientID     string // STRIDESENSE_STRAVA_CLIENT_ID
	StravaClientSecret string // STRIDESENSE_STRAVA_CLIENT_SECRET
	StravaRedirectURI  string // STRIDESENSE_STRAVA_REDIRECT_URI
	StravaBaseURL      string // STRIDESENSE_STRAVA_BASE_URL (default: https://www.strava.com/api/v3)

	// LLM configuration
	LLMProvider string // STRIDESENSE_LLM_PROVIDER (default: openrouter)
	LLMAPIKey   string // STRIDESENSE_LLM_API_KEY
	LLMBaseURL  string // STRIDESENSE_LLM_BASE_URL (default: https://openrouter.ai/api/v1)
	LLMModel    string // STRIDESENSE_LLM_MODEL (default: google/gemini-2.0-flash-001)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMConfigured returns true if a text-generation provider can be reached.
func (p *Profile) IsLLMConfigured() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from STRIDESENSE_* environment variables.
func (p *Profile) FromEnv() {
	p.SessionSecret = getEnvOrDefault("STRIDESENSE_SESSION_SECRET", p.SessionSecret)
	p.FrontendURL = getEnvOrDefault("STRIDESENSE_FRONTEND_URL", "http://localhost:5173")

	p.StravaClientID = os.Getenv("STRIDESENSE_STRAVA_CLIENT_ID")
	p.StravaClientSecret = os.Getenv("STRIDESENSE_STRAVA_CLIENT_SECRET")
	p.StravaRedirectURI = getEnvOrDefault("STRIDESENSE_STRAVA_REDIRECT_URI", "http://localhost:8000/api/v1/auth/strava/callback")
	p.StravaBaseURL = getEnvOrDefault("STRIDESENSE_STRAVA_BASE_URL", "https://www.strava.com/api/v3")

	p.LLMProvider = getEnvOrDefault("STRIDESENSE_LLM_PROVIDER", "openrouter")
	p.LLMAPIKey = os.Getenv("STRIDESENSE_LLM_API_KEY")
	p.LLMBaseURL = getEnvOrDefault("STRIDESENSE_LLM_BASE_URL", "https://openrouter.ai/api/v1")
	p.LLMModel = getEnvOrDefault("STRIDESENSE_LLM_MODEL", "google/gemini-2.0-flash-001")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/stridesense"
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("stridesense_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.StravaClientID == "" || p.StravaClientSecret == "" {
		slog.Warn("strava application credentials are not configured; authentication is unavailable")
	}

	return nil
}

// Package config binds the environment variables recognized by the proxy
// into a single typed struct.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded once at startup. Unknown environment variables are
// ignored, per spec.
type Config struct {
	PresenterHost string `envconfig:"PRESENTER_HOST" default:"127.0.0.1"`
	PresenterPort int    `envconfig:"PRESENTER_PORT" default:"1025"`

	WebHost string `envconfig:"WEB_HOST" default:"0.0.0.0"`
	WebPort int    `envconfig:"WEB_PORT" default:"8080"`

	OAuthClientID     string `envconfig:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `envconfig:"OAUTH_CLIENT_SECRET"`

	PublicTunnelURL string `envconfig:"PUBLIC_TUNNEL_URL"`
	CORSOrigins     string `envconfig:"CORS_ORIGINS" default:"*"`

	LogRetentionDays int `envconfig:"LOG_RETENTION_DAYS" default:"14"`

	RunMode string `envconfig:"RUN_MODE" default:"production"`

	AppID    string `envconfig:"-"`
	HomeDir  string `envconfig:"-"`
	DataDir  string `envconfig:"-"`
}

const appID = "presenter-proxy"

// Load reads environment variables (optionally from a .env file the caller
// already loaded with godotenv) into a Config, normalizing host pitfalls and
// resolving the on-disk data directory.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	c.AppID = appID
	c.PresenterHost = NormalizeHost(c.PresenterHost)

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	c.HomeDir = home
	c.DataDir = filepath.Join(home, "."+appID)

	return &c, nil
}

// NormalizeHost coerces "localhost" to "127.0.0.1" to sidestep dual-stack
// resolution mismatches on hosts where the Presenter only listens on IPv4.
func NormalizeHost(host string) string {
	if strings.EqualFold(strings.TrimSpace(host), "localhost") {
		return "127.0.0.1"
	}
	return host
}

// PublicBaseURL returns the tunnel URL if configured, else host:port.
func (c *Config) PublicBaseURL() string {
	if c.PublicTunnelURL != "" {
		return strings.TrimRight(c.PublicTunnelURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", c.WebHost, c.WebPort)
}

// IsHTTPS reports whether the public base URL is served over HTTPS, used to
// decide the session cookie's Secure flag.
func (c *Config) IsHTTPS() bool {
	return strings.HasPrefix(c.PublicBaseURL(), "https://")
}

// OAuthConfigured reports whether OAuth client credentials are present.
func (c *Config) OAuthConfigured() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

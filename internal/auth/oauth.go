package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/churchstage/presenter-proxy/internal/models"
)

// OAuthExchangeTimeout bounds the authorization-code exchange and the
// subsequent userinfo fetch.
const OAuthExchangeTimeout = 10 * time.Second

// Provider wraps an oauth2.Config for a single named provider (the spec
// only names "google" but the shape is provider-agnostic).
type Provider struct {
	Name   string
	config *oauth2.Config
}

// NewGoogleProvider builds the "google" provider. redirectURL is
// "<publicBaseUrl>/auth/google/callback", computed by the caller since only
// it knows the configured tunnel URL.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		Name: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthCodeURL returns the provider's consent URL for the given anti-CSRF
// state value.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange trades an authorization code for the caller's identity.
func (p *Provider) Exchange(ctx context.Context, code string) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, OAuthExchangeTimeout)
	defer cancel()

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return models.Identity{}, fmt.Errorf("exchanging oauth code: %w", err)
	}

	client := p.config.Client(ctx, tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return models.Identity{}, fmt.Errorf("fetching oauth userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Identity{}, fmt.Errorf("oauth userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.Identity{}, fmt.Errorf("decoding oauth userinfo: %w", err)
	}

	return models.Identity{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/churchstage/presenter-proxy/internal/config"
	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/store"
)

// Identity is the authenticated caller of the current request.
type Identity struct {
	Email  string
	Admin  bool
	Method models.SessionMethod
}

// Manager ties the session/user/secret stores and the OAuth provider
// together. It is the single source of truth for "who is this request".
type Manager struct {
	cfg      *config.Config
	users    *store.UserStore
	sessions *store.SessionStore
	secrets  *store.SecretStore
	provider *Provider

	mu     sync.Mutex
	states map[string]time.Time // in-flight OAuth state tokens, 10 min TTL
}

// NewManager wires a Manager. provider may be nil if OAuth credentials are
// not configured; the login/callback routes then respond 503.
func NewManager(cfg *config.Config, users *store.UserStore, sessions *store.SessionStore, secrets *store.SecretStore, provider *Provider) *Manager {
	return &Manager{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		secrets:  secrets,
		provider: provider,
		states:   map[string]time.Time{},
	}
}

// OAuthConfigured reports whether a provider is wired in.
func (m *Manager) OAuthConfigured() bool { return m.provider != nil }

// AllowedUserCount is surfaced by the unauthenticated /auth/status route.
func (m *Manager) AllowedUserCount() int { return m.users.Count() }

// NewState mints and tracks a short-lived anti-CSRF state token for the
// OAuth redirect.
func (m *Manager) NewState() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeStatesLocked()
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	state := hex.EncodeToString(buf)
	m.states[state] = time.Now().Add(10 * time.Minute)
	return state
}

// ConsumeState validates and invalidates a one-time state token.
func (m *Manager) ConsumeState(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.states[state]
	delete(m.states, state)
	return ok && time.Now().Before(exp)
}

func (m *Manager) purgeStatesLocked() {
	now := time.Now()
	for s, exp := range m.states {
		if now.After(exp) {
			delete(m.states, s)
		}
	}
}

// AuthenticateBearer checks a raw Authorization header value against the
// process bearer token. Bearer requests are always admin-equivalent.
func (m *Manager) AuthenticateBearer(authHeader string) (Identity, bool) {
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return Identity{}, false
	}
	candidate := authHeader[len(prefix):]
	if !CheckBearer(m.secrets.BearerToken(), candidate) {
		return Identity{}, false
	}
	return Identity{Email: "", Admin: true, Method: models.SessionMethodBearer}, true
}

// AuthenticateCookie validates a signed session cookie and that its email
// is still allow-listed, returning false if either check fails.
func (m *Manager) AuthenticateCookie(cookieValue string) (Identity, bool) {
	if cookieValue == "" {
		return Identity{}, false
	}
	id, ok := VerifySessionID(m.secrets.SessionKey(), cookieValue)
	if !ok {
		return Identity{}, false
	}
	sess, ok := m.sessions.Get(id)
	if !ok {
		return Identity{}, false
	}
	if !m.users.IsAllowed(sess.Email) {
		_ = m.sessions.Destroy(id)
		return Identity{}, false
	}
	return Identity{Email: sess.Email, Admin: m.users.IsAdmin(sess.Email), Method: models.SessionMethodOAuth}, true
}

// Login creates a session for identity after the OAuth callback verifies
// allow-listing, returning the signed cookie value to set.
func (m *Manager) Login(identity models.Identity) (string, error) {
	sess, err := m.sessions.Create(identity, models.SessionMethodOAuth)
	if err != nil {
		return "", err
	}
	if err := m.users.RecordLogin(identity.Email, identity); err != nil {
		return "", err
	}
	return SignSessionID(m.secrets.SessionKey(), sess.ID), nil
}

// Logout destroys the session behind cookieValue, if any.
func (m *Manager) Logout(cookieValue string) {
	id, ok := VerifySessionID(m.secrets.SessionKey(), cookieValue)
	if !ok {
		return
	}
	_ = m.sessions.Destroy(id)
}

// Provider exposes the configured OAuth provider (nil if unconfigured).
func (m *Manager) Provider() *Provider { return m.provider }

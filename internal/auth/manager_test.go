package auth

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/churchstage/presenter-proxy/internal/config"
	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.UserStore) {
	t.Helper()
	fs := afero.NewMemMapFs()
	users := store.NewUserStore(fs, "/data")
	sessions, err := store.NewSessionStore(fs, "/data")
	require.NoError(t, err)
	secrets, err := store.LoadOrCreateSecretStore(fs, "/data")
	require.NoError(t, err)
	return NewManager(&config.Config{}, users, sessions, secrets, nil), users
}

func TestAuthenticateBearerGrantsAdmin(t *testing.T) {
	m, _ := newTestManager(t)

	id, ok := m.AuthenticateBearer("Bearer not-the-token")
	require.False(t, ok)
	require.Empty(t, id.Email)

	secretsPath := m.secrets.BearerToken()
	id, ok = m.AuthenticateBearer("Bearer " + secretsPath)
	require.True(t, ok)
	require.True(t, id.Admin)
	require.Equal(t, models.SessionMethodBearer, id.Method)
}

func TestLoginThenAuthenticateCookieResolvesIdentity(t *testing.T) {
	m, users := newTestManager(t)

	_, err := users.Add("person@example.com")
	require.NoError(t, err)

	cookie, err := m.Login(models.Identity{Email: "person@example.com", Name: "Person"})
	require.NoError(t, err)

	id, ok := m.AuthenticateCookie(cookie)
	require.True(t, ok)
	require.Equal(t, "person@example.com", id.Email)
	require.False(t, id.Admin)
	require.Equal(t, models.SessionMethodOAuth, id.Method)
}

func TestAuthenticateCookieRejectsSessionForDeallowlistedEmail(t *testing.T) {
	m, users := newTestManager(t)

	_, err := users.Add("person@example.com")
	require.NoError(t, err)
	cookie, err := m.Login(models.Identity{Email: "person@example.com"})
	require.NoError(t, err)

	require.NoError(t, users.Remove("person@example.com"))

	_, ok := m.AuthenticateCookie(cookie)
	require.False(t, ok, "a session for a de-allow-listed email must be rejected")
}

func TestConsumeStateIsOneTimeUse(t *testing.T) {
	m, _ := newTestManager(t)

	state := m.NewState()
	require.True(t, m.ConsumeState(state))
	require.False(t, m.ConsumeState(state), "a state token must not be reusable")
}

func TestConsumeStateRejectsUnknownToken(t *testing.T) {
	m, _ := newTestManager(t)
	require.False(t, m.ConsumeState("never-issued"))
}

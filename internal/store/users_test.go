package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestUserAddIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewUserStore(fs, "/data")

	_, err := s.Add("Someone@Example.com")
	require.NoError(t, err)
	_, err = s.Add("someone@example.com")
	require.NoError(t, err)

	require.Len(t, s.ListAll(), 1)
	require.True(t, s.IsAllowed("SOMEONE@EXAMPLE.COM"))
}

func TestAdminsAreAlwaysSubsetOfAllowList(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewUserStore(fs, "/data")

	_, err := s.Add("admin@example.com")
	require.NoError(t, err)
	require.NoError(t, s.SetAdmin("admin@example.com", true))
	require.True(t, s.IsAdmin("admin@example.com"))

	require.NoError(t, s.Remove("admin@example.com"))
	require.False(t, s.IsAllowed("admin@example.com"))
	require.False(t, s.IsAdmin("admin@example.com"), "removing a user must also drop admin status")
}

func TestSetAdminNoOpsForNonAllowListedEmail(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewUserStore(fs, "/data")

	require.NoError(t, s.SetAdmin("ghost@example.com", true))
	require.False(t, s.IsAllowed("ghost@example.com"))
	require.False(t, s.IsAdmin("ghost@example.com"))
}

func TestCountReflectsAllowListSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewUserStore(fs, "/data")

	require.Equal(t, 0, s.Count())
	_, err := s.Add("a@example.com")
	require.NoError(t, err)
	_, err = s.Add("b@example.com")
	require.NoError(t, err)
	require.Equal(t, 2, s.Count())
}

package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateSecretStoreGeneratesOnce(t *testing.T) {
	fs := afero.NewMemMapFs()

	s1, err := LoadOrCreateSecretStore(fs, "/data")
	require.NoError(t, err)
	require.NotEmpty(t, s1.BearerToken())
	require.NotEmpty(t, s1.SessionKey())

	s2, err := LoadOrCreateSecretStore(fs, "/data")
	require.NoError(t, err)
	require.Equal(t, s1.BearerToken(), s2.BearerToken(), "secrets must not be regenerated on subsequent opens")
	require.Equal(t, s1.SessionKey(), s2.SessionKey())
}

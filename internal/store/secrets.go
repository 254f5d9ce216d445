package store

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// authSecrets is the on-disk shape of auth.json.
type authSecrets struct {
	BearerToken  string `json:"bearerToken"`
	SessionKey   string `json:"sessionKey"`
}

// SecretStore owns the process-wide bearer token and session-cookie signing
// key, generated once on first start and written 0600.
type SecretStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex

	bearerToken string
	sessionKey  string
}

// LoadOrCreateSecretStore reads auth.json, generating and persisting new
// secrets if the file is absent or incomplete. Secrets are never rotated
// automatically once present.
func LoadOrCreateSecretStore(fs afero.Fs, dataDir string) (*SecretStore, error) {
	s := &SecretStore{fs: fs, path: filepath.Join(dataDir, "auth.json")}

	var secrets authSecrets
	readJSONTolerant(s.fs, s.path, &secrets)

	dirty := false
	if secrets.BearerToken == "" {
		secrets.BearerToken = uuid.NewString()
		dirty = true
	}
	if secrets.SessionKey == "" {
		secrets.SessionKey = uuid.NewString() + uuid.NewString()
		dirty = true
	}

	if dirty {
		if err := writeJSONAtomic(s.fs, s.path, secrets, 0o600); err != nil {
			return nil, err
		}
	}

	s.bearerToken = secrets.BearerToken
	s.sessionKey = secrets.SessionKey
	return s, nil
}

// BearerToken is the process-wide operator secret.
func (s *SecretStore) BearerToken() string { return s.bearerToken }

// SessionKey is used to sign/validate the session cookie value (the cookie
// carries the session id; this key authenticates that the id was minted by
// this server rather than guessed).
func (s *SecretStore) SessionKey() string { return s.sessionKey }

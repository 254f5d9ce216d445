package store

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/models"
)

// usersFile is the on-disk shape of users.json: an allow-list with an
// admin sub-set and a last-login cache, keyed by canonical email.
type usersFile struct {
	Users map[string]models.User `json:"users"`
}

// UserStore is the allow-list and admin registry. Admins is always a
// subset of the allow-list: Remove drops an email from both.
type UserStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewUserStore opens the user store rooted at dataDir.
func NewUserStore(fs afero.Fs, dataDir string) *UserStore {
	return &UserStore{fs: fs, path: filepath.Join(dataDir, "users.json")}
}

// Canonicalize lowercases and trims an email for use as a map key.
func Canonicalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) load() usersFile {
	var f usersFile
	readJSONTolerant(s.fs, s.path, &f)
	if f.Users == nil {
		f.Users = map[string]models.User{}
	}
	return f
}

func (s *UserStore) save(f usersFile) error {
	return writeJSONAtomic(s.fs, s.path, f, 0o644)
}

// ListAll returns every allow-listed user.
func (s *UserStore) ListAll() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	out := make([]models.User, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, u)
	}
	return out
}

// IsAllowed reports whether email (in any case/whitespace form) is on the
// allow-list.
func (s *UserStore) IsAllowed(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.load().Users[Canonicalize(email)]
	return ok
}

// IsAdmin reports whether email is an allow-listed admin.
func (s *UserStore) IsAdmin(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.load().Users[Canonicalize(email)]
	return ok && u.Admin
}

// Add is idempotent: adding an already-allow-listed email is a no-op that
// returns the existing record.
func (s *UserStore) Add(email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	key := Canonicalize(email)
	u, ok := f.Users[key]
	if !ok {
		u = models.User{Email: key}
		f.Users[key] = u
		if err := s.save(f); err != nil {
			return models.User{}, err
		}
	}
	return u, nil
}

// Remove drops email from the allow-list and, transitively, from the admin
// set.
func (s *UserStore) Remove(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	delete(f.Users, Canonicalize(email))
	return s.save(f)
}

// SetAdmin flips the admin flag for an allow-listed email. It is a no-op if
// the email is not allow-listed (admins must be a subset of the allow-list).
func (s *UserStore) SetAdmin(email string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	key := Canonicalize(email)
	u, ok := f.Users[key]
	if !ok {
		return nil
	}
	u.Admin = admin
	f.Users[key] = u
	return s.save(f)
}

// RecordLogin timestamps a login and caches the identity's display name and
// picture for the allow-listed email.
func (s *UserStore) RecordLogin(email string, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	key := Canonicalize(email)
	u, ok := f.Users[key]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	if identity.Name != "" {
		u.Name = identity.Name
	}
	if identity.Picture != "" {
		u.Picture = identity.Picture
	}
	f.Users[key] = u
	return s.save(f)
}

// Count returns the number of allow-listed users, used by the unauthenticated
// /auth/status endpoint.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load().Users)
}

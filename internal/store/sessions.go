package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/models"
)

// SessionTTL is the sliding expiry window from last activity.
const SessionTTL = 6 * time.Hour

// SessionStore is a directory-backed store with one file per session. A
// background reaper deletes expired sessions every 30 minutes; expired
// sessions are also swept once on startup.
type SessionStore struct {
	fs   afero.Fs
	dir  string
	mu   sync.Mutex
	cron *cron.Cron
}

// NewSessionStore opens the session directory under dataDir/sessions and
// sweeps any already-expired sessions.
func NewSessionStore(fs afero.Fs, dataDir string) (*SessionStore, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	s := &SessionStore{fs: fs, dir: dir}
	s.reap()
	return s, nil
}

// StartReaper launches the 30-minute reaper loop.
func (s *SessionStore) StartReaper() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 30m", s.reap); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the reaper.
func (s *SessionStore) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *SessionStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create persists a new session tied to identity and returns it.
func (s *SessionStore) Create(identity models.Identity, method models.SessionMethod) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := models.Session{
		ID:         uuid.NewString(),
		Email:      Canonicalize(identity.Email),
		Name:       identity.Name,
		Picture:    identity.Picture,
		Method:     method,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := writeJSONAtomic(s.fs, s.path(sess.ID), sess, 0o600); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// Get loads a session by id, touching its last-seen time if it is still
// alive. A missing or expired session returns ok=false.
func (s *SessionStore) Get(id string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess models.Session
	readJSONTolerant(s.fs, s.path(id), &sess)
	if sess.ID == "" {
		return models.Session{}, false
	}
	if sess.Expired(SessionTTL, time.Now().UTC()) {
		_ = s.fs.Remove(s.path(id))
		return models.Session{}, false
	}
	sess.LastSeenAt = time.Now().UTC()
	_ = writeJSONAtomic(s.fs, s.path(id), sess, 0o600)
	return sess, true
}

// Destroy deletes a session, if present. Used by logout and by allow-list
// removal.
func (s *SessionStore) Destroy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Remove(s.path(id))
}

// DestroyAllForEmail removes every session belonging to email, used when an
// admin removes the user from the allow-list.
func (s *SessionStore) DestroyAllForEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	canon := Canonicalize(email)
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var sess models.Session
		p := filepath.Join(s.dir, e.Name())
		readJSONTolerant(s.fs, p, &sess)
		if sess.Email == canon {
			_ = s.fs.Remove(p)
		}
	}
	return nil
}

func (s *SessionStore) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		var sess models.Session
		readJSONTolerant(s.fs, p, &sess)
		if sess.ID == "" || sess.Expired(SessionTTL, now) {
			_ = s.fs.Remove(p)
		}
	}
}

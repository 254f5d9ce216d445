// Package backup snapshots the file-backed JSON stores on a nightly
// schedule and prunes old snapshots, the way the teacher's pg_dump-based
// manager did for its database — adapted here to copy JSON documents
// instead of dumping a database.
package backup

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
)

// retentionDays is how many days of snapshots are kept.
const retentionDays = 7

// sourceFiles are the data files copied into every snapshot, relative to
// the data directory.
var sourceFiles = []string{"settings.json", "users.json", "aliases.json", "auth.json"}

// Manager runs the nightly snapshot and retention sweep.
type Manager struct {
	fs        afero.Fs
	dataDir   string
	backupDir string

	mu   sync.Mutex
	cron *cron.Cron
}

// New builds a Manager rooted at dataDir, snapshotting into
// dataDir/backups.
func New(fs afero.Fs, dataDir string) *Manager {
	return &Manager{fs: fs, dataDir: dataDir, backupDir: filepath.Join(dataDir, "backups")}
}

// manifest is the sidecar written alongside each snapshot describing what
// it contains.
type manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	Files     []string  `json:"files"`
}

// Start schedules a daily snapshot at 02:00 local time and runs the
// retention sweep right away.
func (m *Manager) Start() error {
	if err := m.fs.MkdirAll(m.backupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	m.prune(time.Now())

	c := cron.New()
	if _, err := c.AddFunc("0 2 * * *", func() {
		_, _ = m.Snapshot()
		m.prune(time.Now())
	}); err != nil {
		return fmt.Errorf("scheduling backup: %w", err)
	}
	c.Start()

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	return nil
}

// Stop halts the scheduled snapshot.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		m.cron.Stop()
	}
}

// Snapshot copies every source file present into a new dated subdirectory
// under backups/, alongside a manifest.json. Missing source files (e.g. no
// aliases ever saved) are skipped, not treated as an error.
func (m *Manager) Snapshot() (string, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	dir := filepath.Join(m.backupDir, stamp)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot dir: %w", err)
	}

	var copied []string
	for _, name := range sourceFiles {
		src := filepath.Join(m.dataDir, name)
		data, err := afero.ReadFile(m.fs, src)
		if err != nil {
			continue
		}
		dst := filepath.Join(dir, name)
		if err := afero.WriteFile(m.fs, dst, data, 0o644); err != nil {
			return "", fmt.Errorf("writing snapshot file %s: %w", name, err)
		}
		copied = append(copied, name)
	}

	man := manifest{CreatedAt: time.Now().UTC(), Files: copied}
	manBytes, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := afero.WriteFile(m.fs, filepath.Join(dir, "manifest.json"), manBytes, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}

	return dir, nil
}

// Backup describes one retained snapshot.
type Backup struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Files     []string  `json:"files"`
}

// List returns every retained snapshot, newest first.
func (m *Manager) List() ([]Backup, error) {
	entries, err := afero.ReadDir(m.fs, m.backupDir)
	if err != nil {
		return nil, nil
	}

	backups := make([]Backup, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.IsDir() {
			continue
		}
		var man manifest
		manPath := filepath.Join(m.backupDir, e.Name(), "manifest.json")
		data, err := afero.ReadFile(m.fs, manPath)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &man); err != nil {
			continue
		}
		backups = append(backups, Backup{Name: e.Name(), CreatedAt: man.CreatedAt, Files: man.Files})
	}
	return backups, nil
}

// prune removes snapshot directories older than retentionDays.
func (m *Manager) prune(now time.Time) {
	entries, err := afero.ReadDir(m.fs, m.backupDir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		stamp, err := time.Parse("20060102-150405", e.Name())
		if err != nil {
			continue
		}
		if stamp.Before(cutoff) {
			_ = m.fs.RemoveAll(filepath.Join(m.backupDir, e.Name()))
		}
	}
}

// Package logging writes one JSON object per line to a daily-rotating log
// file and prunes files older than the configured retention window.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Logger wraps a zerolog.Logger whose destination file rotates at local
// midnight. A filesystem failure on rotate or write never crashes the
// process — it falls back to stderr.
type Logger struct {
	fs            afero.Fs
	dir           string
	retentionDays int

	mu          sync.Mutex
	currentDate string
	file        afero.File
	zl          zerolog.Logger
	cron        *cron.Cron
}

// New creates a Logger writing under dir, pruning files older than
// retentionDays. It opens (or creates) today's file immediately and prunes
// once synchronously before returning, matching the spec's "on startup and
// once per day" retention rule.
func New(fs afero.Fs, dir string, retentionDays int) (*Logger, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	l := &Logger{fs: fs, dir: dir, retentionDays: retentionDays}
	if err := l.rotateLocked(time.Now()); err != nil {
		return nil, err
	}
	l.prune()

	l.cron = cron.New()
	// Re-check rotation and prune every hour; rotateLocked is a no-op unless
	// the calendar day has changed.
	_, err := l.cron.AddFunc("7 * * * *", func() {
		l.mu.Lock()
		_ = l.rotateLocked(time.Now())
		l.mu.Unlock()
		l.prune()
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling log rotation: %w", err)
	}
	l.cron.Start()

	return l, nil
}

func (l *Logger) rotateLocked(now time.Time) error {
	date := now.Format("2006-01-02")
	if date == l.currentDate && l.file != nil {
		return nil
	}

	path := filepath.Join(l.dir, fmt.Sprintf("web-%s.log", date))
	f, err := l.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Tolerant: fall back to stderr rather than crash.
		l.zl = zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.currentDate = date
		return nil
	}

	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.currentDate = date
	l.zl = zerolog.New(io.Writer(f)).With().Timestamp().Logger()
	return nil
}

// prune removes log files whose embedded date is older than retentionDays.
// Tolerant of filesystem errors.
func (l *Logger) prune() {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var y, m, d int
		if _, err := fmt.Sscanf(e.Name(), "web-%d-%d-%d.log", &y, &m, &d); err != nil {
			continue
		}
		fileDate := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		if fileDate.Before(cutoff) {
			_ = l.fs.Remove(filepath.Join(l.dir, e.Name()))
		}
	}
}

// Entry returns a zerolog event builder tied to the rotating file, pinned to
// the requested level.
func (l *Logger) Entry(level zerolog.Level) *zerolog.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.rotateLocked(time.Now())
	return l.zl.WithLevel(level)
}

func (l *Logger) Info() *zerolog.Event  { return l.Entry(zerolog.InfoLevel) }
func (l *Logger) Warn() *zerolog.Event  { return l.Entry(zerolog.WarnLevel) }
func (l *Logger) Error() *zerolog.Event { return l.Entry(zerolog.ErrorLevel) }

// Close stops the rotation scheduler and closes the current file.
func (l *Logger) Close() error {
	if l.cron != nil {
		l.cron.Stop()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package jobs implements the export job registry: starting a job, fanning
// its progress events out to any number of subscribers with full replay for
// late joiners, and garbage-collecting finished jobs after a grace period.
package jobs

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/models"
)

// subscriberBuffer is how many buffered events a subscriber channel holds
// before the manager considers it disconnected and evicts it.
const subscriberBuffer = 32

// retention is how long a terminal job's record (and its output file) is
// kept before GC removes it.
const retention = 30 * time.Minute

// Runner is supplied by the export orchestrator; it does the actual work and
// reports progress through emit. It must emit exactly one terminal event
// (Done or Error) before returning.
type Runner func(job *models.ExportJob, emit func(models.ProgressEvent))

// Manager owns every in-flight and recently finished export job. All
// progress events are routed through it; runners never talk to subscribers
// directly.
type Manager struct {
	fs afero.Fs

	mu         sync.Mutex
	jobs       map[string]*jobEntry
	finishedAt map[string]time.Time
}

type jobEntry struct {
	mu          sync.Mutex
	job         *models.ExportJob
	subscribers map[int]chan models.ProgressEvent
	nextSubID   int
}

// New builds an empty Manager. fs is used by GC to remove a finished job's
// output file alongside its record.
func New(fs afero.Fs) *Manager {
	return &Manager{
		fs:         fs,
		jobs:       map[string]*jobEntry{},
		finishedAt: map[string]time.Time{},
	}
}

// Start registers a new job and runs run in its own goroutine, returning the
// new job's id immediately.
func (m *Manager) Start(run Runner) string {
	id := uuid.NewString()
	job := &models.ExportJob{
		ID:        id,
		Status:    models.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	entry := &jobEntry{
		job:         job,
		subscribers: map[int]chan models.ProgressEvent{},
	}

	m.mu.Lock()
	m.jobs[id] = entry
	m.mu.Unlock()

	go func() {
		run(job, func(evt models.ProgressEvent) {
			m.record(id, evt)
		})
	}()

	return id
}

func (m *Manager) record(id string, evt models.ProgressEvent) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	entry.job.ProgressLog = append(entry.job.ProgressLog, evt)
	switch evt.Type {
	case models.EventDone:
		entry.job.Status = models.JobComplete
		entry.job.FilePath = evt.FilePath
		entry.job.FileName = evt.FileName
	case models.EventError:
		entry.job.Status = models.JobError
		entry.job.ErrorMessage = evt.Message
	default:
		entry.job.Status = models.JobRunning
	}
	for subID, ch := range entry.subscribers {
		select {
		case ch <- evt:
		default:
			// Subscriber too slow or gone; evict it silently rather than
			// block the job.
			delete(entry.subscribers, subID)
			close(ch)
		}
	}
	terminal := evt.Terminal()
	entry.mu.Unlock()

	if terminal {
		m.mu.Lock()
		m.finishedAt[id] = time.Now()
		m.mu.Unlock()
	}
}

// Subscribe registers sink for id's future events, first replaying every
// event already recorded. It returns an unsubscribe func and false if the
// job does not exist. If the job is already terminal, the channel is closed
// immediately after the replay.
func (m *Manager) Subscribe(id string) (<-chan models.ProgressEvent, func(), bool) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	entry.mu.Lock()
	ch := make(chan models.ProgressEvent, subscriberBuffer+len(entry.job.ProgressLog))
	for _, evt := range entry.job.ProgressLog {
		ch <- evt
	}
	alreadyTerminal := entry.job.Status == models.JobComplete || entry.job.Status == models.JobError
	subID := entry.nextSubID
	entry.nextSubID++
	if !alreadyTerminal {
		entry.subscribers[subID] = ch
	}
	entry.mu.Unlock()

	if alreadyTerminal {
		close(ch)
		return ch, func() {}, true
	}

	unsubscribe := func() {
		entry.mu.Lock()
		if c, ok := entry.subscribers[subID]; ok {
			delete(entry.subscribers, subID)
			close(c)
		}
		entry.mu.Unlock()
	}
	return ch, unsubscribe, true
}

// Get returns a snapshot of a job's current state.
func (m *Manager) Get(id string) (models.ExportJob, bool) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return models.ExportJob{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return *entry.job, true
}

// DownloadPath returns the completed job's output file path.
func (m *Manager) DownloadPath(id string) (string, string, bool) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return "", "", false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.job.Status != models.JobComplete || entry.job.FilePath == "" {
		return "", "", false
	}
	return entry.job.FilePath, entry.job.FileName, true
}

// GC removes job records (and closes any lingering subscriber channels)
// whose terminal event is older than retention. Call periodically from a
// background loop.
func (m *Manager) GC(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, finishedAt := range m.finishedAt {
		if now.Sub(finishedAt) < retention {
			continue
		}
		if entry, ok := m.jobs[id]; ok {
			entry.mu.Lock()
			for subID, ch := range entry.subscribers {
				delete(entry.subscribers, subID)
				close(ch)
			}
			filePath := entry.job.FilePath
			entry.mu.Unlock()

			if filePath != "" && m.fs != nil {
				if err := m.fs.Remove(filePath); err != nil && !os.IsNotExist(err) {
					continue
				}
			}
		}
		delete(m.jobs, id)
		delete(m.finishedAt, id)
	}
}

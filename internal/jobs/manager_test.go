package jobs

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/churchstage/presenter-proxy/internal/models"
)

func waitFor(t *testing.T, ch <-chan models.ProgressEvent, want models.ProgressEventType) models.ProgressEvent {
	t.Helper()
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed before seeing %s", want)
			}
			if evt.Type == want {
				return evt
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestSubscribeReplaysHistoryThenLiveEvents(t *testing.T) {
	m := New(afero.NewMemMapFs())
	started := make(chan struct{})
	resume := make(chan struct{})

	id := m.Start(func(job *models.ExportJob, emit func(models.ProgressEvent)) {
		emit(models.ProgressEvent{Type: models.EventPlaylistStart, TotalItems: 2})
		close(started)
		<-resume
		emit(models.ProgressEvent{Type: models.EventDone, FilePath: "/tmp/out.pptx", FileName: "out.pptx"})
	})

	<-started

	ch, unsubscribe, ok := m.Subscribe(id)
	require.True(t, ok)
	defer unsubscribe()

	waitFor(t, ch, models.EventPlaylistStart)

	close(resume)
	done := waitFor(t, ch, models.EventDone)
	require.True(t, done.Terminal())

	path, name, ok := m.DownloadPath(id)
	require.True(t, ok)
	require.Equal(t, "/tmp/out.pptx", path)
	require.Equal(t, "out.pptx", name)

	job, ok := m.Get(id)
	require.True(t, ok)
	require.Equal(t, models.JobComplete, job.Status)
}

func TestJobEmitsExactlyOneTerminalEvent(t *testing.T) {
	m := New(afero.NewMemMapFs())
	done := make(chan struct{})

	id := m.Start(func(job *models.ExportJob, emit func(models.ProgressEvent)) {
		emit(models.ProgressEvent{Type: models.EventPlaylistStart, TotalItems: 1})
		emit(models.ProgressEvent{Type: models.EventDone, FilePath: "/tmp/a.pptx", FileName: "a.pptx"})
		close(done)
	})

	<-done
	// Give record() time to process the final event before subscribing.
	time.Sleep(20 * time.Millisecond)

	ch, _, ok := m.Subscribe(id)
	require.True(t, ok)

	terminalCount := 0
	for evt := range ch {
		if evt.Terminal() {
			terminalCount++
		}
	}
	require.Equal(t, 1, terminalCount)
}

func TestSubscribeUnknownJobReturnsFalse(t *testing.T) {
	m := New(afero.NewMemMapFs())
	_, _, ok := m.Subscribe("does-not-exist")
	require.False(t, ok)
}

func TestDownloadPathNotReadyUntilComplete(t *testing.T) {
	m := New(afero.NewMemMapFs())
	release := make(chan struct{})
	id := m.Start(func(job *models.ExportJob, emit func(models.ProgressEvent)) {
		emit(models.ProgressEvent{Type: models.EventPlaylistStart})
		<-release
		emit(models.ProgressEvent{Type: models.EventDone, FilePath: "/tmp/b.pptx", FileName: "b.pptx"})
	})

	_, _, ok := m.DownloadPath(id)
	require.False(t, ok)
	close(release)
}

func TestSlowSubscriberNeverBlocksRecording(t *testing.T) {
	m := New(afero.NewMemMapFs())
	id := m.Start(func(job *models.ExportJob, emit func(models.ProgressEvent)) {
		for i := 0; i < subscriberBuffer+10; i++ {
			emit(models.ProgressEvent{Type: models.EventInfo, Message: "tick"})
		}
		emit(models.ProgressEvent{Type: models.EventDone, FilePath: "/tmp/c.pptx", FileName: "c.pptx"})
	})

	// Never read from the subscriber channel; the runner must still reach
	// a terminal state because record() sends are non-blocking.
	_, unsubscribe, ok := m.Subscribe(id)
	require.True(t, ok)
	defer unsubscribe()

	require.Eventually(t, func() bool {
		job, ok := m.Get(id)
		return ok && job.Status == models.JobComplete
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGCRemovesOnlyExpiredTerminalJobs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/d.pptx", []byte("deck"), 0o644))

	m := New(fs)
	done := make(chan struct{})
	id := m.Start(func(job *models.ExportJob, emit func(models.ProgressEvent)) {
		emit(models.ProgressEvent{Type: models.EventDone, FilePath: "/tmp/d.pptx", FileName: "d.pptx"})
		close(done)
	})
	<-done
	time.Sleep(20 * time.Millisecond)

	m.GC(time.Now())
	_, ok := m.Get(id)
	require.True(t, ok, "job should survive GC before retention elapses")
	exists, err := afero.Exists(fs, "/tmp/d.pptx")
	require.NoError(t, err)
	require.True(t, exists, "file should survive GC before retention elapses")

	m.GC(time.Now().Add(retention + time.Minute))
	_, ok = m.Get(id)
	require.False(t, ok, "job should be reaped once retention has elapsed")
	exists, err = afero.Exists(fs, "/tmp/d.pptx")
	require.NoError(t, err)
	require.False(t, exists, "the job's output file should be removed alongside its record")
}

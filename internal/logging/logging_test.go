package logging

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestNewPrunesOldFilesOnStartup(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data/logs"
	require.NoError(t, fs.MkdirAll(dir, 0o755))

	oldDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	recentDate := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	require.NoError(t, afero.WriteFile(fs, fmt.Sprintf("%s/web-%s.log", dir, oldDate), []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fs, fmt.Sprintf("%s/web-%s.log", dir, recentDate), []byte("recent"), 0o644))

	l, err := New(fs, dir, 14)
	require.NoError(t, err)
	defer l.Close()

	exists, err := afero.Exists(fs, fmt.Sprintf("%s/web-%s.log", dir, oldDate))
	require.NoError(t, err)
	require.False(t, exists, "a log file older than the retention window must be pruned")

	exists, err = afero.Exists(fs, fmt.Sprintf("%s/web-%s.log", dir, recentDate))
	require.NoError(t, err)
	require.True(t, exists, "a log file within the retention window must survive pruning")
}

func TestNewOpensTodayFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data/logs"

	l, err := New(fs, dir, 14)
	require.NoError(t, err)
	defer l.Close()

	today := time.Now().Format("2006-01-02")
	exists, err := afero.Exists(fs, fmt.Sprintf("%s/web-%s.log", dir, today))
	require.NoError(t, err)
	require.True(t, exists)
}

func TestInfoWarnErrorDoNotPanic(t *testing.T) {
	fs := afero.NewMemMapFs()
	l, err := New(fs, "/data/logs", 14)
	require.NoError(t, err)
	defer l.Close()

	l.Info().Msg("ok")
	l.Warn().Msg("careful")
	l.Error().Msg("bad")
}

package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/churchstage/presenter-proxy/internal/jobs"
	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/presenter"
	"github.com/churchstage/presenter-proxy/internal/store"
)

func TestSlugRules(t *testing.T) {
	require.Equal(t, "sunday-set", slug("Sunday Set!!"))
	require.Equal(t, "playlist", slug("   "))
	require.Equal(t, "playlist", slug("###"))

	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	require.LessOrEqual(t, len(slug(long)), 60)
}

type stubLyrics struct {
	lines []string
	err   error
}

func (s stubLyrics) Extract(p presenter.Presentation) ([]string, error) {
	return s.lines, s.err
}

type stubDeck struct {
	path string
	err  error
}

func (s stubDeck) Build(ctx context.Context, outputDir string, style models.DeckStyle, songs []Song) (string, error) {
	return s.path, s.err
}

func newFakePresenterServer(t *testing.T, items []presenter.PlaylistItem, pres presenter.Presentation) (*presenter.Client, func()) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists/playlist-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(items)
	})
	mux.HandleFunc("/presentations/pres-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pres)
	})
	mux.HandleFunc("/presentations/pres-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(presenter.Presentation{Title: "Hymn Of Heaven"})
	})
	mux.HandleFunc("/libraries", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]presenter.Library{{UUID: "lib-1", Name: "Worship"}})
	})
	mux.HandleFunc("/libraries/lib-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]presenter.LibraryPresentation{{UUID: "pres-1", Name: "Amazing Grace"}})
	})
	srv := httptest.NewServer(mux)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	client := presenter.New(presenter.Config{Host: u.Hostname(), Port: port})
	return client, srv.Close
}

func runAndCollect(t *testing.T, o *Orchestrator, req models.ExportRequest) []models.ProgressEvent {
	t.Helper()
	mgr := jobs.New(afero.NewMemMapFs())
	id := o.Start(mgr, req)

	ch, unsubscribe, ok := mgr.Subscribe(id)
	require.True(t, ok)
	defer unsubscribe()

	var events []models.ProgressEvent
	for evt := range ch {
		events = append(events, evt)
		if evt.Terminal() {
			break
		}
	}
	return events
}

func TestExportSucceedsWithSongsCollected(t *testing.T) {
	items := []presenter.PlaylistItem{
		{UUID: "item-1", Name: "Header", IsHeader: true},
		{UUID: "item-2", Name: "Amazing Grace", PresentationUUID: "pres-1"},
	}
	pres := presenter.Presentation{Title: "Amazing Grace", Slides: []presenter.Slide{{Text: "line one"}}}

	client, closeSrv := newFakePresenterServer(t, items, pres)
	defer closeSrv()

	fs := afero.NewMemMapFs()
	settings := store.NewSettingsStore(fs, "/data")
	aliases := store.NewAliasStore(fs, "/data")
	lyrics := stubLyrics{lines: []string{"Amazing grace, how sweet the sound"}}
	deck := stubDeck{path: "/data/exports/out.pptx"}

	o := New(client, settings, aliases, lyrics, deck, fs, "/data/exports")

	events := runAndCollect(t, o, models.ExportRequest{PlaylistID: "playlist-1", PlaylistName: "Sunday Set"})

	last := events[len(events)-1]
	require.Equal(t, models.EventDone, last.Type)
	require.Equal(t, "sunday-set.pptx", last.FileName)
	require.Contains(t, last.DownloadURL, "/download")

	require.Equal(t, "playlist-1", settings.Load().LastPlaylistID)
}

func TestExportSkipsItemsOutsideMatchedLibrary(t *testing.T) {
	items := []presenter.PlaylistItem{
		{UUID: "item-1", Name: "Header", IsHeader: true},
		{UUID: "item-2", Name: "Amazing Grace", PresentationUUID: "pres-1"},
		{UUID: "item-3", Name: "Hymn Of Heaven", PresentationUUID: "pres-2"},
	}
	pres := presenter.Presentation{Title: "Amazing Grace", Slides: []presenter.Slide{{Text: "line one"}}}

	client, closeSrv := newFakePresenterServer(t, items, pres)
	defer closeSrv()

	fs := afero.NewMemMapFs()
	settings := store.NewSettingsStore(fs, "/data")
	aliases := store.NewAliasStore(fs, "/data")
	lyrics := stubLyrics{lines: []string{"Amazing grace, how sweet the sound"}}
	deck := stubDeck{path: "/data/exports/out.pptx"}

	o := New(client, settings, aliases, lyrics, deck, fs, "/data/exports")

	events := runAndCollect(t, o, models.ExportRequest{
		PlaylistID:    "playlist-1",
		PlaylistName:  "Sunday Set",
		LibraryFilter: "worship", // case-insensitive match against "Worship"
	})

	var skippedNames []string
	for _, evt := range events {
		if evt.Type == models.EventPlaylistItemSkip {
			skippedNames = append(skippedNames, evt.ItemName)
		}
	}
	require.Contains(t, skippedNames, "Header")
	require.Contains(t, skippedNames, "Hymn Of Heaven", "an item whose presentation isn't in the matched library must be skipped")
	require.NotContains(t, skippedNames, "Amazing Grace")

	last := events[len(events)-1]
	require.Equal(t, models.EventDone, last.Type)
}

func TestExportFailsWhenNoSongsResolved(t *testing.T) {
	items := []presenter.PlaylistItem{
		{UUID: "item-1", Name: "Amazing Grace", PresentationUUID: "pres-1"},
	}
	pres := presenter.Presentation{Title: "Amazing Grace"}

	client, closeSrv := newFakePresenterServer(t, items, pres)
	defer closeSrv()

	fs := afero.NewMemMapFs()
	settings := store.NewSettingsStore(fs, "/data")
	aliases := store.NewAliasStore(fs, "/data")
	lyrics := stubLyrics{lines: nil}
	deck := stubDeck{path: "/data/exports/out.pptx"}

	o := New(client, settings, aliases, lyrics, deck, fs, "/data/exports")

	events := runAndCollect(t, o, models.ExportRequest{PlaylistID: "playlist-1", PlaylistName: "Empty Set"})

	last := events[len(events)-1]
	require.Equal(t, models.EventError, last.Type)
}

func TestExportReportsErrorWhenDeckBuilderNotConfigured(t *testing.T) {
	items := []presenter.PlaylistItem{
		{UUID: "item-1", Name: "Amazing Grace", PresentationUUID: "pres-1"},
	}
	pres := presenter.Presentation{Title: "Amazing Grace", Slides: []presenter.Slide{{Text: "line one"}}}

	client, closeSrv := newFakePresenterServer(t, items, pres)
	defer closeSrv()

	fs := afero.NewMemMapFs()
	settings := store.NewSettingsStore(fs, "/data")
	aliases := store.NewAliasStore(fs, "/data")
	lyrics := stubLyrics{lines: []string{"line"}}

	o := New(client, settings, aliases, lyrics, nil, fs, "/data/exports")

	events := runAndCollect(t, o, models.ExportRequest{PlaylistID: "playlist-1", PlaylistName: "Set"})

	last := events[len(events)-1]
	require.Equal(t, models.EventError, last.Type)
	require.Contains(t, last.Message, "deck generation not configured")
}

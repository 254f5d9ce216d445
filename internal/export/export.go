// Package export orchestrates a playlist export: resolving the library
// filter, walking the playlist's items, delegating lyrics extraction and
// deck generation, and reporting every step as a job progress event.
package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/jobs"
	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/presenter"
	"github.com/churchstage/presenter-proxy/internal/store"
)

// LyricsExtractor turns a presentation's slides into display-ready lyric
// blocks. The real extractor is a separate concern outside this module's
// scope; callers supply an implementation.
type LyricsExtractor interface {
	Extract(p presenter.Presentation) ([]string, error)
}

// DeckBuilder renders a set of songs into an output deck file on disk and
// returns its path. The real renderer is outside this module's scope;
// callers supply an implementation.
type DeckBuilder interface {
	Build(ctx context.Context, outputDir string, style models.DeckStyle, songs []Song) (path string, err error)
}

// Song is one playlist entry resolved down to its lyrics, ready for the
// deck builder.
type Song struct {
	Title  string
	Lyrics []string
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// slug normalizes a playlist name into a safe file name stem: lowercase,
// non-alphanumeric runs collapsed to a single hyphen, trimmed, clamped to 60
// characters, defaulting to "playlist" if nothing usable survives.
func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnumRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = s[:60]
		s = strings.Trim(s, "-")
	}
	if s == "" {
		return "playlist"
	}
	return s
}

// Orchestrator runs export jobs against one Presenter client.
type Orchestrator struct {
	client    *presenter.Client
	settings  *store.SettingsStore
	aliases   *store.AliasStore
	lyrics    LyricsExtractor
	deck      DeckBuilder
	fs        afero.Fs
	outputDir string
}

// New builds an Orchestrator. lyrics and deck may be nil if those features
// are not wired in a given deployment; a job started through Start then
// ends with an error event.
func New(client *presenter.Client, settings *store.SettingsStore, aliases *store.AliasStore, lyrics LyricsExtractor, deck DeckBuilder, fs afero.Fs, outputDir string) *Orchestrator {
	return &Orchestrator{client: client, settings: settings, aliases: aliases, lyrics: lyrics, deck: deck, fs: fs, outputDir: outputDir}
}

// Start kicks off an export as a jobs.Manager job and returns the new job id.
func (o *Orchestrator) Start(mgr *jobs.Manager, req models.ExportRequest) string {
	return mgr.Start(func(job *models.ExportJob, emit func(models.ProgressEvent)) {
		o.run(context.Background(), job.ID, req, emit)
	})
}

func (o *Orchestrator) run(ctx context.Context, jobID string, req models.ExportRequest, emit func(models.ProgressEvent)) {
	now := func() time.Time { return time.Now().UTC() }

	settings := o.settings.Load()

	libraryFilter := req.LibraryFilter
	if libraryFilter == "" {
		libraryFilter = settings.LibraryFilter
	}

	// eligiblePresentations is nil when no library filter is in effect, in
	// which case every playlist item is eligible. Once a library matches, it
	// holds exactly that library's presentation uuids and every item whose
	// PresentationUUID isn't a member is skipped.
	var eligiblePresentations map[string]bool

	if libraryFilter != "" {
		emit(models.ProgressEvent{Type: models.EventLibrarySearch, At: now(), Library: libraryFilter})
		libs := o.client.ListLibraries(ctx)
		matchedUUID := ""
		for _, lib := range libs {
			if strings.EqualFold(lib.Name, libraryFilter) || lib.UUID == libraryFilter {
				matchedUUID = lib.UUID
				break
			}
		}
		if matchedUUID == "" {
			emit(models.ProgressEvent{Type: models.EventLibraryNotFound, At: now(), Library: libraryFilter})
		} else {
			presentations, err := o.client.ListLibraryPresentations(ctx, matchedUUID)
			if err != nil {
				emit(models.ProgressEvent{Type: models.EventLibraryNotFound, At: now(), Library: libraryFilter})
			} else {
				eligiblePresentations = make(map[string]bool, len(presentations))
				for _, p := range presentations {
					eligiblePresentations[p.UUID] = true
				}
			}
		}
	}

	items, err := o.client.PlaylistItems(ctx, req.PlaylistID)
	if err != nil {
		emit(models.ProgressEvent{Type: models.EventError, At: now(), Message: "listing playlist items: " + err.Error()})
		return
	}

	emit(models.ProgressEvent{Type: models.EventPlaylistStart, At: now(), TotalItems: len(items)})

	includeTitles := settings.IncludeTitles
	if req.IncludeTitles != nil {
		includeTitles = *req.IncludeTitles
	}
	style := settings.DeckStyle
	if req.StyleOverrides != nil {
		style = *req.StyleOverrides
	}

	songs := make([]Song, 0, len(items))
	for _, item := range items {
		if item.IsHeader || item.PresentationUUID == "" {
			emit(models.ProgressEvent{Type: models.EventPlaylistItemSkip, At: now(), ItemName: item.Name})
			continue
		}
		if eligiblePresentations != nil && !eligiblePresentations[item.PresentationUUID] {
			emit(models.ProgressEvent{Type: models.EventPlaylistItemSkip, At: now(), ItemName: item.Name})
			continue
		}

		emit(models.ProgressEvent{Type: models.EventPlaylistItemStart, At: now(), ItemName: item.Name})

		pres, err := o.client.GetPresentation(ctx, item.PresentationUUID)
		if err != nil {
			emit(models.ProgressEvent{Type: models.EventPlaylistItemErr, At: now(), ItemName: item.Name, Message: err.Error()})
			continue
		}

		if o.lyrics == nil {
			emit(models.ProgressEvent{Type: models.EventPlaylistItemErr, At: now(), ItemName: item.Name, Message: "lyrics extraction not configured"})
			continue
		}
		lyrics, err := o.lyrics.Extract(pres)
		if err != nil || len(lyrics) == 0 {
			emit(models.ProgressEvent{Type: models.EventPlaylistItemErr, At: now(), ItemName: item.Name, Message: "no lyrics found"})
			continue
		}

		title := ""
		if includeTitles {
			title = pres.Title
		}
		songs = append(songs, Song{Title: title, Lyrics: lyrics})
		emit(models.ProgressEvent{Type: models.EventPlaylistItemOK, At: now(), ItemName: item.Name})
	}

	if len(songs) == 0 {
		emit(models.ProgressEvent{Type: models.EventError, At: now(), Message: "no songs could be resolved from this playlist"})
		return
	}

	if o.deck == nil {
		emit(models.ProgressEvent{Type: models.EventError, At: now(), Message: "deck generation not configured"})
		return
	}

	emit(models.ProgressEvent{Type: models.EventPptxStart, At: now()})
	stem := slug(req.PlaylistName)
	path, err := o.deck.Build(ctx, o.outputDir, style, songs)
	if err != nil {
		emit(models.ProgressEvent{Type: models.EventError, At: now(), Message: "building deck: " + err.Error()})
		return
	}
	emit(models.ProgressEvent{Type: models.EventPptxComplete, At: now()})

	fileName := fmt.Sprintf("%s.pptx", stem)

	if err := o.settings.SetLastPlaylistID(req.PlaylistID); err != nil {
		emit(models.ProgressEvent{Type: models.EventWarning, At: now(), Message: "could not persist last playlist: " + err.Error()})
	}

	emit(models.ProgressEvent{
		Type:        models.EventDone,
		At:          now(),
		DownloadURL: "/api/export/" + jobID + "/download",
		FilePath:    path,
		FileName:    fileName,
	})
}

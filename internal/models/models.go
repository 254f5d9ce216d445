// Package models holds the data shapes shared across stores, the job
// manager, the viewer service, and the HTTP router.
package models

import "time"

// DeckStyle describes how the generated slide deck should render text.
type DeckStyle struct {
	TextColor     string `json:"textColor"`
	FontFace      string `json:"fontFace"`
	FontSize      int    `json:"fontSize"`
	TitleFontSize int    `json:"titleFontSize"`
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
}

// FeatureFlags is an open bag of booleans the SPA can toggle without a
// schema migration.
type FeatureFlags map[string]bool

// Settings is the single mapping persisted to settings.json.
type Settings struct {
	PresenterHost  string       `json:"presenterHost"`
	PresenterPort  int          `json:"presenterPort"`
	LibraryFilter  string       `json:"libraryFilter,omitempty"`
	IncludeTitles  bool         `json:"includeTitles"`
	DeckStyle      DeckStyle    `json:"deckStyle"`
	LogoPath       string       `json:"logoPath,omitempty"`
	LastPlaylistID string       `json:"lastPlaylistId,omitempty"`
	FeatureFlags   FeatureFlags `json:"featureFlags"`
	TunnelURL      string       `json:"tunnelUrl,omitempty"`
}

// DefaultSettings returns the settings a fresh install starts from.
func DefaultSettings() Settings {
	return Settings{
		PresenterHost: "127.0.0.1",
		PresenterPort: 1025,
		IncludeTitles: true,
		DeckStyle: DeckStyle{
			TextColor:     "#FFFFFF",
			FontFace:      "Helvetica",
			FontSize:      48,
			TitleFontSize: 60,
			Bold:          false,
			Italic:        false,
		},
		FeatureFlags: FeatureFlags{},
	}
}

// User is an allow-listed identity, keyed by canonicalized email.
type User struct {
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Picture   string     `json:"picture,omitempty"`
	Admin     bool       `json:"admin"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Identity is what an OAuth callback (or a bearer request) presents.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Alias maps a normalized song title to a Presenter presentation.
type Alias struct {
	PresentationUUID string `json:"presentationUuid"`
	DisplayName      string `json:"name"`
}

// SessionMethod is how a session was established.
type SessionMethod string

const (
	SessionMethodOAuth  SessionMethod = "oauth"
	SessionMethodBearer SessionMethod = "bearer"
)

// Session is a server-side record behind an opaque session cookie.
type Session struct {
	ID         string        `json:"id"`
	Email      string        `json:"email"`
	Name       string        `json:"name,omitempty"`
	Picture    string        `json:"picture,omitempty"`
	Method     SessionMethod `json:"method"`
	CreatedAt  time.Time     `json:"createdAt"`
	LastSeenAt time.Time     `json:"lastSeenAt"`
}

// Expired reports whether the session has exceeded its sliding TTL.
func (s Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastSeenAt) > ttl
}

// JobStatus is the lifecycle state of an export job.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobError    JobStatus = "error"
)

// ExportRequest is the body of POST /api/export.
type ExportRequest struct {
	PlaylistID     string     `json:"playlistId"`
	PlaylistName   string     `json:"playlistName"`
	LibraryFilter  string     `json:"libraryFilter,omitempty"`
	IncludeTitles  *bool      `json:"includeTitles,omitempty"`
	StyleOverrides *DeckStyle `json:"styleOverrides,omitempty"`
	LogoPath       string     `json:"logoPath,omitempty"`
}

// ProgressEventType tags the variant of a progress event.
type ProgressEventType string

const (
	EventLibrarySearch     ProgressEventType = "library:search"
	EventLibraryNotFound   ProgressEventType = "library:not-found"
	EventPlaylistStart     ProgressEventType = "playlist:start"
	EventPlaylistItemStart ProgressEventType = "playlist:item:start"
	EventPlaylistItemOK    ProgressEventType = "playlist:item:success"
	EventPlaylistItemErr   ProgressEventType = "playlist:item:error"
	EventPlaylistItemSkip  ProgressEventType = "playlist:item:skip"
	EventInfo              ProgressEventType = "info"
	EventWarning           ProgressEventType = "warning"
	EventPptxStart         ProgressEventType = "pptx:start"
	EventPptxComplete      ProgressEventType = "pptx:complete"
	EventDone              ProgressEventType = "done"
	EventError             ProgressEventType = "error"
)

// ProgressEvent is one entry in a job's ordered progress log.
type ProgressEvent struct {
	Type        ProgressEventType `json:"type"`
	At          time.Time         `json:"at"`
	Library     string            `json:"library,omitempty"`
	TotalItems  int               `json:"totalItems,omitempty"`
	ItemName    string            `json:"itemName,omitempty"`
	Message     string            `json:"message,omitempty"`
	DownloadURL string            `json:"downloadUrl,omitempty"`
	FilePath    string            `json:"-"`
	FileName    string            `json:"-"`
}

// Terminal reports whether this event ends a job's stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// ExportJob is the in-memory record the job manager owns exclusively.
type ExportJob struct {
	ID           string
	Status       JobStatus
	CreatedAt    time.Time
	ProgressLog  []ProgressEvent
	FilePath     string
	FileName     string
	ErrorMessage string
}

// ViewerStatus mirrors the Presenter's live slide state as last observed by
// the poller.
type ViewerStatus struct {
	Connected         bool   `json:"connected"`
	PresenterVersion  string `json:"presenterVersion,omitempty"`
	PresentationUUID  string `json:"presentationUuid,omitempty"`
	SlideIndex        int    `json:"slideIndex"`
	CurrentText       string `json:"currentText"`
	NextText          string `json:"nextText"`
}

// ViewerEventType tags a viewer fan-out event.
type ViewerEventType string

const (
	ViewerConnected    ViewerEventType = "connected"
	ViewerDisconnected ViewerEventType = "disconnected"
	ViewerSlideChange  ViewerEventType = "slideChange"
)

// ViewerEvent is what the viewer service publishes to subscribers.
type ViewerEvent struct {
	Type   ViewerEventType `json:"type"`
	Status ViewerStatus    `json:"status"`
}

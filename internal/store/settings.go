package store

import (
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/models"
)

// SettingsStore persists the single app-settings mapping to settings.json.
type SettingsStore struct {
	fs   afero.Fs
	path string
	mu   sync.RWMutex
}

// NewSettingsStore opens (without yet reading) the settings store rooted at
// dataDir.
func NewSettingsStore(fs afero.Fs, dataDir string) *SettingsStore {
	return &SettingsStore{fs: fs, path: filepath.Join(dataDir, "settings.json")}
}

// Load returns the persisted settings merged over defaults. Missing or
// malformed files fall back to defaults entirely.
func (s *SettingsStore) Load() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := models.DefaultSettings()
	readJSONTolerant(s.fs, s.path, &settings)
	if settings.FeatureFlags == nil {
		settings.FeatureFlags = models.FeatureFlags{}
	}
	return settings
}

// Save merges partial over the current settings and persists the union.
func (s *SettingsStore) Save(partial models.Settings) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := models.DefaultSettings()
	readJSONTolerant(s.fs, s.path, &current)

	merged := mergeSettings(current, partial)

	if err := writeJSONAtomic(s.fs, s.path, merged, 0o644); err != nil {
		return models.Settings{}, err
	}
	return merged, nil
}

// SetLastPlaylistID records the most recently exported playlist without
// disturbing any other setting.
func (s *SettingsStore) SetLastPlaylistID(playlistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := models.DefaultSettings()
	readJSONTolerant(s.fs, s.path, &current)
	current.LastPlaylistID = playlistID
	return writeJSONAtomic(s.fs, s.path, current, 0o644)
}

// mergeSettings overlays any non-zero field of partial onto base, the deck
// style field by field. Booleans (including the deck style's Bold and Italic)
// are always taken from partial since the caller always supplies a full
// partial struct built from a PUT body.
func mergeSettings(base, partial models.Settings) models.Settings {
	merged := base
	if partial.PresenterHost != "" {
		merged.PresenterHost = partial.PresenterHost
	}
	if partial.PresenterPort != 0 {
		merged.PresenterPort = partial.PresenterPort
	}
	if partial.LibraryFilter != "" {
		merged.LibraryFilter = partial.LibraryFilter
	}
	merged.IncludeTitles = partial.IncludeTitles
	if partial.LogoPath != "" {
		merged.LogoPath = partial.LogoPath
	}
	if partial.LastPlaylistID != "" {
		merged.LastPlaylistID = partial.LastPlaylistID
	}
	if partial.TunnelURL != "" {
		merged.TunnelURL = partial.TunnelURL
	}
	merged.DeckStyle = mergeDeckStyle(base.DeckStyle, partial.DeckStyle)
	if partial.FeatureFlags != nil {
		if merged.FeatureFlags == nil {
			merged.FeatureFlags = models.FeatureFlags{}
		}
		for k, v := range partial.FeatureFlags {
			merged.FeatureFlags[k] = v
		}
	}
	return merged
}

func mergeDeckStyle(base, partial models.DeckStyle) models.DeckStyle {
	merged := base
	if partial.TextColor != "" {
		merged.TextColor = partial.TextColor
	}
	if partial.FontFace != "" {
		merged.FontFace = partial.FontFace
	}
	if partial.FontSize != 0 {
		merged.FontSize = partial.FontSize
	}
	if partial.TitleFontSize != 0 {
		merged.TitleFontSize = partial.TitleFontSize
	}
	merged.Bold = partial.Bold
	merged.Italic = partial.Italic
	return merged
}

package store

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/models"
)

type aliasesFile struct {
	Aliases map[string]models.Alias `json:"aliases"`
}

// AliasStore maps a normalized song title to a Presenter presentation.
type AliasStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewAliasStore opens the alias store rooted at dataDir.
func NewAliasStore(fs afero.Fs, dataDir string) *AliasStore {
	return &AliasStore{fs: fs, path: filepath.Join(dataDir, "aliases.json")}
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases a title, strips punctuation, and collapses
// whitespace, producing the alias store's primary key.
func Normalize(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	collapsed := nonAlnumRun.ReplaceAllString(lower, " ")
	return strings.TrimSpace(collapsed)
}

func (s *AliasStore) load() aliasesFile {
	var f aliasesFile
	readJSONTolerant(s.fs, s.path, &f)
	if f.Aliases == nil {
		f.Aliases = map[string]models.Alias{}
	}
	return f
}

func (s *AliasStore) save(f aliasesFile) error {
	return writeJSONAtomic(s.fs, s.path, f, 0o644)
}

// Load returns every normalized-title -> alias mapping.
func (s *AliasStore) Load() map[string]models.Alias {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Aliases
}

// Set overwrites any existing entry at the normalized key (idempotent:
// calling it twice with the same title yields one entry).
func (s *AliasStore) Set(title string, alias models.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	f.Aliases[Normalize(title)] = alias
	return s.save(f)
}

// Remove deletes the entry at title's normalized key, if any.
func (s *AliasStore) Remove(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	delete(f.Aliases, Normalize(title))
	return s.save(f)
}

// ToMatcherMappings returns a normalized-title -> presentation UUID map for
// the delegated song matcher.
func (s *AliasStore) ToMatcherMappings() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load()
	out := make(map[string]string, len(f.Aliases))
	for k, v := range f.Aliases {
		out[k] = v.PresentationUUID
	}
	return out
}

// Package store implements the file-backed registries described in the
// spec: settings, the user allow-list, song aliases, sessions, and the
// bearer-token/session-secret file. All writes are temp-file-then-rename to
// guarantee atomicity; reads tolerate a missing or malformed file by
// returning defaults.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// writeJSONAtomic marshals v and writes it to path by first writing to a
// sibling temp file and renaming it into place, so a crash mid-write never
// leaves a partially-written file at path. mode is applied to the final
// file (0600 for secrets, 0644 otherwise).
func writeJSONAtomic(fs afero.Fs, path string, v interface{}, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	tmp := path + fmt.Sprintf(".tmp-%d", time.Now().UnixNano())
	if err := afero.WriteFile(fs, tmp, data, mode); err != nil {
		return fmt.Errorf("writing temp file for %s: %w", path, err)
	}

	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("renaming temp file into %s: %w", path, err)
	}

	return fs.Chmod(path, mode)
}

// readJSONTolerant decodes path into v. A missing or malformed file is not
// an error: it simply leaves v unmodified so the caller's zero/default
// value is used.
func readJSONTolerant(fs afero.Fs, path string, v interface{}) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, v)
}

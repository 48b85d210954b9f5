// Package outcomes persists one JSON file per processed company, written
// atomically so a crash never leaves a partial file under a final name.
package outcomes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/screener-cli/internal/model"
)

// Store reads and writes per-company outcome files in a single directory.
// Files whose name starts with "_" or "." are reserved for bookkeeping and
// ignored by listing.
type Store struct {
	dir string
}

// NewStore creates the outcome directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "outcomes: mkdir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the outcome directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Filename returns the file name an outcome for the given key lives under.
func (s *Store) Filename(key string) string {
	return key + ".json"
}

// Write persists an outcome atomically: the JSON is written to a temp file
// in the same directory, fsynced, then renamed over the final name. Returns
// the final file name (relative to the store directory).
func (s *Store) Write(o *model.Outcome) (string, error) {
	name := s.Filename(o.Key)

	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "outcomes: marshal %s", o.Key)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", eris.Wrap(err, "outcomes: create temp file")
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any failure path; after a successful rename
	// the remove is a no-op.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", eris.Wrapf(err, "outcomes: write %s", o.Key)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", eris.Wrapf(err, "outcomes: sync %s", o.Key)
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrapf(err, "outcomes: close %s", o.Key)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return "", eris.Wrapf(err, "outcomes: rename %s", o.Key)
	}
	return name, nil
}

// Read loads one outcome by file name.
func (s *Store) Read(name string) (*model.Outcome, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, eris.Wrapf(err, "outcomes: read %s", name)
	}
	var o model.Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrapf(err, "outcomes: unmarshal %s", name)
	}
	return &o, nil
}

// List returns the outcome file names in the store, skipping reserved and
// temporary files.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "outcomes: read dir %s", s.dir)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() ||
			strings.HasPrefix(name, "_") ||
			strings.HasPrefix(name, ".") ||
			!strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

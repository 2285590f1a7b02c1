// Package target persists target-control records (§6.3): a parallel,
// smaller record store to internal/session, keyed by an integer ident
// rather than a session name, for the separate "target control" feature
// a daemon may optionally participate in.
package target

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// State is one target-control record.
type State struct {
	Ident       int     `json:"ident"`
	TargetName  string  `json:"target_name"`
	PID         int     `json:"pid"`
	API         string  `json:"api"`
	ConnectedAt float64 `json:"connected_at"`
}

// Store reads and writes States under a directory, one file per ident.
type Store struct {
	Dir string
	Fs  afero.Fs
}

// NewStore returns a Store rooted at dir, backed by the real filesystem.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, Fs: afero.NewOsFs()}
}

// NewStoreWithFs returns a Store backed by an arbitrary afero.Fs, for
// tests that want to exercise corrupt-file handling without touching
// the real disk.
func NewStoreWithFs(dir string, fs afero.Fs) *Store {
	return &Store{Dir: dir, Fs: fs}
}

// PathFor returns the JSON file path backing an ident.
func (s *Store) PathFor(ident int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%d.json", ident))
}

// Save atomically writes st: write to a temp file in the same
// directory, then rename over the destination.
func (s *Store) Save(st *State) error {
	if err := s.Fs.MkdirAll(s.Dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	dst := s.PathFor(st.Ident)
	tmp := dst + ".tmp"
	if err := afero.WriteFile(s.Fs, tmp, data, 0600); err != nil {
		return err
	}
	return s.Fs.Rename(tmp, dst)
}

// Load reads the record for ident. A missing file, or one that fails to
// parse as valid JSON, is self-healed by deleting it and returning nil
// rather than surfacing a parse error to the caller.
func (s *Store) Load(ident int) (*State, error) {
	path := s.PathFor(ident)
	data, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.Fs.Remove(path)
		return nil, nil
	}
	return &st, nil
}

// Delete removes the record for ident. Deleting an ident with no record
// is not an error.
func (s *Store) Delete(ident int) error {
	err := s.Fs.Remove(s.PathFor(ident))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

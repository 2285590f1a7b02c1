// Package session persists per-capture daemon connection records to disk
// as one JSON file per session name, so separate rdc invocations can find
// and talk to the same rdcd process. Records are written atomically via
// a temp-file-plus-rename so a reader never observes a partial write.
// The afero.Fs indirection — a Store holds an afero.Fs rather than
// calling os.* directly — lets tests exercise corrupt-file and
// traversal handling against an in-memory filesystem instead of the
// real disk.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
)

// ErrNoSession is returned when no record exists for a given name, whether
// because the file is missing or because it was corrupt and self-healed
// away.
var ErrNoSession = errors.New("no session")

// Record is the persisted state of one open capture session.
type Record struct {
	Capture    string `json:"capture"`
	CurrentEID int    `json:"current_eid"`
	OpenedAt   string `json:"opened_at"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Token      string `json:"token"`
	PID        int    `json:"pid"`

	// ProxyHint carries remote-GPU routing information for sessions
	// opened in Proxy mode (§6.2); empty otherwise.
	ProxyHint string `json:"proxy_hint,omitempty"`
}

// Store reads and writes Records under a directory, one file per name.
type Store struct {
	Dir string
	Fs  afero.Fs
}

// NewStore returns a Store rooted at dir, backed by the real filesystem.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, Fs: afero.NewOsFs()}
}

// NewStoreWithFs returns a Store backed by an arbitrary afero.Fs, for
// tests that want to exercise self-healing and traversal handling without
// touching the real disk (afero.NewMemMapFs()).
func NewStoreWithFs(dir string, fs afero.Fs) *Store {
	return &Store{Dir: dir, Fs: fs}
}

// sanitizeName maps an untrusted session name to a safe file stem,
// falling back to "default" for empty names or anything that could
// escape Dir via path traversal or a path separator.
func sanitizeName(name string) string {
	if name == "" {
		return "default"
	}
	if strings.Contains(name, "..") {
		return "default"
	}
	if strings.ContainsAny(name, "/\\") {
		return "default"
	}
	return name
}

// PathFor returns the JSON file path backing a session name.
func (s *Store) PathFor(name string) string {
	return filepath.Join(s.Dir, sanitizeName(name)+".json")
}

// Save atomically writes rec for name: write to a temp file in the same
// directory, then rename over the destination so readers never observe a
// partial write.
func (s *Store) Save(name string, rec *Record) error {
	if err := s.Fs.MkdirAll(s.Dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	dst := s.PathFor(name)
	tmp := dst + ".tmp"
	if err := afero.WriteFile(s.Fs, tmp, data, 0600); err != nil {
		return err
	}
	return s.Fs.Rename(tmp, dst)
}

// Load reads the record for name. A missing file, or one that fails to
// parse as valid JSON, is self-healed by deleting it and reporting
// ErrNoSession rather than surfacing a parse error to the caller.
func (s *Store) Load(name string) (*Record, error) {
	path := s.PathFor(name)
	data, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.Fs.Remove(path)
		return nil, ErrNoSession
	}
	return &rec, nil
}

// Delete removes the record for name. Deleting a name with no record is
// not an error.
func (s *Store) Delete(name string) error {
	err := s.Fs.Remove(s.PathFor(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsAlive reports whether the process recorded in rec still exists, by
// sending it signal 0 (the standard liveness probe: ESRCH means gone,
// EPERM means alive but owned by someone else). A record with PID 0 means
// the daemon is externally managed (Listen/Connect/Proxy mode, §4.6) and
// is assumed alive since there is no process to probe.
func IsAlive(rec *Record) bool {
	if rec.PID == 0 {
		return true
	}
	if rec.PID < 0 {
		return false
	}
	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, os.ErrPermission)
}

// List returns the session names with a record currently on disk.
func (s *Store) List() ([]string, error) {
	entries, err := afero.ReadDir(s.Fs, s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return names, nil
}

// Package status keeps the durable processing record for each watched
// directory: one _status.json per directory mapping every tracked dataset key
// to a (valid, exported) pair. Records are read lazily, cached for the process
// lifetime, and written back after every transition. The file is the restart
// contract: a record persisted as (pass, false) resumes at the export step.
package status

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/logger"
)

// FileName is the per-directory status file.
const FileName = "_status.json"

// Record tracks one dataset key inside one directory. Valid is tri-state:
// nil = not yet validated, then pass or fail. Exported flips false->true once.
type Record struct {
	Valid    *bool `json:"valid"`
	Exported bool  `json:"exported"`
}

// dirStatus is the cached record set for one directory.
type dirStatus struct {
	mu      sync.Mutex
	dir     string
	records map[string]*Record
}

// Store manages dirStatus instances across all watched directories.
type Store struct {
	mu       sync.Mutex
	datasets []string
	dirs     map[string]*dirStatus
}

// NewStore creates a store tracking the given dataset keys.
func NewStore(datasets []string) *Store {
	keys := make([]string, len(datasets))
	for i, d := range datasets {
		keys[i] = strings.ToLower(d)
	}
	return &Store{
		datasets: keys,
		dirs:     make(map[string]*dirStatus),
	}
}

// Key reduces a file path to its dataset key: the base name without
// extension, lowercased.
func Key(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(base)
}

// Get returns a copy of the record for the file's dataset key, loading or
// initializing the directory's status file on first touch.
func (s *Store) Get(path string) (Record, error) {
	ds := s.dir(path)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	rec, ok := ds.records[Key(path)]
	if !ok {
		return Record{}, errors.Newf("dataset %q is not tracked in %s", Key(path), ds.dir)
	}
	return *rec, nil
}

// SetValid records a validation outcome for the file's dataset key.
func (s *Store) SetValid(path string, valid bool) error {
	return s.mutate(path, func(rec *Record) {
		v := valid
		rec.Valid = &v
	})
}

// ResetValid returns the key to the unvalidated state. Operator escape hatch
// for forcing a re-run of a failed file.
func (s *Store) ResetValid(path string) error {
	return s.mutate(path, func(rec *Record) {
		rec.Valid = nil
	})
}

// SetExported records an export outcome for the file's dataset key.
func (s *Store) SetExported(path string, exported bool) error {
	return s.mutate(path, func(rec *Record) {
		rec.Exported = exported
	})
}

func (s *Store) mutate(path string, fn func(*Record)) error {
	ds := s.dir(path)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	rec, ok := ds.records[Key(path)]
	if !ok {
		return errors.Newf("dataset %q is not tracked in %s", Key(path), ds.dir)
	}
	fn(rec)
	return nil
}

// Commit writes the directory's record set back to its status file.
// Best-effort: a write failure is logged and swallowed, the in-memory state
// stays authoritative until the next successful commit.
func (s *Store) Commit(path string) {
	ds := s.dir(path)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.persist()
}

// Snapshot returns a copy of every record tracked for the file's directory.
func (s *Store) Snapshot(path string) map[string]Record {
	ds := s.dir(path)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	out := make(map[string]Record, len(ds.records))
	for key, rec := range ds.records {
		out[key] = *rec
	}
	return out
}

// dir returns the cached dirStatus for the file's directory, creating and
// loading it on first reference.
func (s *Store) dir(path string) *dirStatus {
	dir := filepath.Dir(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ds, ok := s.dirs[dir]; ok {
		return ds
	}

	ds := &dirStatus{dir: dir}
	ds.load(s.datasets)
	s.dirs[dir] = ds
	return ds
}

// load reads the status file if present, otherwise initializes every tracked
// key to (unknown, false) and persists immediately. A corrupt file is treated
// as absent.
func (ds *dirStatus) load(datasets []string) {
	data, err := os.ReadFile(filepath.Join(ds.dir, FileName))
	if err == nil {
		records := make(map[string]*Record)
		if jsonErr := json.Unmarshal(data, &records); jsonErr == nil {
			ds.records = records
			// Keys added to the config after the file was written start fresh.
			for _, key := range datasets {
				if _, ok := ds.records[key]; !ok {
					ds.records[key] = &Record{}
				}
			}
			return
		}
		logger.Warnw("Corrupt status file, reinitializing",
			"dir", ds.dir, "file", FileName)
	}

	ds.records = make(map[string]*Record, len(datasets))
	for _, key := range datasets {
		ds.records[key] = &Record{}
	}
	ds.persist()
}

// persist writes the record set atomically (temp file + rename).
// Caller holds ds.mu.
func (ds *dirStatus) persist() {
	data, err := json.MarshalIndent(ds.records, "", "  ")
	if err != nil {
		logger.Errorw("Cannot serialize status record", "dir", ds.dir, "error", err)
		return
	}

	target := filepath.Join(ds.dir, FileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.Warnw("Cannot write status file", "dir", ds.dir, "error", err)
		return
	}
	if err := os.Rename(tmp, target); err != nil {
		logger.Warnw("Cannot replace status file", "dir", ds.dir, "error", err)
	}
}

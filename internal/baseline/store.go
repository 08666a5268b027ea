package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mitchellh/go-homedir"
)

// ErrAlreadyMonitored is returned when adding a path that is already in the store.
var ErrAlreadyMonitored = errors.New("path is already monitored")

// ErrNotMonitored is returned when operating on a path that is not in the store.
var ErrNotMonitored = errors.New("path is not monitored")

// ErrStoreCorrupt is returned when the persisted store cannot be parsed.
var ErrStoreCorrupt = errors.New("baseline store is corrupt")

// ErrLockTimeout is returned when the store lock cannot be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for store lock")

// DefaultLockTimeout bounds how long a mutation waits on the store lock.
const DefaultLockTimeout = 5 * time.Second

// Store manages baseline persistence in a single JSON file.
// Record order is insertion order and survives load/save round trips.
type Store struct {
	Path        string        // Store file location
	LockTimeout time.Duration // Advisory lock acquisition bound
}

// NewStore creates a store backed by the given file.
func NewStore(path string) *Store {
	return &Store{Path: path, LockTimeout: DefaultLockTimeout}
}

// DefaultPath returns the default store location (~/.vigil/baseline.json).
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".vigil", "baseline.json")
	}
	return filepath.Join(home, ".vigil", "baseline.json")
}

// Load reads all monitored files in insertion order.
// A missing store file is an empty store, not an error.
func (s *Store) Load() ([]MonitoredFile, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []MonitoredFile{}, nil
		}
		return nil, err
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, s.Path, err)
	}
	if sf.Version != storeVersion {
		return nil, fmt.Errorf("%w: %s: unsupported store version %d", ErrStoreCorrupt, s.Path, sf.Version)
	}
	if sf.Files == nil {
		sf.Files = []MonitoredFile{}
	}

	return sf.Files, nil
}

// Save persists the given records, replacing the store contents.
// The write goes to a temp file in the same directory and is renamed
// into place, so a crash mid-write never corrupts committed entries.
func (s *Store) Save(files []MonitoredFile) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(storeFile{Version: storeVersion, Files: files}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Add appends a new record. Fails with ErrAlreadyMonitored if the
// record's path is already present.
func (s *Store) Add(file MonitoredFile) error {
	return s.withLock(func() error {
		files, err := s.Load()
		if err != nil {
			return err
		}

		for _, f := range files {
			if f.Path == file.Path {
				return fmt.Errorf("%w: %s", ErrAlreadyMonitored, file.Path)
			}
		}

		return s.Save(append(files, file))
	})
}

// Remove deletes the record for path. Fails with ErrNotMonitored if absent.
func (s *Store) Remove(path string) error {
	return s.withLock(func() error {
		files, err := s.Load()
		if err != nil {
			return err
		}

		kept := files[:0]
		found := false
		for _, f := range files {
			if f.Path == path {
				found = true
				continue
			}
			kept = append(kept, f)
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrNotMonitored, path)
		}

		return s.Save(kept)
	})
}

// Update replaces the record whose path matches file.Path, keeping its
// position in the insertion order. Fails with ErrNotMonitored if absent.
func (s *Store) Update(file MonitoredFile) error {
	return s.withLock(func() error {
		files, err := s.Load()
		if err != nil {
			return err
		}

		for i, f := range files {
			if f.Path == file.Path {
				files[i] = file
				return s.Save(files)
			}
		}
		return fmt.Errorf("%w: %s", ErrNotMonitored, file.Path)
	})
}

// Get returns the record for path.
func (s *Store) Get(path string) (MonitoredFile, error) {
	files, err := s.Load()
	if err != nil {
		return MonitoredFile{}, err
	}
	for _, f := range files {
		if f.Path == path {
			return f, nil
		}
	}
	return MonitoredFile{}, fmt.Errorf("%w: %s", ErrNotMonitored, path)
}

// StampChecked sets LastCheckedAt on every record. Baseline digests are
// never touched here.
func (s *Store) StampChecked(at time.Time) error {
	return s.withLock(func() error {
		files, err := s.Load()
		if err != nil {
			return err
		}
		for i := range files {
			files[i].LastCheckedAt = at
		}
		return s.Save(files)
	})
}

// withLock holds an advisory lock on <store>.lock while fn runs.
// Each CLI invocation is a fresh process, so this only matters when
// invocations overlap.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return err
	}

	timeout := s.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	lock := flock.New(s.Path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, s.Path)
		}
		return fmt.Errorf("store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockTimeout, s.Path)
	}
	defer lock.Unlock()

	return fn()
}

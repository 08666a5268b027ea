package baseline

import "time"

// MonitoredFile records the known-good state of a single monitored path.
type MonitoredFile struct {
	Path          string    `json:"path"`          // Absolute path, unique key
	Digest        string    `json:"digest"`        // SHA-256 of contents, lowercase hex
	Size          int64     `json:"size"`          // Size in bytes when baselined
	FirstAddedAt  time.Time `json:"firstAddedAt"`  // When monitoring began
	LastCheckedAt time.Time `json:"lastCheckedAt"` // Most recent check or rebaseline
}

// storeFile is the on-disk store layout. The files slice preserves
// insertion order.
type storeFile struct {
	Version int             `json:"version"`
	Files   []MonitoredFile `json:"files"`
}

// storeVersion is the only store layout this build reads or writes.
const storeVersion = 1

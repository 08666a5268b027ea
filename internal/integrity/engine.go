// Package integrity compares monitored files against their baselines.
package integrity

import (
	"os"
	"time"

	"vigil/internal/baseline"
	"vigil/internal/digest"
)

// Status classifies a monitored file at check time.
type Status string

const (
	StatusIntact     Status = "intact"     // Digest matches baseline
	StatusModified   Status = "modified"   // Digest differs from baseline
	StatusMissing    Status = "missing"    // Path no longer exists
	StatusUnreadable Status = "unreadable" // Path exists but cannot be read
)

// CheckResult is the outcome for a single monitored file.
type CheckResult struct {
	Path           string `json:"path"`
	Status         Status `json:"status"`
	BaselineDigest string `json:"baselineDigest"`
	CurrentDigest  string `json:"currentDigest,omitempty"` // Empty for missing/unreadable
	Detail         string `json:"detail,omitempty"`        // OS error text for unreadable
}

// Report contains results for every monitored file, in store order.
type Report struct {
	CheckedAt  time.Time     `json:"checkedAt"`
	Results    []CheckResult `json:"results"`
	Intact     int           `json:"intact"`
	Modified   int           `json:"modified"`
	Missing    int           `json:"missing"`
	Unreadable int           `json:"unreadable"`
	Clean      bool          `json:"clean"`
}

// Check recomputes the digest of every monitored file and classifies it
// against its baseline. Baselines are never mutated here. Per-file read
// failures become results, not errors, so one bad file never aborts the
// rest of the run.
func Check(files []baseline.MonitoredFile) Report {
	report := Report{
		CheckedAt: time.Now().UTC(),
		Results:   make([]CheckResult, 0, len(files)),
	}

	for _, f := range files {
		result := checkOne(f)
		switch result.Status {
		case StatusIntact:
			report.Intact++
		case StatusModified:
			report.Modified++
		case StatusMissing:
			report.Missing++
		case StatusUnreadable:
			report.Unreadable++
		}
		report.Results = append(report.Results, result)
	}

	report.Clean = report.Modified == 0 && report.Missing == 0 && report.Unreadable == 0
	return report
}

func checkOne(f baseline.MonitoredFile) CheckResult {
	result := CheckResult{
		Path:           f.Path,
		BaselineDigest: f.Digest,
	}

	if _, err := os.Stat(f.Path); err != nil {
		if os.IsNotExist(err) {
			result.Status = StatusMissing
			return result
		}
		result.Status = StatusUnreadable
		result.Detail = err.Error()
		return result
	}

	current, _, err := digest.File(f.Path)
	if err != nil {
		// The file exists but could not be opened or read.
		result.Status = StatusUnreadable
		result.Detail = err.Error()
		return result
	}

	result.CurrentDigest = current
	if current == f.Digest {
		result.Status = StatusIntact
	} else {
		result.Status = StatusModified
	}
	return result
}

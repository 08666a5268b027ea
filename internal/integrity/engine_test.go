package integrity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"vigil/internal/baseline"
	"vigil/internal/digest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func recordFor(t *testing.T, path string) baseline.MonitoredFile {
	t.Helper()
	sum, size, err := digest.File(path)
	if err != nil {
		t.Fatalf("setup digest: %v", err)
	}
	now := time.Now().UTC()
	return baseline.MonitoredFile{
		Path:          path,
		Digest:        sum,
		Size:          size,
		FirstAddedAt:  now,
		LastCheckedAt: now,
	}
}

func TestCheck_Classification(t *testing.T) {
	dir := t.TempDir()

	intact := writeFile(t, dir, "intact.txt", "unchanged contents\n")
	modified := writeFile(t, dir, "modified.txt", "original contents\n")
	missing := writeFile(t, dir, "missing.txt", "soon gone\n")

	files := []baseline.MonitoredFile{
		recordFor(t, intact),
		recordFor(t, modified),
		recordFor(t, missing),
	}

	if err := os.WriteFile(modified, []byte("tampered contents\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Remove(missing); err != nil {
		t.Fatalf("setup: %v", err)
	}

	report := Check(files)

	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}

	// Results come back in store order.
	wantStatus := []Status{StatusIntact, StatusModified, StatusMissing}
	for i, want := range wantStatus {
		if report.Results[i].Path != files[i].Path {
			t.Errorf("result %d path = %s, want %s", i, report.Results[i].Path, files[i].Path)
		}
		if report.Results[i].Status != want {
			t.Errorf("result %d status = %s, want %s", i, report.Results[i].Status, want)
		}
	}

	if report.Intact != 1 || report.Modified != 1 || report.Missing != 1 || report.Unreadable != 0 {
		t.Errorf("counts = %d/%d/%d/%d, want 1/1/1/0",
			report.Intact, report.Modified, report.Missing, report.Unreadable)
	}
	if report.Clean {
		t.Error("report.Clean = true with violations present")
	}
}

func TestCheck_ModifiedReportsBothDigests(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.txt", "Hello World\n")
	record := recordFor(t, path)

	if err := os.WriteFile(path, []byte("Modified content"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	report := Check([]baseline.MonitoredFile{record})

	result := report.Results[0]
	if result.Status != StatusModified {
		t.Fatalf("status = %s, want %s", result.Status, StatusModified)
	}
	if result.BaselineDigest != record.Digest {
		t.Errorf("baseline digest = %s, want %s", result.BaselineDigest, record.Digest)
	}
	if result.CurrentDigest == "" || result.CurrentDigest == record.Digest {
		t.Errorf("current digest = %q, want a different non-empty digest", result.CurrentDigest)
	}
}

func TestCheck_AllIntactIsClean(t *testing.T) {
	dir := t.TempDir()
	var files []baseline.MonitoredFile
	for _, name := range []string{"a", "b", "c"} {
		files = append(files, recordFor(t, writeFile(t, dir, name, name+" contents\n")))
	}

	report := Check(files)

	if !report.Clean {
		t.Error("report.Clean = false for untouched files")
	}
	if report.Intact != 3 {
		t.Errorf("intact = %d, want 3", report.Intact)
	}
}

func TestCheck_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission bits are not enforced")
	}

	dir := t.TempDir()
	path := writeFile(t, dir, "secret.txt", "contents\n")
	record := recordFor(t, path)

	if err := os.Chmod(path, 0000); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer os.Chmod(path, 0644)

	report := Check([]baseline.MonitoredFile{record})

	result := report.Results[0]
	if result.Status != StatusUnreadable {
		t.Fatalf("status = %s, want %s", result.Status, StatusUnreadable)
	}
	if result.Detail == "" {
		t.Error("expected OS error detail for unreadable file")
	}
	if report.Clean {
		t.Error("report.Clean = true with unreadable file")
	}
}

func TestCheck_EmptyInput(t *testing.T) {
	report := Check(nil)
	if !report.Clean {
		t.Error("empty check should be clean")
	}
	if len(report.Results) != 0 {
		t.Errorf("expected no results, got %d", len(report.Results))
	}
}

// TestCheck_IntactProperty verifies that for any file content, a check
// immediately after baselining reports Intact.
func TestCheck_IntactProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("fresh baseline checks intact", prop.ForAll(
		func(content string) bool {
			tmpDir, err := os.MkdirTemp("", "engine-test-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tmpDir)

			path := filepath.Join(tmpDir, "f")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return false
			}

			sum, size, err := digest.File(path)
			if err != nil {
				return false
			}

			report := Check([]baseline.MonitoredFile{{Path: path, Digest: sum, Size: size}})
			return report.Clean && report.Results[0].Status == StatusIntact
		},
		gen.AnyString(),
	))

	properties.Property("appending a byte checks modified", prop.ForAll(
		func(content string) bool {
			tmpDir, err := os.MkdirTemp("", "engine-test-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tmpDir)

			path := filepath.Join(tmpDir, "f")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return false
			}

			sum, size, err := digest.File(path)
			if err != nil {
				return false
			}

			if err := os.WriteFile(path, append([]byte(content), 'x'), 0644); err != nil {
				return false
			}

			report := Check([]baseline.MonitoredFile{{Path: path, Digest: sum, Size: size}})
			return !report.Clean && report.Results[0].Status == StatusModified
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

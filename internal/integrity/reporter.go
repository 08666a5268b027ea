package integrity

import (
	"encoding/json"
	"fmt"
	"strings"

	"vigil/internal/baseline"
)

// FormatCLI formats a check report for terminal output.
func FormatCLI(report Report) string {
	var sb strings.Builder

	for _, r := range report.Results {
		switch r.Status {
		case StatusIntact:
			sb.WriteString(fmt.Sprintf("  ok       %s\n", r.Path))
		case StatusModified:
			sb.WriteString(fmt.Sprintf("  MODIFIED %s\n", r.Path))
			sb.WriteString(fmt.Sprintf("           baseline %s\n", shortDigest(r.BaselineDigest)))
			sb.WriteString(fmt.Sprintf("           current  %s\n", shortDigest(r.CurrentDigest)))
		case StatusMissing:
			sb.WriteString(fmt.Sprintf("  MISSING  %s\n", r.Path))
		case StatusUnreadable:
			sb.WriteString(fmt.Sprintf("  UNREADABLE %s (%s)\n", r.Path, r.Detail))
		}
	}

	sb.WriteString(fmt.Sprintf("\n%d checked: %d intact, %d modified, %d missing, %d unreadable\n",
		len(report.Results), report.Intact, report.Modified, report.Missing, report.Unreadable))

	if report.Clean {
		sb.WriteString("All monitored files are intact.\n")
	}
	return sb.String()
}

// FormatCI formats a check report as GitHub Actions annotations.
func FormatCI(report Report) string {
	var sb strings.Builder

	for _, r := range report.Results {
		switch r.Status {
		case StatusModified:
			sb.WriteString(fmt.Sprintf("::error::Integrity violation: %s modified (baseline %s, current %s)\n",
				r.Path, shortDigest(r.BaselineDigest), shortDigest(r.CurrentDigest)))
		case StatusMissing:
			sb.WriteString(fmt.Sprintf("::error::Integrity violation: %s missing\n", r.Path))
		case StatusUnreadable:
			sb.WriteString(fmt.Sprintf("::error::Integrity violation: %s unreadable: %s\n", r.Path, r.Detail))
		}
	}

	violations := report.Modified + report.Missing + report.Unreadable
	if violations > 0 {
		sb.WriteString(fmt.Sprintf("\nIntegrity check failed: %d violation(s) in %d file(s)\n",
			violations, len(report.Results)))
	} else {
		sb.WriteString(fmt.Sprintf("Integrity check passed: %d file(s) intact\n", report.Intact))
	}
	return sb.String()
}

// FormatJSON formats a check report as pretty-printed JSON.
func FormatJSON(report Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatFileListJSON formats monitored file records as pretty-printed
// JSON, preserving store order.
func FormatFileListJSON(files []baseline.MonitoredFile) (string, error) {
	if files == nil {
		files = []baseline.MonitoredFile{}
	}
	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// shortDigest truncates a hex digest for display.
func shortDigest(d string) string {
	if len(d) > 16 {
		return d[:16] + "..."
	}
	return d
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"vigil/internal/baseline"
	"vigil/internal/cli"
	"vigil/internal/config"
	"vigil/internal/digest"
	"vigil/internal/integrity"
)

// Exit codes. 0 means success and, for check, that every file is intact.
const (
	exitOK         = 0
	exitFailure    = 1 // Usage or I/O failure
	exitViolations = 2 // Check found modified/missing/unreadable files
	exitCorrupt    = 3 // Baseline store cannot be parsed
	exitBadPath    = 4 // Not found, already monitored, not monitored
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), "."))
}

// run orchestrates a single command execution and returns its exit code.
// It is separated from main() to enable testing.
func run(args []string, environ []string, workDir string) int {
	cmd, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFailure
	}

	cfg, err := config.Load(environ, workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFailure
	}

	storePath := cfg.StorePath
	if cmd.StorePath != "" {
		storePath = cmd.StorePath
	}
	storePath = absolutize(storePath, workDir)

	store := baseline.NewStore(storePath)
	store.LockTimeout = cfg.LockTimeout

	switch cmd.Subcommand {
	case cli.SubcommandAdd:
		return runAdd(cmd, store, workDir)
	case cli.SubcommandCheck:
		return runCheck(cmd, store)
	case cli.SubcommandList:
		return runList(cmd, store)
	case cli.SubcommandRemove:
		return runRemove(cmd, store, workDir)
	case cli.SubcommandUpdate:
		return runUpdate(cmd, store, workDir)
	}

	return exitFailure
}

// runAdd handles the add subcommand. Directories are walked recursively
// and every regular file under them is added.
func runAdd(cmd cli.Command, store *baseline.Store, workDir string) int {
	exitCode := exitOK
	added := 0

	for _, arg := range cmd.Paths {
		path := absolutize(arg, workDir)

		targets, err := collectFiles(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Error: file not found: %s\n", arg)
				exitCode = worst(exitCode, exitBadPath)
				continue
			}
			fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", arg, err)
			exitCode = worst(exitCode, exitFailure)
			continue
		}

		for _, target := range targets {
			sum, size, err := digest.File(target)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", target, err)
				exitCode = worst(exitCode, exitFailure)
				continue
			}

			now := time.Now().UTC()
			err = store.Add(baseline.MonitoredFile{
				Path:          target,
				Digest:        sum,
				Size:          size,
				FirstAddedAt:  now,
				LastCheckedAt: now,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				exitCode = worst(exitCode, exitCodeFor(err))
				if errors.Is(err, baseline.ErrStoreCorrupt) {
					return exitCode
				}
				continue
			}

			fmt.Printf("Added: %s\n", target)
			added++
		}
	}

	fmt.Printf("Added %d file(s) to monitoring\n", added)
	return exitCode
}

// runCheck handles the check subcommand.
func runCheck(cmd cli.Command, store *baseline.Store) int {
	files, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCodeFor(err)
	}

	if len(files) == 0 {
		if cmd.JSONOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No files are being monitored. Use 'add' first.")
		}
		return exitOK
	}

	report := integrity.Check(files)

	if cmd.JSONOutput {
		out, err := integrity.FormatJSON(report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot format report: %v\n", err)
			return exitFailure
		}
		fmt.Println(out)
	} else if cmd.CIMode {
		fmt.Print(integrity.FormatCI(report))
	} else {
		fmt.Print(integrity.FormatCLI(report))
	}

	// Record that a check ran. Never let a bookkeeping failure change
	// the integrity verdict.
	if err := store.StampChecked(report.CheckedAt); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot record check time: %v\n", err)
	}

	if !report.Clean {
		return exitViolations
	}
	return exitOK
}

// runList handles the list subcommand.
func runList(cmd cli.Command, store *baseline.Store) int {
	files, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCodeFor(err)
	}

	if cmd.JSONOutput {
		out, err := integrity.FormatFileListJSON(files)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot format list: %v\n", err)
			return exitFailure
		}
		fmt.Println(out)
		return exitOK
	}

	if len(files) == 0 {
		fmt.Println("No files are being monitored.")
		return exitOK
	}

	fmt.Printf("Monitored files (%d):\n", len(files))
	for _, f := range files {
		fmt.Printf("  %s\n", f.Path)
		fmt.Printf("    digest %s\n", f.Digest)
		fmt.Printf("    size %d bytes, added %s, last checked %s\n",
			f.Size, f.FirstAddedAt.Format(time.RFC3339), f.LastCheckedAt.Format(time.RFC3339))
	}
	return exitOK
}

// runRemove handles the remove subcommand.
func runRemove(cmd cli.Command, store *baseline.Store, workDir string) int {
	exitCode := exitOK
	removed := 0

	for _, arg := range cmd.Paths {
		path := absolutize(arg, workDir)

		if err := store.Remove(path); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			exitCode = worst(exitCode, exitCodeFor(err))
			if errors.Is(err, baseline.ErrStoreCorrupt) {
				return exitCode
			}
			continue
		}

		fmt.Printf("Removed: %s\n", path)
		removed++
	}

	fmt.Printf("Removed %d file(s) from monitoring\n", removed)
	return exitCode
}

// runUpdate handles the update subcommand: explicit rebaselining of the
// listed paths, or of every monitored path when none are given.
func runUpdate(cmd cli.Command, store *baseline.Store, workDir string) int {
	files, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCodeFor(err)
	}

	targets := make([]string, 0, len(files))
	if len(cmd.Paths) > 0 {
		monitored := make(map[string]bool, len(files))
		for _, f := range files {
			monitored[f.Path] = true
		}
		exitCode := exitOK
		for _, arg := range cmd.Paths {
			path := absolutize(arg, workDir)
			if !monitored[path] {
				fmt.Fprintf(os.Stderr, "Error: %v: %s\n", baseline.ErrNotMonitored, path)
				exitCode = worst(exitCode, exitBadPath)
				continue
			}
			targets = append(targets, path)
		}
		if code := rebaseline(store, files, targets); code != exitOK {
			return worst(exitCode, code)
		}
		return exitCode
	}

	for _, f := range files {
		targets = append(targets, f.Path)
	}
	return rebaseline(store, files, targets)
}

// rebaseline recomputes and stores digests for the given monitored paths.
func rebaseline(store *baseline.Store, files []baseline.MonitoredFile, targets []string) int {
	records := make(map[string]baseline.MonitoredFile, len(files))
	for _, f := range files {
		records[f.Path] = f
	}

	exitCode := exitOK
	updated := 0

	for _, path := range targets {
		sum, size, err := digest.File(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", path, err)
			exitCode = worst(exitCode, exitBadPath)
			continue
		}

		record := records[path]
		record.Digest = sum
		record.Size = size
		record.LastCheckedAt = time.Now().UTC()

		if err := store.Update(record); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			exitCode = worst(exitCode, exitCodeFor(err))
			if errors.Is(err, baseline.ErrStoreCorrupt) {
				return exitCode
			}
			continue
		}

		fmt.Printf("Updated: %s\n", path)
		updated++
	}

	fmt.Printf("Updated baseline for %d file(s)\n", updated)
	return exitCode
}

// collectFiles resolves a path argument to the regular files it names:
// the file itself, or every regular file under a directory.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var targets []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			targets = append(targets, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// absolutize resolves a path argument against the invocation directory.
func absolutize(path, workDir string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(workDir, path))
}

// exitCodeFor maps a store error to the exit code convention.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, baseline.ErrStoreCorrupt):
		return exitCorrupt
	case errors.Is(err, baseline.ErrAlreadyMonitored), errors.Is(err, baseline.ErrNotMonitored):
		return exitBadPath
	default:
		return exitFailure
	}
}

// worst keeps the most severe exit code seen so far. Store corruption
// outranks path-level failures, which outrank generic failures.
func worst(a, b int) int {
	rank := func(code int) int {
		switch code {
		case exitCorrupt:
			return 3
		case exitBadPath:
			return 2
		case exitViolations, exitFailure:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

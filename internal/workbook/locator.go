package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cyramp/cyrscan/constants"
)

// Locator finds job workbooks in the shared bill-of-materials directory.
type Locator struct {
	dir    string
	logger *slog.Logger
}

// Entry is a workbook visible in the directory.
type Entry struct {
	JobNumber string `json:"jobNumber"`
	Name      string `json:"name"`
	Path      string `json:"path"`
}

func NewLocator(dir string, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{dir: dir, logger: logger}
}

// Dir returns the directory searched by the locator.
func (l *Locator) Dir() string { return l.dir }

// Locate returns the path of the workbook whose name starts with jobNumber. When more
// than one file matches, the first in lexical order wins and a warning is logged.
func (l *Locator) Locate(ctx context.Context, jobNumber string) (string, error) {
	jobNumber = strings.TrimSpace(jobNumber)
	if jobNumber == "" || strings.ContainsAny(jobNumber, `/\*?[]`) {
		return "", fmt.Errorf("job %q: %w", jobNumber, ErrFileNotFound)
	}

	names, err := l.readNames(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, name := range names {
		if strings.HasPrefix(name, jobNumber) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		l.logger.Debug("no workbook for job", "job_number", jobNumber, "dir", l.dir)
		return "", fmt.Errorf("job %q: %w", jobNumber, ErrFileNotFound)
	}
	if len(matches) > 1 {
		l.logger.Warn("several workbooks match job, using the first",
			"job_number", jobNumber,
			"chosen", matches[0],
			"matches", len(matches),
		)
	}
	return filepath.Join(l.dir, matches[0]), nil
}

// List returns every job workbook in the directory, sorted by file name.
func (l *Locator) List(ctx context.Context) ([]Entry, error) {
	names, err := l.readNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		job := JobNumberFromName(name)
		if job == "" {
			continue
		}
		out = append(out, Entry{JobNumber: job, Name: name, Path: filepath.Join(l.dir, name)})
	}
	return out, nil
}

// readNames lists candidate workbook names, sorted. The directory read is bounded by
// ctx since the share may hang.
func (l *Locator) readNames(ctx context.Context) ([]string, error) {
	var names []string
	err := runWithContext(ctx, func() error {
		entries, err := os.ReadDir(l.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() || !IsWorkbookName(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Error("workbook directory missing", "dir", l.dir)
			return nil, fmt.Errorf("read %s: %w", l.dir, ErrFileNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", l.dir, err)
	}
	sort.Strings(names)
	return names, nil
}

// IsWorkbookName reports whether name looks like a job workbook.
func IsWorkbookName(name string) bool {
	if constants.IsOfficeLockFile(name) || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(name))]
	return ok
}

var leadingJob = regexp.MustCompile(`^[A-Za-z0-9]+`)

// JobNumberFromName extracts the job number a workbook file name starts with.
func JobNumberFromName(name string) string {
	return leadingJob.FindString(filepath.Base(name))
}

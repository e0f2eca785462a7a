package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StringListReport collects lines during a run and flushes them to a text
// file named after its title.
type StringListReport struct {
	Title string
	Items []string

	mu sync.Mutex
}

// NewStringListReport returns an empty report.
func NewStringListReport(title string) *StringListReport {
	return &StringListReport{Title: title, Items: []string{}}
}

// Add appends a formatted line to the report.
func (r *StringListReport) Add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, fmt.Sprintf(format, args...))
}

// FileName returns the report file name, e.g. report-test_lume_model.txt.
func (r *StringListReport) FileName() string {
	title := r.Title
	if title == "" {
		title = "untitled"
	}
	safeTitle := strings.Map(func(c rune) rune {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return c
		}
		return '_'
	}, title)
	return fmt.Sprintf("report-%s.txt", safeTitle)
}

// WriteToFile appends the collected items to the report file under dir and
// clears the in-memory list. It returns the file path.
func (r *StringListReport) WriteToFile(dir string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, r.FileName())

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()

	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return "", fmt.Errorf("writing report %s: %w", path, err)
		}
	}

	r.Items = []string{}
	if _, err := fmt.Fprintln(f); err != nil {
		return "", fmt.Errorf("terminating report %s: %w", path, err)
	}

	return path, nil
}

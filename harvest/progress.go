package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Progress tracks which URLs a batch has already written, so an interrupted
// run can resume without re-fetching.
type Progress struct {
	path      string
	completed map[string]bool
}

// progressFile is the on-disk shape. The list is kept sorted so reruns
// produce stable files.
type progressFile struct {
	Completed []string `json:"completed"`
}

// LoadProgress reads the progress file at path, or starts empty when the
// file doesn't exist yet. A file that exists but can't be parsed is an
// error; silently restarting would re-fetch everything.
func LoadProgress(path string) (*Progress, error) {
	p := NewProgress(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var file progressFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}
	for _, url := range file.Completed {
		p.completed[url] = true
	}
	return p, nil
}

// NewProgress starts an empty progress record at path, ignoring anything a
// previous run left there.
func NewProgress(path string) *Progress {
	return &Progress{path: path, completed: map[string]bool{}}
}

// IsCompleted reports whether a URL finished in this or a previous run.
func (p *Progress) IsCompleted(url string) bool {
	return p.completed[url]
}

// MarkCompleted records a finished URL and saves immediately, so a crash
// between jobs loses at most the job in flight.
func (p *Progress) MarkCompleted(url string) error {
	p.completed[url] = true
	return p.save()
}

// Len returns how many URLs are recorded as completed.
func (p *Progress) Len() int {
	return len(p.completed)
}

func (p *Progress) save() error {
	urls := make([]string, 0, len(p.completed))
	for url := range p.completed {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	data, err := json.MarshalIndent(progressFile{Completed: urls}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	return nil
}

// Package harvest runs batch extraction jobs: it walks a URL list through an
// authenticated browser, extracts each conversation, and writes one
// transcript file per URL with resumable progress tracking.
package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"chatharvest/browser"
	"chatharvest/dialogue"
	"chatharvest/extract"
)

// Transcript output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Files written inside the output directory alongside the transcripts.
const (
	ProgressFile = "harvest_progress.json"
	StatsFile    = "harvest_stats.json"
)

const (
	// consentSampleChars bounds how much body text the consent-page check
	// inspects.
	consentSampleChars = 5000

	// maxStatsErrors caps the error list persisted in the stats file.
	maxStatsErrors = 10
)

// Failure classes for individual jobs. The batch continues past all of
// them; each is recorded against its URL in the run stats.
var (
	ErrAuthExpired = errors.New("redirected to a consent or login page - authentication may have expired")
	ErrConsentPage = errors.New("page shows a consent or cookie prompt instead of conversation content")
	ErrNoMessages  = errors.New("no messages found on page")
)

// Config holds the settings for one batch run.
type Config struct {
	// URLs takes precedence over URLFile when both are set.
	URLs    []string
	URLFile string

	OutputDir string
	Format    string

	// Extraction selects the template or selectors applied to every page.
	Extraction extract.Options

	// Resume skips URLs completed by a previous run in the same output
	// directory.
	Resume bool

	// Jittered politeness delay between page loads.
	DelayMin time.Duration
	DelayMax time.Duration

	// Per-page load behavior.
	PageTimeout   time.Duration
	ReadySelector string
	SettleDelay   time.Duration
	ScrollPause   time.Duration

	// StatusFunc, when set, receives one-line progress updates for display.
	StatusFunc func(status string)
}

// DefaultConfig returns the defaults for a polite batch run.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "harvested",
		Format:      FormatText,
		Resume:      true,
		DelayMin:    8 * time.Second,
		DelayMax:    20 * time.Second,
		PageTimeout: 45 * time.Second,
		SettleDelay: 2 * time.Second,
		ScrollPause: 500 * time.Millisecond,
	}
}

// Stats summarize one batch run.
type Stats struct {
	RunID         string     `json:"run_id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	Total         int        `json:"total"`
	Success       int        `json:"success"`
	Failed        int        `json:"failed"`
	Skipped       int        `json:"skipped"`
	Errors        []JobError `json:"errors,omitempty"`
	ErrorsOmitted int        `json:"errors_omitted,omitempty"`
}

// JobError records one failed URL.
type JobError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// HasAuthIssues reports whether any failure looks like expired
// authentication rather than a page-level problem.
func (s *Stats) HasAuthIssues() bool {
	for _, e := range s.Errors {
		msg := strings.ToLower(e.Error)
		if strings.Contains(msg, "consent") || strings.Contains(msg, "login") {
			return true
		}
	}
	return false
}

// Harvester executes batch runs over a Fetcher. Jobs run one at a time;
// hammering a chat provider with parallel authenticated fetches is exactly
// what gets sessions flagged.
type Harvester struct {
	fetcher browser.Fetcher
	config  *Config
}

// NewHarvester creates a harvester. A nil config uses defaults.
func NewHarvester(fetcher browser.Fetcher, config *Config) *Harvester {
	if config == nil {
		config = DefaultConfig()
	}
	return &Harvester{fetcher: fetcher, config: config}
}

// Run processes every URL in the batch sequentially. Individual page
// failures are recorded in the stats and the batch continues; the returned
// error covers setup problems and cancellation. Whenever the loop started,
// stats are returned even alongside an error.
func (h *Harvester) Run(ctx context.Context) (*Stats, error) {
	urls, err := h.resolveURLs()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, ErrEmptyURLList
	}

	if err := os.MkdirAll(h.config.OutputDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	progress, err := h.loadProgress()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Total:     len(urls),
	}
	log.Info("starting harvest", "run_id", stats.RunID, "urls", len(urls))

	for i, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			stats.FinishedAt = time.Now()
			h.writeStats(stats)
			return stats, err
		}

		if progress.IsCompleted(pageURL) {
			stats.Skipped++
			log.Debug("already harvested", "url", pageURL)
			continue
		}

		h.status(fmt.Sprintf("[%d/%d] %s", i+1, len(urls), pageURL))

		if err := h.processURL(ctx, pageURL); err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, JobError{URL: pageURL, Error: err.Error()})
			log.Warn("harvest failed", "url", pageURL, "error", err)
		} else {
			stats.Success++
			if err := progress.MarkCompleted(pageURL); err != nil {
				log.Error("failed to record progress", "error", err)
			}
		}

		if i < len(urls)-1 {
			if err := h.sleepBetweenJobs(ctx); err != nil {
				stats.FinishedAt = time.Now()
				h.writeStats(stats)
				return stats, err
			}
		}
	}

	stats.FinishedAt = time.Now()
	h.writeStats(stats)
	log.Info("harvest finished",
		"success", stats.Success, "failed", stats.Failed, "skipped", stats.Skipped)
	return stats, nil
}

func (h *Harvester) resolveURLs() ([]string, error) {
	if len(h.config.URLs) > 0 {
		return h.config.URLs, nil
	}
	if h.config.URLFile != "" {
		return LoadURLList(h.config.URLFile)
	}
	return nil, nil
}

func (h *Harvester) loadProgress() (*Progress, error) {
	path := filepath.Join(h.config.OutputDir, ProgressFile)
	if !h.config.Resume {
		return NewProgress(path), nil
	}

	progress, err := LoadProgress(path)
	if err != nil {
		return nil, err
	}
	if progress.Len() > 0 {
		log.Info("resuming previous run", "already_completed", progress.Len())
	}
	return progress, nil
}

// processURL fetches, extracts, and writes a single conversation.
func (h *Harvester) processURL(ctx context.Context, pageURL string) error {
	snap, err := h.fetcher.Fetch(ctx, pageURL, browser.FetchOptions{
		Timeout:       h.config.PageTimeout,
		ReadySelector: h.readySelector(),
		SettleDelay:   h.config.SettleDelay,
		ScrollPause:   h.config.ScrollPause,
	})
	if err != nil {
		return err
	}

	if redirectedToLogin(pageURL, snap.URL) {
		return ErrAuthExpired
	}

	doc, err := extract.ParseHTML(snap.HTML)
	if err != nil {
		return err
	}

	turns, err := extract.Extract(doc, h.config.Extraction)
	if err != nil {
		return err
	}

	base := outputBasename(pageURL)
	if len(turns) == 0 {
		h.dumpDebugHTML(base, snap.HTML)
		if looksLikeConsentPage(snap.Title, doc) {
			return ErrConsentPage
		}
		return ErrNoMessages
	}

	path, err := h.writeTranscript(base, turns)
	if err != nil {
		return err
	}
	log.Info("harvested", "url", pageURL, "turns", len(turns), "file", path)
	return nil
}

// readySelector prefers the explicit configuration, then the template's own
// ready hint.
func (h *Harvester) readySelector() string {
	if h.config.ReadySelector != "" {
		return h.config.ReadySelector
	}
	if r := h.config.Extraction.Recipe; r != nil {
		return r.ReadySelector
	}
	return ""
}

// sleepBetweenJobs waits a randomized politeness delay, returning early when
// the run is cancelled.
func (h *Harvester) sleepBetweenJobs(ctx context.Context) error {
	minDelay, maxDelay := h.config.DelayMin, h.config.DelayMax
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	delay := minDelay
	if span := maxDelay - minDelay; span > 0 {
		delay += time.Duration(rand.Int64N(int64(span)))
	}
	if delay <= 0 {
		return nil
	}

	h.status(fmt.Sprintf("waiting %s before next page", delay.Round(time.Second)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (h *Harvester) status(s string) {
	if h.config.StatusFunc != nil {
		h.config.StatusFunc(s)
	}
}

// writeTranscript renders turns in the configured format and writes them
// next to the progress file.
func (h *Harvester) writeTranscript(base string, turns []dialogue.Turn) (string, error) {
	var data []byte
	ext := ".txt"
	if h.config.Format == FormatJSON {
		var err error
		data, err = dialogue.FormatJSON(turns)
		if err != nil {
			return "", err
		}
		ext = ".json"
	} else {
		data = []byte(dialogue.FormatText(turns) + "\n")
	}

	path := filepath.Join(h.config.OutputDir, base+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

// dumpDebugHTML saves the raw page beside the transcripts when extraction
// found nothing, so the operator can inspect what actually rendered.
func (h *Harvester) dumpDebugHTML(base, html string) {
	path := filepath.Join(h.config.OutputDir, base+".debug.html")
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		log.Error("failed to write debug page", "path", path, "error", err)
	}
}

// redirectedToLogin detects the expired-session bounce: the browser landed
// on a consent or account host, or a sign-in path, instead of the page it
// asked for.
func redirectedToLogin(requested, final string) bool {
	if final == "" || final == requested {
		return false
	}

	u, err := url.Parse(final)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if strings.HasPrefix(host, "consent.") || strings.HasPrefix(host, "accounts.") {
		return true
	}

	path := strings.ToLower(u.Path)
	return strings.Contains(path, "/signin") || strings.Contains(path, "/login")
}

// consentMarkers are phrases that show up on cookie walls and login
// interstitials in place of conversation content.
var consentMarkers = []string{
	"before you continue",
	"consent",
	"cookie",
	"sign in",
	"log in",
}

// looksLikeConsentPage distinguishes "the page was a cookie wall" from "the
// selectors found nothing", using the title and a bounded sample of body
// text.
func looksLikeConsentPage(title string, doc *goquery.Document) bool {
	body := extract.Text(doc.Find("body"))
	if len(body) > consentSampleChars {
		body = body[:consentSampleChars]
	}
	sample := strings.ToLower(title) + " " + strings.ToLower(body)

	for _, marker := range consentMarkers {
		if strings.Contains(sample, marker) {
			return true
		}
	}
	return false
}

// outputBasename derives a transcript filename from the last non-empty path
// segment of the URL, sanitized to filesystem-safe characters.
func outputBasename(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "conversation"
	}

	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if name := sanitizeName(segments[i]); name != "" {
			return name
		}
	}
	return "conversation"
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}

// writeStats persists the run summary, truncating the error list so the
// file stays small. A write failure is logged, not fatal; the transcripts
// are the deliverable.
func (h *Harvester) writeStats(stats *Stats) {
	out := *stats
	if len(out.Errors) > maxStatsErrors {
		out.ErrorsOmitted = len(out.Errors) - maxStatsErrors
		out.Errors = out.Errors[:maxStatsErrors]
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		log.Error("failed to marshal run stats", "error", err)
		return
	}

	path := filepath.Join(h.config.OutputDir, StatsFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Error("failed to write run stats", "path", path, "error", err)
	}
}

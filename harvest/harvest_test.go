package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatharvest/browser"
	"chatharvest/dialogue"
	"chatharvest/recipe"
)

// stubFetcher serves canned snapshots so orchestrator tests run without a
// browser.
type stubFetcher struct {
	pages   map[string]*browser.PageSnapshot
	errs    map[string]error
	fetched []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, opts browser.FetchOptions) (*browser.PageSnapshot, error) {
	f.fetched = append(f.fetched, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	snap, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("stub has no page for %s", url)
	}
	return snap, nil
}

func (f *stubFetcher) Close() error { return nil }

// Test helper: a page the auto-detector can extract
func chatPage(userText, modelText string) string {
	return fmt.Sprintf(`<html><head><title>Chat</title></head><body>
<div data-message-author-role="user">%s</div>
<div data-message-author-role="assistant">%s</div>
</body></html>`, userText, modelText)
}

// Test helper: a config with no delays pointed at a temp output dir
func testConfig(t *testing.T) *Config {
	config := DefaultConfig()
	config.OutputDir = t.TempDir()
	config.DelayMin = 0
	config.DelayMax = 0
	return config
}

// TestRun_WritesTranscripts verifies the happy path: every URL fetched,
// extracted, and written, with progress and stats on disk
func TestRun_WritesTranscripts(t *testing.T) {
	urlA := "https://chat.example.com/share/abc123"
	urlB := "https://chat.example.com/share/def456"
	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		urlA: {URL: urlA, Title: "Chat", HTML: chatPage("How deep is the ocean?", "About eleven kilometers at the deepest point.")},
		urlB: {URL: urlB, Title: "Chat", HTML: chatPage("And how high is the sky?", "The atmosphere thins out around a hundred kilometers up.")},
	}}
	config := testConfig(t)
	config.URLs = []string{urlA, urlB}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Skipped)
	assert.NotEmpty(t, stats.RunID)
	assert.False(t, stats.FinishedAt.Before(stats.StartedAt))

	data, err := os.ReadFile(filepath.Join(config.OutputDir, "abc123.txt"))
	require.NoError(t, err)
	assert.Equal(t, "User: How deep is the ocean?\n\nModel: About eleven kilometers at the deepest point.\n", string(data))

	progress, err := LoadProgress(filepath.Join(config.OutputDir, ProgressFile))
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted(urlA))
	assert.True(t, progress.IsCompleted(urlB))

	_, err = os.Stat(filepath.Join(config.OutputDir, StatsFile))
	assert.NoError(t, err, "stats file should be written")
}

// TestRun_Resume verifies previously completed URLs are skipped without
// touching the fetcher
func TestRun_Resume(t *testing.T) {
	urlA := "https://chat.example.com/share/aaa"
	urlB := "https://chat.example.com/share/bbb"
	urlC := "https://chat.example.com/share/ccc"

	config := testConfig(t)
	config.URLs = []string{urlA, urlB, urlC}

	// Simulate an earlier run that finished the first two.
	prior := NewProgress(filepath.Join(config.OutputDir, ProgressFile))
	require.NoError(t, prior.MarkCompleted(urlA))
	require.NoError(t, prior.MarkCompleted(urlB))

	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		urlC: {URL: urlC, HTML: chatPage("Only one left to do.", "Then let's finish it now.")},
	}}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{urlC}, fetcher.fetched, "completed URLs should not be fetched again")
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Success)

	progress, err := LoadProgress(filepath.Join(config.OutputDir, ProgressFile))
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted(urlA))
	assert.True(t, progress.IsCompleted(urlC))
}

// TestRun_ResumeDisabled verifies Resume=false ignores prior progress
func TestRun_ResumeDisabled(t *testing.T) {
	urlA := "https://chat.example.com/share/aaa"

	config := testConfig(t)
	config.URLs = []string{urlA}
	config.Resume = false

	prior := NewProgress(filepath.Join(config.OutputDir, ProgressFile))
	require.NoError(t, prior.MarkCompleted(urlA))

	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		urlA: {URL: urlA, HTML: chatPage("Fetch me again please.", "You are fetched once more.")},
	}}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{urlA}, fetcher.fetched)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 1, stats.Success)
}

// TestRun_AuthRedirect verifies a login bounce is classified and does not
// mark the URL completed
func TestRun_AuthRedirect(t *testing.T) {
	pageURL := "https://chat.example.com/share/xyz"
	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		pageURL: {
			URL:   "https://accounts.example.com/signin?continue=xyz",
			Title: "Sign in",
			HTML:  "<html><body>Sign in to continue</body></html>",
		},
	}}
	config := testConfig(t)
	config.URLs = []string{pageURL}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err, "page failures should not fail the run")

	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, pageURL, stats.Errors[0].URL)
	assert.Contains(t, stats.Errors[0].Error, "authentication")
	assert.True(t, stats.HasAuthIssues())

	progress, err := LoadProgress(filepath.Join(config.OutputDir, ProgressFile))
	require.NoError(t, err)
	assert.False(t, progress.IsCompleted(pageURL), "failed URLs must stay eligible for retry")
}

// TestRun_ConsentPage verifies a cookie wall is classified separately from
// generally empty pages
func TestRun_ConsentPage(t *testing.T) {
	pageURL := "https://chat.example.com/share/xyz"
	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		pageURL: {
			URL:   pageURL,
			Title: "Before you continue",
			HTML:  "<html><head><title>Before you continue</title></head><body><p>We use cookies. Accept all?</p></body></html>",
		},
	}}
	config := testConfig(t)
	config.URLs = []string{pageURL}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0].Error, "consent")
	assert.True(t, stats.HasAuthIssues())
}

// TestRun_EmptyPageWritesDebugArtifact verifies pages yielding no turns are
// recorded and their HTML dumped for inspection
func TestRun_EmptyPageWritesDebugArtifact(t *testing.T) {
	pageURL := "https://chat.example.com/share/empty1"
	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		pageURL: {
			URL:   pageURL,
			Title: "Nothing here",
			HTML:  "<html><head><title>Nothing here</title></head><body><main>An unrelated landing page.</main></body></html>",
		},
	}}
	config := testConfig(t)
	config.URLs = []string{pageURL}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0].Error, "no messages")

	debug, err := os.ReadFile(filepath.Join(config.OutputDir, "empty1.debug.html"))
	require.NoError(t, err, "debug page should be saved")
	assert.Contains(t, string(debug), "unrelated landing page")
}

// TestRun_FetchErrorRecorded verifies transport failures are isolated per URL
func TestRun_FetchErrorRecorded(t *testing.T) {
	badURL := "https://chat.example.com/share/bad"
	goodURL := "https://chat.example.com/share/good"
	fetcher := &stubFetcher{
		errs: map[string]error{badURL: fmt.Errorf("failed to load %s: net::ERR_TIMED_OUT", badURL)},
		pages: map[string]*browser.PageSnapshot{
			goodURL: {URL: goodURL, HTML: chatPage("Still working after that?", "Yes, one bad page never stops the batch.")},
		},
	}
	config := testConfig(t)
	config.URLs = []string{badURL, goodURL}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Success)
	assert.False(t, stats.HasAuthIssues(), "a timeout is not an auth problem")
}

// TestRun_JSONFormat verifies transcripts can be written as JSON turn arrays
func TestRun_JSONFormat(t *testing.T) {
	pageURL := "https://chat.example.com/share/jsonout"
	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		pageURL: {URL: pageURL, HTML: chatPage("Give me JSON output.", "Here it comes as requested.")},
	}}
	config := testConfig(t)
	config.URLs = []string{pageURL}
	config.Format = FormatJSON

	_, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(config.OutputDir, "jsonout.json"))
	require.NoError(t, err)

	var turns []dialogue.Turn
	require.NoError(t, json.Unmarshal(data, &turns))
	require.Len(t, turns, 2)
	assert.Equal(t, dialogue.RoleUser, turns[0].Role)
	assert.Equal(t, "Give me JSON output.", turns[0].Text)
}

// TestRun_URLFile verifies the URL list file feeds the batch in order
func TestRun_URLFile(t *testing.T) {
	urlA := "https://chat.example.com/share/one"
	urlB := "https://chat.example.com/share/two"

	config := testConfig(t)
	config.URLFile = filepath.Join(t.TempDir(), "urls.txt")
	content := "# my conversations\n" + urlA + "\n\n" + urlB + "\n"
	require.NoError(t, os.WriteFile(config.URLFile, []byte(content), 0o600))

	fetcher := &stubFetcher{pages: map[string]*browser.PageSnapshot{
		urlA: {URL: urlA, HTML: chatPage("First in the file.", "And first to be fetched.")},
		urlB: {URL: urlB, HTML: chatPage("Second in the file.", "Fetched right after it.")},
	}}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{urlA, urlB}, fetcher.fetched)
	assert.Equal(t, 2, stats.Success)
}

// TestRun_NoURLs verifies an empty batch is a setup error
func TestRun_NoURLs(t *testing.T) {
	config := testConfig(t)

	_, err := NewHarvester(&stubFetcher{}, config).Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyURLList)
}

// TestRun_MissingURLFile verifies the missing-file error is distinguishable
func TestRun_MissingURLFile(t *testing.T) {
	config := testConfig(t)
	config.URLFile = filepath.Join(t.TempDir(), "absent.txt")

	_, err := NewHarvester(&stubFetcher{}, config).Run(context.Background())
	assert.ErrorIs(t, err, ErrURLFileNotFound)
}

// TestRun_Cancelled verifies cancellation still returns stats for what ran
func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := testConfig(t)
	config.URLs = []string{"https://chat.example.com/share/never"}

	stats, err := NewHarvester(&stubFetcher{}, config).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats, "stats should be returned even when cancelled")
	assert.Equal(t, 0, stats.Success)
}

// TestRun_StatsFileTruncatesErrors verifies the persisted error list is
// capped while the in-memory stats keep everything
func TestRun_StatsFileTruncatesErrors(t *testing.T) {
	config := testConfig(t)
	fetcher := &stubFetcher{errs: map[string]error{}}
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("https://chat.example.com/share/fail%02d", i)
		config.URLs = append(config.URLs, u)
		fetcher.errs[u] = fmt.Errorf("boom %d", i)
	}

	stats, err := NewHarvester(fetcher, config).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats.Errors, 12)

	data, err := os.ReadFile(filepath.Join(config.OutputDir, StatsFile))
	require.NoError(t, err)

	var onDisk Stats
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk.Errors, 10)
	assert.Equal(t, 2, onDisk.ErrorsOmitted)
}

func TestOutputBasename(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"share link", "https://chat.example.com/share/abc-123", "abc-123"},
		{"trailing slash", "https://chat.example.com/share/abc123/", "abc123"},
		{"query ignored", "https://chat.example.com/c/xyz?utm=1", "xyz"},
		{"unsafe characters", "https://chat.example.com/share/a b(c)", "a-b-c"},
		{"empty path", "https://chat.example.com/", "conversation"},
		{"only separators", "https://chat.example.com/./", "conversation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, outputBasename(tt.url))
		})
	}
}

func TestRedirectedToLogin(t *testing.T) {
	requested := "https://gemini.google.com/share/abc"

	tests := []struct {
		name     string
		final    string
		expected bool
	}{
		{"no redirect", requested, false},
		{"consent host", "https://consent.google.com/m?continue=abc", true},
		{"accounts host", "https://accounts.google.com/v3/signin", true},
		{"signin path", "https://gemini.google.com/signin", true},
		{"login path", "https://chat.example.com/login?next=abc", true},
		{"ordinary redirect", "https://gemini.google.com/share/abc?hl=en", false},
		{"empty final url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redirectedToLogin(requested, tt.final))
		})
	}
}

func TestStatsHasAuthIssues(t *testing.T) {
	s := &Stats{Errors: []JobError{{URL: "u", Error: "net::ERR_TIMED_OUT"}}}
	assert.False(t, s.HasAuthIssues())

	s.Errors = append(s.Errors, JobError{URL: "v", Error: ErrAuthExpired.Error()})
	assert.True(t, s.HasAuthIssues())
}

// TestReadySelector_TemplateFallback verifies the template's ready hint is
// used when no explicit selector is configured
func TestReadySelector_TemplateFallback(t *testing.T) {
	config := testConfig(t)
	h := NewHarvester(&stubFetcher{}, config)
	assert.Equal(t, "", h.readySelector())

	config.Extraction.Recipe = recipe.Builtin("gemini")
	assert.Equal(t, "div.conversation-container", h.readySelector())

	config.ReadySelector = ".explicit"
	assert.Equal(t, ".explicit", h.readySelector(), "explicit selector should beat the template hint")
}

// TestSanitizeName verifies filename cleanup keeps safe characters only
func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "abc_DEF-1.2", sanitizeName("abc_DEF-1.2"))
	assert.Equal(t, "a-b", sanitizeName("a/b"))
	assert.Equal(t, "", sanitizeName("..."))
	assert.Equal(t, "x", sanitizeName("-x-"))
}

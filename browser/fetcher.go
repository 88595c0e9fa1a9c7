// Package browser drives a real Chrome instance to render chat pages,
// carrying over a captured session so authenticated conversations load as
// the logged-in operator.
package browser

import (
	"context"
	"time"
)

// FetchOptions control a single page load.
type FetchOptions struct {
	// Timeout bounds the whole load, including waits and scrolling.
	Timeout time.Duration

	// ReadySelector, when set, is waited on after navigation. Best effort:
	// a page that never shows it is still captured.
	ReadySelector string

	// SettleDelay is extra time for client-side rendering after the page
	// reports ready.
	SettleDelay time.Duration

	// ScrollPause is the wait after each scroll jump.
	ScrollPause time.Duration
}

// PageSnapshot is the rendered result of one page load. URL is the final
// location after any redirects, which is how login bounces are detected.
type PageSnapshot struct {
	URL   string
	Title string
	HTML  string
}

// Fetcher loads pages for the harvester. The real implementation drives a
// browser; tests substitute canned snapshots.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*PageSnapshot, error)
	Close() error
}

// Package session loads a previously captured browser login (cookies, UA
// fingerprint, and optionally a saved Chrome profile) so harvest runs can
// reuse the operator's authentication instead of logging in themselves.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	cookiesFile    = "cookies.json"
	contextFile    = "browser_context.json"
	profileDirName = "profile"
)

// ErrNotUsable means the session directory holds neither cookies nor a saved
// profile, so a browser started from it would be logged out.
var ErrNotUsable = errors.New("session has no cookies and no saved browser profile")

// Cookie mirrors the capture format of browser automation tools: camelCase
// keys and a Unix-seconds expiry.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BrowserContext records the fingerprint of the browser the session was
// captured in, so replaying it doesn't look like a different machine.
type BrowserContext struct {
	UserAgent string    `json:"user_agent,omitempty"`
	Viewport  *Viewport `json:"viewport,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Languages []string  `json:"languages,omitempty"`
}

// Bundle is a loaded session directory. Sessions are read-only from this
// side; only the capture tooling writes them.
type Bundle struct {
	Dir     string
	Cookies []Cookie
	Context *BrowserContext
}

// Load reads a session directory. Both JSON files are optional (a bundle can
// work from cookies alone or a saved profile alone), but a file that exists
// and fails to parse is an error.
func Load(dir string) (*Bundle, error) {
	bundle := &Bundle{Dir: dir}

	cookies, err := loadCookies(filepath.Join(dir, cookiesFile))
	if err != nil {
		return nil, err
	}
	bundle.Cookies = cookies

	browserCtx, err := loadContext(filepath.Join(dir, contextFile))
	if err != nil {
		return nil, err
	}
	bundle.Context = browserCtx

	return bundle, nil
}

func loadCookies(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	// Capture tools write either a bare array or an object wrapping one.
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err == nil {
		return cookies, nil
	}

	var wrapper struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}
	return wrapper.Cookies, nil
}

func loadContext(path string) (*BrowserContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read browser context file: %w", err)
	}

	var browserCtx BrowserContext
	if err := json.Unmarshal(data, &browserCtx); err != nil {
		return nil, fmt.Errorf("failed to parse browser context file: %w", err)
	}
	return &browserCtx, nil
}

// ProfileDir returns the path of the saved Chrome profile inside the session
// directory. The directory may not exist.
func (b *Bundle) ProfileDir() string {
	return filepath.Join(b.Dir, profileDirName)
}

// HasCookies reports whether the bundle carries any captured cookies.
func (b *Bundle) HasCookies() bool {
	return len(b.Cookies) > 0
}

// HasProfile reports whether the session includes a non-empty saved profile.
func (b *Bundle) HasProfile() bool {
	entries, err := os.ReadDir(b.ProfileDir())
	return err == nil && len(entries) > 0
}

// Validate returns ErrNotUsable when the bundle has nothing that could
// authenticate a browser.
func (b *Bundle) Validate() error {
	if !b.HasCookies() && !b.HasProfile() {
		return fmt.Errorf("%w: %s", ErrNotUsable, b.Dir)
	}
	return nil
}

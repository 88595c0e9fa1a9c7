package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"chatharvest/session"
)

const (
	defaultTimeout     = 45 * time.Second
	defaultSettleDelay = 2 * time.Second
	defaultScrollPause = 500 * time.Millisecond
	readyWaitTimeout   = 10 * time.Second
)

// Options configure the browser process a Navigator runs.
type Options struct {
	Headless bool

	// ProfileDir points Chrome at a saved user data directory. Mutually
	// exclusive in practice with cookie injection; the profile already
	// contains its own cookies.
	ProfileDir string

	// Fingerprint overrides from the captured session.
	UserAgent string
	Platform  string
	Languages []string
	Viewport  *session.Viewport

	// Cookies are installed once at startup.
	Cookies []session.Cookie
}

// OptionsFromBundle builds navigator options from a captured session.
// useProfile selects the saved Chrome profile over cookie injection; the
// profile carries more login state but only one browser can use it at a
// time.
func OptionsFromBundle(b *session.Bundle, headless, useProfile bool) Options {
	opts := Options{Headless: headless}
	if useProfile && b.HasProfile() {
		opts.ProfileDir = b.ProfileDir()
	} else {
		opts.Cookies = b.Cookies
	}
	if b.Context != nil {
		opts.UserAgent = b.Context.UserAgent
		opts.Platform = b.Context.Platform
		opts.Languages = b.Context.Languages
		opts.Viewport = b.Context.Viewport
	}
	return opts
}

// Navigator implements Fetcher over a single long-lived Chrome instance.
// Each Fetch runs in its own tab.
type Navigator struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewNavigator starts Chrome and installs the session's cookies. The
// returned Navigator must be closed.
func NewNavigator(opts Options) (*Navigator, error) {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if !opts.Headless {
		execOpts = append(execOpts, chromedp.Flag("headless", false))
	}
	if opts.ProfileDir != "" {
		execOpts = append(execOpts, chromedp.UserDataDir(opts.ProfileDir))
	}
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}))

	n := &Navigator{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	// Start the browser now so launch problems surface here rather than on
	// the first fetch, and install cookies while no page is loaded yet.
	startup := chromedp.Tasks{}
	if len(opts.Cookies) > 0 {
		startup = append(startup, setCookies(opts.Cookies))
	}
	if err := chromedp.Run(browserCtx, startup); err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return n, nil
}

// Fetch loads one page in a fresh tab and captures its rendered state.
func (n *Navigator) Fetch(ctx context.Context, pageURL string, opts FetchOptions) (*PageSnapshot, error) {
	tabCtx, tabCancel := chromedp.NewContext(n.browserCtx)
	defer tabCancel()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, runCancel := context.WithTimeout(tabCtx, timeout)
	defer runCancel()

	// Caller cancellation (Ctrl-C mid-batch) must also stop the tab.
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	settle := opts.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}

	var tasks chromedp.Tasks
	if n.opts.UserAgent != "" {
		tasks = append(tasks, overrideFingerprint(n.opts.UserAgent, n.opts.Platform, n.opts.Languages))
	}
	if vp := n.opts.Viewport; vp != nil && vp.Width > 0 && vp.Height > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)))
	}

	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	)
	if opts.ReadySelector != "" {
		tasks = append(tasks, waitBestEffort(opts.ReadySelector))
	}
	tasks = append(tasks, chromedp.Sleep(settle))
	tasks = append(tasks, scrollThrough(opts.ScrollPause))

	snap := &PageSnapshot{}
	tasks = append(tasks,
		chromedp.Title(&snap.Title),
		chromedp.Location(&snap.URL),
		chromedp.OuterHTML("html", &snap.HTML),
	)

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pageURL, err)
	}
	return snap, nil
}

// Close shuts down the browser and its allocator.
func (n *Navigator) Close() error {
	n.browserCancel()
	n.allocCancel()
	return nil
}

// setCookies installs captured session cookies through the CDP storage
// domain.
func setCookies(cookies []session.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := make([]*network.CookieParam, 0, len(cookies))
		for _, c := range cookies {
			p := &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				p.Expires = &expires
			}
			switch strings.ToLower(c.SameSite) {
			case "strict":
				p.SameSite = network.CookieSameSiteStrict
			case "lax":
				p.SameSite = network.CookieSameSiteLax
			case "none":
				p.SameSite = network.CookieSameSiteNone
			}
			params = append(params, p)
		}
		return storage.SetCookies(params).Do(ctx)
	})
}

// overrideFingerprint makes the tab report the captured session's user
// agent, platform, and language preferences.
func overrideFingerprint(ua, platform string, languages []string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p := emulation.SetUserAgentOverride(ua)
		if platform != "" {
			p = p.WithPlatform(platform)
		}
		if len(languages) > 0 {
			p = p.WithAcceptLanguage(strings.Join(languages, ","))
		}
		return p.Do(ctx)
	})
}

// waitBestEffort waits for the template's ready selector but never fails the
// fetch over it; some pages render fine without the expected element.
func waitBestEffort(selector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, readyWaitTimeout)
		defer cancel()
		if err := chromedp.WaitVisible(selector, chromedp.ByQuery).Do(waitCtx); err != nil {
			log.Debug("ready selector did not appear", "selector", selector)
		}
		return nil
	})
}

// scrollThrough jumps to the bottom of the page and back so lazily rendered
// messages are forced into the DOM before capture.
func scrollThrough(pause time.Duration) chromedp.Action {
	if pause <= 0 {
		pause = defaultScrollPause
	}
	return chromedp.Tasks{
		chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
		chromedp.Sleep(pause),
		chromedp.Evaluate("window.scrollTo(0, 0)", nil),
		chromedp.Sleep(pause),
	}
}

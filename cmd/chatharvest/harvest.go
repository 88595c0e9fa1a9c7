package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"

	"chatharvest/browser"
	"chatharvest/config"
	"chatharvest/harvest"
	"chatharvest/session"
)

func handleHarvest(cfg *config.FileConfig, args []string) {
	// Parse flags for harvest command
	fs := flag.NewFlagSet("harvest", flag.ExitOnError)
	urlsFile := fs.String("urls", "", "File with conversation URLs, one per line")
	feedURL := fs.String("feed", "", "RSS or Atom feed to pull conversation URLs from")
	outputDir := fs.String("output-dir", getEnv("CHATHARVEST_OUTPUT_DIR", firstNonEmpty(cfg.Harvest.OutputDir, "harvested")), "Directory for harvested transcripts (CHATHARVEST_OUTPUT_DIR)")
	templateName := fs.String("template", "", "Extraction template (built-in or saved)")
	container := fs.String("container", "", "Custom container selector")
	userSel := fs.String("user-selector", "", "Selector marking user turns inside a container")
	modelSel := fs.String("model-selector", "", "Selector marking model turns inside a container")
	contentSel := fs.String("content-selector", "", "Selector for the text content inside a container")
	jsonOut := fs.Bool("json", cfg.Harvest.Format == "json", "Write transcripts as JSON instead of plain text")
	delayMin := fs.Duration("delay-min", durationOrDefault(cfg.Harvest.DelayMin, 8*time.Second), "Minimum delay between page loads")
	delayMax := fs.Duration("delay-max", durationOrDefault(cfg.Harvest.DelayMax, 20*time.Second), "Maximum delay between page loads")
	timeout := fs.Duration("timeout", durationOrDefault(cfg.Harvest.PageTimeout, 45*time.Second), "Page load timeout")
	readySel := fs.String("ready-selector", cfg.Harvest.ReadySelector, "Selector to wait for before capturing each page")
	resume := fs.Bool("resume", true, "Skip URLs completed by a previous run")
	sessionDir := fs.String("session-dir", getEnv("CHATHARVEST_SESSION_DIR", firstNonEmpty(cfg.SessionDir, "session")), "Session bundle directory (CHATHARVEST_SESSION_DIR)")
	useProfile := fs.Bool("profile", false, "Launch with the saved browser profile instead of injected cookies")
	headless := fs.Bool("headless", defaultHeadless(cfg), "Run the browser headless")
	fs.Parse(args)

	sources := 0
	if len(fs.Args()) > 0 {
		sources++
	}
	if *urlsFile != "" {
		sources++
	}
	if *feedURL != "" {
		sources++
	}
	if sources == 0 {
		fmt.Fprintf(os.Stderr, "Error: provide conversation URLs as arguments, or -urls or -feed\n")
		fs.Usage()
		os.Exit(1)
	}
	if sources > 1 {
		fmt.Fprintf(os.Stderr, "Error: URL arguments, -urls, and -feed are mutually exclusive\n")
		os.Exit(1)
	}

	extraction, err := resolveExtraction(*templateName, *container, *userSel, *modelSel, *contentSel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	hcfg := harvest.DefaultConfig()
	hcfg.OutputDir = *outputDir
	hcfg.Extraction = extraction
	hcfg.Resume = *resume
	hcfg.DelayMin = *delayMin
	hcfg.DelayMax = *delayMax
	hcfg.PageTimeout = *timeout
	hcfg.ReadySelector = *readySel
	if *jsonOut {
		hcfg.Format = harvest.FormatJSON
	}

	switch {
	case len(fs.Args()) > 0:
		hcfg.URLs = fs.Args()
	case *urlsFile != "":
		hcfg.URLFile = *urlsFile
	case *feedURL != "":
		urls, err := harvest.LoadURLsFromFeed(*feedURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(urls) == 0 {
			fmt.Fprintf(os.Stderr, "Error: feed has no links\n")
			os.Exit(1)
		}
		fmt.Printf("Feed lists %d conversations\n", len(urls))
		hcfg.URLs = urls
	}

	// A batch harvest needs login state; refuse to start with an empty
	// session rather than collect a directory of consent pages.
	bundle, err := session.Load(*sessionDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load session from %s: %v\n", *sessionDir, err)
		os.Exit(1)
	}
	if err := bundle.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Sign in with a real browser first, then export its cookies to %s/cookies.json or copy a Chrome profile to %s/profile.\n", *sessionDir, *sessionDir)
		os.Exit(1)
	}

	nav, err := browser.NewNavigator(browser.OptionsFromBundle(bundle, *headless, *useProfile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start browser: %v\n", err)
		os.Exit(1)
	}

	// Ctrl-C stops after the current page, with progress already saved.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	hcfg.StatusFunc = func(status string) {
		sp.Suffix = " " + status
	}
	sp.Start()

	harvester := harvest.NewHarvester(nav, hcfg)
	stats, runErr := harvester.Run(ctx)

	sp.Stop()
	nav.Close()

	if stats == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}

	printHarvestSummary(stats, runErr, *outputDir)

	if runErr != nil || stats.Failed > 0 {
		os.Exit(1)
	}
}

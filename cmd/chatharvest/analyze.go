package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chatharvest/browser"
	"chatharvest/config"
	"chatharvest/extract"
)

func handleAnalyze(cfg *config.FileConfig, args []string) {
	// Parse flags for analyze command
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	htmlFile := fs.String("file", "", "Read the page from a local HTML file instead of fetching")
	pageURL := fs.String("url", "", "Page URL to fetch and analyze")
	sessionDir := fs.String("session-dir", getEnv("CHATHARVEST_SESSION_DIR", firstNonEmpty(cfg.SessionDir, "session")), "Session bundle directory (CHATHARVEST_SESSION_DIR)")
	useProfile := fs.Bool("profile", false, "Launch with the saved browser profile instead of injected cookies")
	headless := fs.Bool("headless", defaultHeadless(cfg), "Run the browser headless")
	timeout := fs.Duration("timeout", durationOrDefault(cfg.Harvest.PageTimeout, 45*time.Second), "Page load timeout")
	readySel := fs.String("ready-selector", cfg.Harvest.ReadySelector, "Selector to wait for before capturing the page")
	fs.Parse(args)

	if (*htmlFile == "") == (*pageURL == "") {
		fmt.Fprintf(os.Stderr, "Error: provide exactly one of -file or -url\n")
		fs.Usage()
		os.Exit(1)
	}

	var rawHTML string
	if *htmlFile != "" {
		data, err := os.ReadFile(*htmlFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", *htmlFile, err)
			os.Exit(1)
		}
		rawHTML = string(data)
	} else {
		rawHTML = fetchPage(*pageURL, *sessionDir, *useProfile, *headless, browser.FetchOptions{
			Timeout:       *timeout,
			ReadySelector: *readySel,
		})
	}

	doc, err := extract.ParseHTML(rawHTML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printAnalysisReport(extract.Analyze(doc))
}

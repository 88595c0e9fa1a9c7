package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chatharvest/browser"
	"chatharvest/config"
	"chatharvest/dialogue"
	"chatharvest/extract"
)

func handleScrape(cfg *config.FileConfig, args []string) {
	// Parse flags for scrape command
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	htmlFile := fs.String("file", "", "Read the page from a local HTML file instead of fetching")
	pageURL := fs.String("url", "", "Conversation URL to fetch")
	templateName := fs.String("template", "", "Extraction template (built-in or saved)")
	container := fs.String("container", "", "Custom container selector")
	userSel := fs.String("user-selector", "", "Selector marking user turns inside a container")
	modelSel := fs.String("model-selector", "", "Selector marking model turns inside a container")
	contentSel := fs.String("content-selector", "", "Selector for the text content inside a container")
	jsonOut := fs.Bool("json", false, "Emit turns as JSON instead of plain text")
	output := fs.String("output", "", "Write the transcript to a file instead of stdout")
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

	extraction, err := resolveExtraction(*templateName, *container, *userSel, *modelSel, *contentSel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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
			ReadySelector: resolveReadySelector(*readySel, extraction),
		})
	}

	doc, err := extract.ParseHTML(rawHTML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	turns, err := extract.Extract(doc, extraction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(turns) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no messages found on the page\n")
		fmt.Fprintf(os.Stderr, "Try a different -template, custom selectors, or `chatharvest analyze` to inspect the page structure.\n")
		os.Exit(1)
	}

	var payload []byte
	if *jsonOut {
		payload, err = dialogue.FormatJSON(turns)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		payload = []byte(dialogue.FormatText(turns) + "\n")
	}

	if *output == "" {
		if *jsonOut {
			fmt.Println(string(payload))
		} else {
			fmt.Print(string(payload))
		}
		return
	}

	if err := os.WriteFile(*output, payload, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("✓ Wrote %d turns to %s\n", len(turns), *output)
}

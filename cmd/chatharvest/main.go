// Command chatharvest extracts AI chat conversations from share pages: one-off
// scrapes, structural analysis for building templates, and resumable batch
// harvests behind a captured login session.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"chatharvest/config"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	if os.Getenv("CHATHARVEST_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	fileCfg, err := config.LoadConfigFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if fileCfg == nil {
		fileCfg = &config.FileConfig{}
	}

	// Get subcommand
	subcommand := os.Args[1]

	switch subcommand {
	case "scrape":
		handleScrape(fileCfg, os.Args[2:])
	case "analyze":
		handleAnalyze(fileCfg, os.Args[2:])
	case "harvest":
		handleHarvest(fileCfg, os.Args[2:])
	case "templates":
		if len(os.Args) < 3 {
			printTemplatesUsage()
			os.Exit(1)
		}
		handleTemplatesCommand(os.Args[2], os.Args[3:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("chatharvest - AI chat transcript extractor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatharvest <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scrape     Extract one conversation to stdout or a file")
	fmt.Println("  analyze    Inspect a page's structure to help pick selectors")
	fmt.Println("  harvest    Batch-download conversations from a URL list or feed")
	fmt.Println("  templates  Manage extraction templates")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  CHATHARVEST_SESSION_DIR  Browser session bundle directory (default: session)")
	fmt.Println("  CHATHARVEST_OUTPUT_DIR   Harvest output directory (default: harvested)")
	fmt.Println("  CHATHARVEST_DEBUG        Enable debug logging when set")
	fmt.Println()
	fmt.Println("Defaults can also be set in ~/.chatharvest/config.yaml.")
}

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"chatharvest/extract"
	"chatharvest/harvest"
)

const (
	maxRoleElements      = 10
	maxDataAttributes    = 20
	maxClassCounts       = 30
	maxKeywordContainers = 20
	maxSummaryErrors     = 10
)

// printAnalysisReport renders a structure report in sections, capped so huge
// pages stay readable.
func printAnalysisReport(r *extract.Report) {
	if r.Title != "" {
		fmt.Printf("Page title: %s\n", r.Title)
	} else {
		fmt.Println("Page title: (none)")
	}

	fmt.Println()
	fmt.Println("Role-attributed elements:")
	if len(r.RoleElements) == 0 {
		fmt.Println("  (none)")
	}
	for i, el := range r.RoleElements {
		if i == maxRoleElements {
			fmt.Printf("  ... and %d more\n", len(r.RoleElements)-maxRoleElements)
			break
		}
		fmt.Printf("  <%s%s> role=%q\n", el.Tag, classSuffix(el.Classes), el.Role)
		if el.Preview != "" {
			fmt.Printf("      %s\n", el.Preview)
		}
	}

	fmt.Println()
	fmt.Println("Data attributes:")
	if len(r.DataAttributes) == 0 {
		fmt.Println("  (none)")
	}
	for i, attr := range r.DataAttributes {
		if i == maxDataAttributes {
			fmt.Printf("  ... and %d more\n", len(r.DataAttributes)-maxDataAttributes)
			break
		}
		fmt.Printf("  %s\n", attr)
	}

	fmt.Println()
	fmt.Println("Repeated classes:")
	if len(r.ClassCounts) == 0 {
		fmt.Println("  (none)")
	}
	for i, cc := range r.ClassCounts {
		if i == maxClassCounts {
			fmt.Printf("  ... and %d more\n", len(r.ClassCounts)-maxClassCounts)
			break
		}
		fmt.Printf("  %4d  %s\n", cc.Count, cc.Name)
	}

	fmt.Println()
	fmt.Println("Containers with chat-like class names:")
	if len(r.KeywordContainers) == 0 {
		fmt.Println("  (none)")
	}
	for i, kc := range r.KeywordContainers {
		if i == maxKeywordContainers {
			fmt.Printf("  ... and %d more\n", len(r.KeywordContainers)-maxKeywordContainers)
			break
		}
		fmt.Printf("  <%s%s>\n", kc.Tag, classSuffix(kc.Classes))
		if kc.Preview != "" {
			fmt.Printf("      %s\n", kc.Preview)
		}
	}

	fmt.Println()
	printRecommendation(r)
}

// classSuffix renders element classes in selector style for display.
func classSuffix(classes []string) string {
	if len(classes) == 0 {
		return ""
	}
	return " ." + strings.Join(classes, " .")
}

// printRecommendation suggests a next step based on what the report found.
func printRecommendation(r *extract.Report) {
	switch {
	case len(r.RoleElements) > 0 || hasRoleDataAttribute(r):
		fmt.Println("Elements carry explicit role markers; automatic detection is likely to work.")
	case len(r.KeywordContainers) > 0:
		kc := r.KeywordContainers[0]
		fmt.Println("No explicit role markers found. Try a custom container selector, e.g.:")
		if len(kc.Classes) > 0 {
			fmt.Printf("  chatharvest scrape -url <url> -container '%s.%s'\n", kc.Tag, kc.Classes[0])
		} else {
			fmt.Printf("  chatharvest scrape -url <url> -container '%s'\n", kc.Tag)
		}
	default:
		fmt.Println("No chat-like structure found. The page may not have loaded fully, or needs a login session.")
	}
}

func hasRoleDataAttribute(r *extract.Report) bool {
	for _, attr := range r.DataAttributes {
		if strings.Contains(attr, "role") || strings.Contains(attr, "author") {
			return true
		}
	}
	return false
}

// printHarvestSummary renders the end-of-run totals, errors, and any
// re-authentication guidance.
func printHarvestSummary(stats *harvest.Stats, runErr error, outputDir string) {
	fmt.Println()
	if runErr != nil {
		fmt.Printf("Harvest interrupted: %v\n", runErr)
	} else {
		fmt.Println("Harvest completed:")
	}
	fmt.Printf("  Harvested: %d\n", stats.Success)
	fmt.Printf("  Failed:    %d\n", stats.Failed)
	fmt.Printf("  Skipped:   %d\n", stats.Skipped)

	if len(stats.Errors) > 0 {
		fmt.Println()
		fmt.Println("Errors:")
		for i, jobErr := range stats.Errors {
			if i == maxSummaryErrors {
				fmt.Printf("  ... and %d more (see %s)\n",
					len(stats.Errors)-maxSummaryErrors,
					filepath.Join(outputDir, harvest.StatsFile))
				break
			}
			fmt.Printf("  - %s: %s\n", jobErr.URL, jobErr.Error)
		}
	}

	if stats.HasAuthIssues() {
		fmt.Println()
		fmt.Println("Some pages redirected to consent or login screens. The saved session may have expired; sign in again and re-export it.")
	}
}

package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Report summarizes the DOM features that matter when writing an extraction
// template for an unfamiliar chat page.
type Report struct {
	Title             string
	RoleElements      []RoleElement
	DataAttributes    []string
	ClassCounts       []ClassCount
	KeywordContainers []KeywordContainer
}

// RoleElement is an element carrying an explicit role annotation attribute.
type RoleElement struct {
	Tag     string
	Role    string
	Classes []string
	Preview string
}

// ClassCount is a class name with the number of elements that carry it.
type ClassCount struct {
	Name  string
	Count int
}

// KeywordContainer is an element whose class names hint at chat structure.
type KeywordContainer struct {
	Tag     string
	Classes []string
	Preview string
}

// structureKeywords flag class names that commonly mark conversation
// elements.
var structureKeywords = []string{
	"message", "turn", "chat", "response", "query",
	"user", "model", "assistant", "human",
}

// Repeat counts outside this range are framework noise: singletons tell us
// nothing about repeating message structure, and anything above the ceiling
// is almost always a utility class.
const (
	minClassCount = 2
	maxClassCount = 100
)

// Analyze inspects a page and reports the signals an operator needs to pick
// selectors for a new template: explicit role attributes, data attribute
// names, repeated class names, and elements whose classes suggest chat
// structure.
func Analyze(doc *goquery.Document) *Report {
	report := &Report{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	report.RoleElements = collectRoleElements(doc)
	report.DataAttributes = collectDataAttributes(doc)
	report.ClassCounts = collectClassCounts(doc)
	report.KeywordContainers = collectKeywordContainers(doc)

	return report
}

// collectRoleElements lists elements carrying an ARIA role attribute, a
// common marker for chat message containers.
func collectRoleElements(doc *goquery.Document) []RoleElement {
	var elements []RoleElement
	doc.Find("[role]").Each(func(i int, s *goquery.Selection) {
		role, _ := s.Attr("role")
		class, _ := s.Attr("class")
		classes := strings.Fields(class)
		if len(classes) > 3 {
			classes = classes[:3]
		}
		elements = append(elements, RoleElement{
			Tag:     goquery.NodeName(s),
			Role:    role,
			Classes: classes,
			Preview: preview(Text(s), 100),
		})
	})
	return elements
}

// collectDataAttributes returns the distinct data-* attribute names used
// anywhere on the page, sorted.
func collectDataAttributes(doc *goquery.Document) []string {
	names := map[string]bool{}
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		for _, a := range s.Get(0).Attr {
			if strings.HasPrefix(a.Key, "data-") {
				names[a.Key] = true
			}
		}
	})

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// collectClassCounts tallies individual class names, keeping only those
// repeated enough to suggest per-message structure. Sorted by count
// descending, then name.
func collectClassCounts(doc *goquery.Document) []ClassCount {
	counts := map[string]int{}
	doc.Find("[class]").Each(func(i int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		for _, name := range strings.Fields(class) {
			counts[name]++
		}
	})

	var out []ClassCount
	for name, count := range counts {
		if count < minClassCount || count > maxClassCount {
			continue
		}
		out = append(out, ClassCount{Name: name, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// collectKeywordContainers finds elements whose classes mention any of the
// structure keywords and that hold enough text to be an actual message.
func collectKeywordContainers(doc *goquery.Document) []KeywordContainer {
	var out []KeywordContainer
	doc.Find("[class]").Each(func(i int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		lower := strings.ToLower(class)

		matched := false
		for _, kw := range structureKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		text := Text(s)
		if len(text) <= 10 {
			return
		}

		out = append(out, KeywordContainer{
			Tag:     goquery.NodeName(s),
			Classes: strings.Fields(class),
			Preview: preview(text, 200),
		})
	})
	return out
}

// preview flattens text to a single line and truncates it for display.
func preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

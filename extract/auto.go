package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"chatharvest/dialogue"
)

// roleAttributes are checked in order; the first attribute present on the
// page decides the extraction.
var roleAttributes = []string{
	"data-message-author-role",
	"data-author-role",
	"data-author",
	"data-turn-role",
}

// userClassKeywords mark an element as user-authored when one appears in its
// class attribute.
var userClassKeywords = []string{"user", "query", "human"}

// Keyword sets for the two-pass class scan.
var (
	userContainerKeywords  = []string{"query", "prompt", "user-message", "human"}
	modelContainerKeywords = []string{"response", "model-response", "assistant", "answer"}
)

// genericMinChars is the stricter floor for the last-resort "message" class
// scan, which sweeps up far more UI chrome than the targeted strategies.
const genericMinChars = 10

type strategy func(*goquery.Document) []dialogue.Turn

// strategies are ordered most-specific-first; the first one to produce any
// turns wins and the rest never run.
var strategies = []strategy{
	detectByRoleAttribute,
	detectByListItems,
	detectByClassKeywords,
	detectByMessageClass,
}

// autoDetect tries each detection strategy against the page until one yields
// turns. Pages with no recognizable structure produce nil.
func autoDetect(doc *goquery.Document) []dialogue.Turn {
	for _, detect := range strategies {
		if turns := detect(doc); len(turns) > 0 {
			return turns
		}
	}
	return nil
}

// detectByRoleAttribute looks for explicit role annotations in data
// attributes. Values containing "user" or "human" attribute to the user;
// every other value goes to the model.
func detectByRoleAttribute(doc *goquery.Document) []dialogue.Turn {
	for _, attr := range roleAttributes {
		sel := doc.Find(fmt.Sprintf("[%s]", attr))
		if sel.Length() == 0 {
			continue
		}

		var turns []dialogue.Turn
		sel.Each(func(i int, s *goquery.Selection) {
			text := Text(s)
			if len(text) < minTurnChars {
				return
			}
			value, _ := s.Attr(attr)
			value = strings.ToLower(value)
			role := dialogue.RoleModel
			if strings.Contains(value, "user") || strings.Contains(value, "human") {
				role = dialogue.RoleUser
			}
			turns = append(turns, dialogue.Turn{Role: role, Text: text})
		})
		return turns
	}
	return nil
}

// detectByListItems handles pages that expose the conversation through ARIA
// list item roles.
func detectByListItems(doc *goquery.Document) []dialogue.Turn {
	var turns []dialogue.Turn
	doc.Find(`[role="listitem"]`).Each(func(i int, s *goquery.Selection) {
		text := Text(s)
		if len(text) < minTurnChars {
			return
		}
		class, _ := s.Attr("class")
		turns = append(turns, dialogue.Turn{Role: roleFromClass(class, userClassKeywords, nil), Text: text})
	})
	return turns
}

// detectByClassKeywords scans for user-ish and model-ish class names in two
// passes, so all user turns come out before all model turns. Ordering is
// only faithful when each side's messages share a dedicated class and the
// page lists them in order; interleaved layouts are expected to be caught by
// the earlier strategies instead.
func detectByClassKeywords(doc *goquery.Document) []dialogue.Turn {
	var turns []dialogue.Turn
	seen := map[*html.Node]bool{}

	collect := func(keywords []string, role dialogue.Role) {
		for _, kw := range keywords {
			doc.Find(fmt.Sprintf(`[class*=%q]`, kw)).Each(func(i int, s *goquery.Selection) {
				node := s.Get(0)
				if seen[node] {
					return
				}
				seen[node] = true

				text := Text(s)
				if len(text) < minTurnChars {
					return
				}
				turns = append(turns, dialogue.Turn{Role: role, Text: text})
			})
		}
	}

	collect(userContainerKeywords, dialogue.RoleUser)
	collect(modelContainerKeywords, dialogue.RoleModel)
	return turns
}

// detectByMessageClass is the last resort: any element whose class mentions
// "message". Roles fall back to class inference and the text floor is raised
// because this selector matches status lines and chrome all over the page.
func detectByMessageClass(doc *goquery.Document) []dialogue.Turn {
	var turns []dialogue.Turn
	doc.Find(`[class*="message"]`).Each(func(i int, s *goquery.Selection) {
		text := Text(s)
		if len(text) < genericMinChars {
			return
		}
		class, _ := s.Attr("class")
		turns = append(turns, dialogue.Turn{Role: roleFromClass(class, userClassKeywords, nil), Text: text})
	})
	return turns
}

package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chatharvest/dialogue"
	"chatharvest/recipe"
)

// Options selects the extraction path. A template wins over ad-hoc
// selectors; when neither is set the engine auto-detects the page structure.
type Options struct {
	Recipe    *recipe.Recipe
	Selectors *Selectors
}

// Selectors are ad-hoc CSS selectors for a one-off extraction with no
// template. Container is required; the rest are optional refinements.
type Selectors struct {
	Container string
	User      string
	Model     string
	Content   string
}

// minTurnChars filters out the boilerplate fragments (icon labels, buttons,
// edit controls) that template and auto-detection selectors pick up.
const minTurnChars = 5

// Extract pulls conversation turns out of a parsed page. The only error case
// is a template with an unrecognized kind; an empty result means the page
// held no recognizable conversation.
func Extract(doc *goquery.Document, opts Options) ([]dialogue.Turn, error) {
	var turns []dialogue.Turn

	switch {
	case opts.Recipe != nil:
		var err error
		turns, err = extractWithRecipe(doc, opts.Recipe)
		if err != nil {
			return nil, err
		}
	case opts.Selectors != nil && opts.Selectors.Container != "":
		turns = extractWithSelectors(doc, opts.Selectors)
	default:
		turns = autoDetect(doc)
	}

	return maybeSplit(turns), nil
}

func extractWithRecipe(doc *goquery.Document, r *recipe.Recipe) ([]dialogue.Turn, error) {
	switch r.Kind {
	case recipe.TurnBased:
		return extractTurnBased(doc, r), nil
	case recipe.AttributeBased:
		return extractAttributeBased(doc, r), nil
	case recipe.ClassBased:
		return extractClassBased(doc, r), nil
	default:
		return nil, fmt.Errorf("%w: %q", recipe.ErrUnknownKind, r.Kind)
	}
}

// maybeSplit applies the monologue splitter when extraction produced exactly
// one turn that looks like a whole conversation collapsed into one block.
func maybeSplit(turns []dialogue.Turn) []dialogue.Turn {
	if len(turns) == 1 && dialogue.ShouldSplit(turns[0].Text) {
		return dialogue.SplitMonologue(turns[0].Text)
	}
	return turns
}

// extractTurnBased handles containers that hold a user sub-element, a model
// sub-element, or both. Each sub-element with enough text yields a turn, so
// an exchange container produces a pair while a per-message container
// produces one.
func extractTurnBased(doc *goquery.Document, r *recipe.Recipe) []dialogue.Turn {
	var turns []dialogue.Turn
	doc.Find(r.Container).Each(func(i int, container *goquery.Selection) {
		if text := Text(container.Find(r.UserSelector)); len(text) >= minTurnChars {
			turns = append(turns, dialogue.Turn{Role: dialogue.RoleUser, Text: text})
		}
		if text := Text(container.Find(r.ModelSelector)); len(text) >= minTurnChars {
			turns = append(turns, dialogue.Turn{Role: dialogue.RoleModel, Text: text})
		}
	})
	return turns
}

// extractAttributeBased reads the role from a named attribute on each
// container and maps it through the template's role table.
func extractAttributeBased(doc *goquery.Document, r *recipe.Recipe) []dialogue.Turn {
	var turns []dialogue.Turn
	doc.Find(r.Container).Each(func(i int, container *goquery.Selection) {
		text := containerText(container, r.ContentSelector)
		if len(text) < minTurnChars {
			return
		}
		value, _ := container.Attr(r.RoleAttribute)
		turns = append(turns, dialogue.Turn{Role: r.RoleFor(value), Text: text})
	})
	return turns
}

// extractClassBased infers each container's role from keywords in its class
// attribute.
func extractClassBased(doc *goquery.Document, r *recipe.Recipe) []dialogue.Turn {
	var turns []dialogue.Turn
	doc.Find(r.Container).Each(func(i int, container *goquery.Selection) {
		text := containerText(container, r.ContentSelector)
		if len(text) < minTurnChars {
			return
		}
		class, _ := container.Attr("class")
		role := roleFromClass(class, r.UserKeywords, r.ModelKeywords)
		turns = append(turns, dialogue.Turn{Role: role, Text: text})
	})
	return turns
}

// extractWithSelectors runs a one-off extraction from caller-provided
// selectors. A container holding both a user and a model sub-element yields
// a turn pair from the sub-element texts; otherwise the container becomes a
// single turn whose role comes from whichever sub-selector matched, falling
// back to class inference. Ad-hoc selectors are taken at face value, so no
// length filter applies.
func extractWithSelectors(doc *goquery.Document, sel *Selectors) []dialogue.Turn {
	var turns []dialogue.Turn
	doc.Find(sel.Container).Each(func(i int, container *goquery.Selection) {
		var user, model *goquery.Selection
		if sel.User != "" {
			user = container.Find(sel.User)
		}
		if sel.Model != "" {
			model = container.Find(sel.Model)
		}

		if user != nil && model != nil && user.Length() > 0 && model.Length() > 0 {
			if text := Text(user); text != "" {
				turns = append(turns, dialogue.Turn{Role: dialogue.RoleUser, Text: text})
			}
			if text := Text(model); text != "" {
				turns = append(turns, dialogue.Turn{Role: dialogue.RoleModel, Text: text})
			}
			return
		}

		var role dialogue.Role
		switch {
		case user != nil && user.Length() > 0:
			role = dialogue.RoleUser
		case model != nil && model.Length() > 0:
			role = dialogue.RoleModel
		default:
			class, _ := container.Attr("class")
			role = roleFromClass(class, userClassKeywords, nil)
		}

		if text := containerText(container, sel.Content); text != "" {
			turns = append(turns, dialogue.Turn{Role: role, Text: text})
		}
	})
	return turns
}

// containerText prefers the content sub-element when a selector for it is
// configured and matches; otherwise it falls back to the whole container.
func containerText(container *goquery.Selection, contentSelector string) string {
	if contentSelector != "" {
		if content := container.Find(contentSelector); content.Length() > 0 {
			return Text(content)
		}
	}
	return Text(container)
}

// roleFromClass checks user keywords before model keywords; the first match
// wins and unmatched classes attribute to the model.
func roleFromClass(class string, userKeywords, modelKeywords []string) dialogue.Role {
	class = strings.ToLower(class)
	for _, kw := range userKeywords {
		if strings.Contains(class, strings.ToLower(kw)) {
			return dialogue.RoleUser
		}
	}
	for _, kw := range modelKeywords {
		if strings.Contains(class, strings.ToLower(kw)) {
			return dialogue.RoleModel
		}
	}
	return dialogue.RoleModel
}

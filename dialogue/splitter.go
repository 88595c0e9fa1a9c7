package dialogue

import (
	"regexp"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// ShouldSplit reports whether a lone block of text looks like a collapsed
// conversation rather than a single message. That is the case when the text
// contains a blank-line paragraph break, or when it has so many line breaks
// that it is almost certainly multiple messages run together.
func ShouldSplit(text string) bool {
	if strings.Contains(text, "\n\n") {
		return true
	}
	return strings.Count(text, "\n") > 10
}

// SplitMonologue breaks a single undifferentiated block of conversation text
// into alternating turns. Chunks are split on blank lines first; if that
// yields only one chunk the text is re-split on single newlines. Roles
// alternate starting with the user, advancing only when a chunk is actually
// emitted, so empty chunks never desynchronize the attribution.
func SplitMonologue(text string) []Turn {
	chunks := paragraphBreak.Split(text, -1)
	if len(chunks) <= 1 {
		chunks = strings.Split(text, "\n")
	}

	turns := make([]Turn, 0, len(chunks))
	role := RoleUser
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		turns = append(turns, Turn{Role: role, Text: chunk})
		if role == RoleUser {
			role = RoleModel
		} else {
			role = RoleUser
		}
	}
	return turns
}

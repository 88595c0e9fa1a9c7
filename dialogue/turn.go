// Package dialogue defines the conversation model shared by the extraction
// engine and the harvest orchestrator: ordered turns attributed to either
// the human or the AI side of a chat.
package dialogue

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Role identifies which side of the conversation produced a turn.
type Role string

const (
	RoleUser  Role = "User"
	RoleModel Role = "Model"
)

// Turn is one attributed message in a conversation. Ordering within a
// conversation is significant.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// CleanText normalizes extracted message text: trims surrounding whitespace
// and collapses runs of three or more newlines down to a single blank line.
func CleanText(text string) string {
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// FormatText renders turns as "Role: text" blocks separated by blank lines.
func FormatText(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		parts = append(parts, fmt.Sprintf("%s: %s", turn.Role, CleanText(turn.Text)))
	}
	return strings.Join(parts, "\n\n")
}

// FormatJSON renders turns as an indented JSON array of role/content objects.
func FormatJSON(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turns: %w", err)
	}
	return data, nil
}

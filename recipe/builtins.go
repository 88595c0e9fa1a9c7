package recipe

import (
	"sort"
	"strings"

	"chatharvest/dialogue"
)

// builtins are the templates shipped with the tool, covering the major chat
// UIs. Keyed by lowercase name.
var builtins = map[string]*Recipe{
	"gemini": {
		Name:          "gemini",
		DisplayName:   "Google Gemini",
		Description:   "Gemini conversation pages (gemini.google.com)",
		Kind:          TurnBased,
		Container:     "div.conversation-container",
		UserSelector:  "user-query",
		ModelSelector: "model-response",
		ReadySelector: "div.conversation-container",
	},
	"aistudio": {
		Name:          "aistudio",
		DisplayName:   "Google AI Studio",
		Description:   "AI Studio prompt pages (aistudio.google.com)",
		Kind:          TurnBased,
		Container:     "ms-chat-turn",
		UserSelector:  ".user-prompt-container",
		ModelSelector: ".model-response-container",
		ReadySelector: "ms-chat-turn",
	},
	"chatgpt": {
		Name:          "chatgpt",
		DisplayName:   "ChatGPT",
		Description:   "Shared ChatGPT conversations (chatgpt.com/share)",
		Kind:          AttributeBased,
		Container:     "[data-message-author-role]",
		RoleAttribute: "data-message-author-role",
		RoleMap: map[string]dialogue.Role{
			"user":      dialogue.RoleUser,
			"assistant": dialogue.RoleModel,
		},
		ReadySelector: "[data-message-author-role]",
	},
	"claude": {
		Name:          "claude",
		DisplayName:   "Claude",
		Description:   "Shared Claude conversations (claude.ai/share)",
		Kind:          ClassBased,
		Container:     `div[class*="-message"]`,
		UserKeywords:  []string{"user", "human"},
		ModelKeywords: []string{"claude", "assistant"},
	},
}

// Builtin returns a copy of the named built-in template, or nil if there is
// no built-in with that name. The copy is safe to modify.
func Builtin(name string) *Recipe {
	r, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return r.clone()
}

// Builtins returns copies of all built-in templates sorted by name.
func Builtins() []*Recipe {
	out := make([]*Recipe, 0, len(builtins))
	for _, r := range builtins {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsBuiltin reports whether name refers to a built-in template.
func IsBuiltin(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}

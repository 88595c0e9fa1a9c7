// Package recipe defines extraction templates: per-site instructions that
// tell the engine how to locate conversation turns in a page and how to
// attribute each one to the user or the model.
package recipe

import (
	"errors"
	"fmt"
	"strings"

	"chatharvest/dialogue"
)

// Kind selects the role-attribution strategy a template uses.
type Kind string

const (
	// TurnBased templates find user and model sub-elements inside each
	// conversation container.
	TurnBased Kind = "turn_based"

	// AttributeBased templates read the role from a named attribute on the
	// container and map its value through RoleMap.
	AttributeBased Kind = "attribute_based"

	// ClassBased templates infer the role from keywords in the container's
	// class attribute.
	ClassBased Kind = "class_based"
)

var (
	ErrRecipeNotFound  = errors.New("template not found")
	ErrDuplicateRecipe = errors.New("template with this name already exists")
	ErrUnknownKind     = errors.New("unknown template kind")
)

// Recipe describes how to extract a conversation from one site's DOM.
// Container is a CSS selector matching one element per message (or per
// exchange, for turn-based templates); the remaining fields depend on Kind.
type Recipe struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Kind        Kind   `json:"kind"`
	Container   string `json:"container"`

	// Turn-based fields.
	UserSelector  string `json:"user_selector,omitempty"`
	ModelSelector string `json:"model_selector,omitempty"`

	// Optional selector for the text body inside a container; when it does
	// not match, the container's own text is used.
	ContentSelector string `json:"content_selector,omitempty"`

	// Attribute-based fields.
	RoleAttribute string                   `json:"role_attribute,omitempty"`
	RoleMap       map[string]dialogue.Role `json:"role_map,omitempty"`

	// Class-based fields.
	UserKeywords  []string `json:"user_keywords,omitempty"`
	ModelKeywords []string `json:"model_keywords,omitempty"`

	// ReadySelector, when set, is waited on before the page is captured.
	ReadySelector string `json:"ready_selector,omitempty"`
}

// RoleFor maps an attribute value to a role using the template's RoleMap.
// Lookup is case-insensitive; unmapped values attribute to the model, since
// chat UIs label assistant messages far less consistently than user ones.
func (r *Recipe) RoleFor(value string) dialogue.Role {
	if role, ok := r.RoleMap[strings.ToLower(strings.TrimSpace(value))]; ok {
		return role
	}
	return dialogue.RoleModel
}

// Validate checks that the template carries the fields its kind requires.
func (r *Recipe) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if r.Container == "" {
		return fmt.Errorf("template container selector is required")
	}

	switch r.Kind {
	case TurnBased:
		if r.UserSelector == "" || r.ModelSelector == "" {
			return fmt.Errorf("turn_based template requires both user_selector and model_selector")
		}
	case AttributeBased:
		if r.RoleAttribute == "" {
			return fmt.Errorf("attribute_based template requires role_attribute")
		}
	case ClassBased:
		if len(r.UserKeywords) == 0 {
			return fmt.Errorf("class_based template requires at least one user keyword")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	return nil
}

func (r *Recipe) clone() *Recipe {
	out := *r
	if r.RoleMap != nil {
		out.RoleMap = make(map[string]dialogue.Role, len(r.RoleMap))
		for k, v := range r.RoleMap {
			out.RoleMap[k] = v
		}
	}
	out.UserKeywords = append([]string(nil), r.UserKeywords...)
	out.ModelKeywords = append([]string(nil), r.ModelKeywords...)
	return &out
}

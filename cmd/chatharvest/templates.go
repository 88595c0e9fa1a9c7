package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"chatharvest/config"
	"chatharvest/dialogue"
	"chatharvest/recipe"
)

func handleTemplatesCommand(action string, args []string) {
	switch action {
	case "list":
		handleTemplatesList(args)
	case "add":
		handleTemplatesAdd(args)
	case "show":
		handleTemplatesShow(args)
	case "delete":
		handleTemplatesDelete(args)
	case "default":
		handleTemplatesDefault(args)
	case "help", "--help", "-h":
		printTemplatesUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown templates command: %s\n\n", action)
		printTemplatesUsage()
		os.Exit(1)
	}
}

func printTemplatesUsage() {
	fmt.Println("chatharvest templates - Manage extraction templates")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatharvest templates <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List built-in and saved templates")
	fmt.Println("  add        Save a new template")
	fmt.Println("  show       Print one template as JSON")
	fmt.Println("  delete     Delete a saved template")
	fmt.Println("  default    Show or set the default template")
	fmt.Println("  help       Show this help message")
}

func handleTemplatesList(args []string) {
	fs := flag.NewFlagSet("templates list", flag.ExitOnError)
	fs.Parse(args)

	store, err := openTemplateStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open template store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	saved, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list templates: %v\n", err)
		os.Exit(1)
	}

	defaultName, err := defaultTemplateName()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Print table header
	fmt.Printf("%-18s %-16s %-10s %s\n", "NAME", "KIND", "SOURCE", "DESCRIPTION")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, r := range recipe.Builtins() {
		printTemplateRow(r, "built-in", defaultName)
	}
	for _, r := range saved {
		printTemplateRow(r, "saved", defaultName)
	}

	if defaultName != "" {
		fmt.Println()
		fmt.Println("* default template")
	}
}

func printTemplateRow(r *recipe.Recipe, source, defaultName string) {
	name := r.Name
	if r.Name == defaultName {
		name += " *"
	}

	// Truncate description if too long
	desc := r.Description
	if len(desc) > 40 {
		desc = desc[:37] + "..."
	}

	fmt.Printf("%-18s %-16s %-10s %s\n", name, string(r.Kind), source, desc)
}

func handleTemplatesAdd(args []string) {
	// Parse flags for add command
	fs := flag.NewFlagSet("templates add", flag.ExitOnError)
	name := fs.String("name", "", "Template name")
	displayName := fs.String("display-name", "", "Human-readable name")
	description := fs.String("description", "", "Short description")
	kind := fs.String("kind", "", "Template kind (turn_based, attribute_based, or class_based)")
	container := fs.String("container", "", "Container selector")
	userSel := fs.String("user-selector", "", "Selector marking user turns (turn_based)")
	modelSel := fs.String("model-selector", "", "Selector marking model turns (turn_based)")
	contentSel := fs.String("content-selector", "", "Selector for the text content inside a container")
	roleAttr := fs.String("role-attribute", "", "Attribute holding the role value (attribute_based)")
	roleMap := fs.String("role-map", "", "Attribute value to role mapping, e.g. user=User,assistant=Model")
	userKeywords := fs.String("user-keywords", "", "Comma-separated class keywords marking user turns (class_based)")
	modelKeywords := fs.String("model-keywords", "", "Comma-separated class keywords marking model turns (class_based)")
	readySel := fs.String("ready-selector", "", "Selector that signals the conversation has rendered")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintf(os.Stderr, "Error: -name is required\n")
		fs.Usage()
		os.Exit(1)
	}

	roles, err := parseRoleMap(*roleMap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	r := &recipe.Recipe{
		Name:            *name,
		DisplayName:     *displayName,
		Description:     *description,
		Kind:            recipe.Kind(*kind),
		Container:       *container,
		UserSelector:    *userSel,
		ModelSelector:   *modelSel,
		ContentSelector: *contentSel,
		RoleAttribute:   *roleAttr,
		RoleMap:         roles,
		UserKeywords:    splitKeywords(*userKeywords),
		ModelKeywords:   splitKeywords(*modelKeywords),
		ReadySelector:   *readySel,
	}

	store, err := openTemplateStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open template store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Create(r); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create template: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created template: %s\n", r.Name)
	fmt.Printf("  Kind: %s\n", r.Kind)
	fmt.Printf("  Container: %s\n", r.Container)
}

func handleTemplatesShow(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: template name is required\n")
		fmt.Fprintf(os.Stderr, "Usage: chatharvest templates show <name>\n")
		os.Exit(1)
	}

	r, err := lookupTemplate(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to marshal template: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func handleTemplatesDelete(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: template name is required\n")
		fmt.Fprintf(os.Stderr, "Usage: chatharvest templates delete <name>\n")
		os.Exit(1)
	}
	name := args[0]

	if recipe.IsBuiltin(name) {
		fmt.Fprintf(os.Stderr, "Error: %q is a built-in template and cannot be deleted\n", name)
		os.Exit(1)
	}

	store, err := openTemplateStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open template store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Delete(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to delete template: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted template: %s\n", name)
}

func handleTemplatesDefault(args []string) {
	fs := flag.NewFlagSet("templates default", flag.ExitOnError)
	clearDefault := fs.Bool("clear", false, "Clear the default template")
	fs.Parse(args)

	dbPath, err := config.DatabasePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	settingsStore, err := config.NewSettingsStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open settings store: %v\n", err)
		os.Exit(1)
	}
	defer settingsStore.Close()

	if *clearDefault {
		if err := settingsStore.UpdateSettings(&config.Settings{}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to clear default template: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Default template cleared")
		return
	}

	if len(fs.Args()) == 0 {
		settings, err := settingsStore.GetSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if settings.DefaultTemplate == "" {
			fmt.Println("No default template set.")
		} else {
			fmt.Println(settings.DefaultTemplate)
		}
		return
	}

	name := fs.Args()[0]
	if _, err := lookupTemplate(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := settingsStore.UpdateSettings(&config.Settings{DefaultTemplate: name}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save default template: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Default template set to: %s\n", name)
}

// parseRoleMap parses "value=Role" pairs separated by commas.
func parseRoleMap(s string) (map[string]dialogue.Role, error) {
	if s == "" {
		return nil, nil
	}
	roles := make(map[string]dialogue.Role)
	for _, pair := range strings.Split(s, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, fmt.Errorf("invalid role mapping %q, want value=Role", pair)
		}
		role := dialogue.Role(strings.TrimSpace(value))
		if role != dialogue.RoleUser && role != dialogue.RoleModel {
			return nil, fmt.Errorf("invalid role %q, want %s or %s", value, dialogue.RoleUser, dialogue.RoleModel)
		}
		roles[strings.ToLower(strings.TrimSpace(key))] = role
	}
	return roles, nil
}

// splitKeywords splits a comma-separated keyword list, dropping empties.
func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(s, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

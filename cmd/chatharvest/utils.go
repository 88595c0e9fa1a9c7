package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chatharvest/browser"
	"chatharvest/config"
	"chatharvest/extract"
	"chatharvest/recipe"
	"chatharvest/session"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// durationOrDefault parses a config file duration string, falling back to the
// default when unset or invalid.
func durationOrDefault(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return defaultValue
}

// defaultHeadless resolves the headless default from the config file.
func defaultHeadless(cfg *config.FileConfig) bool {
	if cfg.Headless != nil {
		return *cfg.Headless
	}
	return true
}

// openTemplateStore opens the template store in the application directory.
func openTemplateStore() (*recipe.Store, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}
	return recipe.NewStore(dbPath)
}

// lookupTemplate finds a template by name, checking built-ins before opening
// the saved store.
func lookupTemplate(name string) (*recipe.Recipe, error) {
	if r := recipe.Builtin(name); r != nil {
		return r, nil
	}
	store, err := openTemplateStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return recipe.Resolve(name, store)
}

// defaultTemplateName reads the saved default template setting, if any.
func defaultTemplateName() (string, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return "", err
	}
	store, err := config.NewSettingsStore(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	settings, err := store.GetSettings()
	if err != nil {
		return "", err
	}
	return settings.DefaultTemplate, nil
}

// resolveExtraction builds extraction options from the CLI flags. Precedence:
// named template, then custom selectors, then the saved default template,
// then automatic detection.
func resolveExtraction(templateName, container, userSel, modelSel, contentSel string) (extract.Options, error) {
	var opts extract.Options

	if templateName != "" {
		r, err := lookupTemplate(templateName)
		if err != nil {
			return opts, fmt.Errorf("failed to resolve template %q: %w", templateName, err)
		}
		opts.Recipe = r
		return opts, nil
	}

	if container != "" {
		opts.Selectors = &extract.Selectors{
			Container: container,
			User:      userSel,
			Model:     modelSel,
			Content:   contentSel,
		}
		return opts, nil
	}

	name, err := defaultTemplateName()
	if err != nil {
		return opts, err
	}
	if name != "" {
		r, err := lookupTemplate(name)
		if err != nil {
			return opts, fmt.Errorf("failed to resolve default template %q: %w", name, err)
		}
		opts.Recipe = r
	}
	return opts, nil
}

// resolveReadySelector prefers the explicit flag over the template's own
// ready selector.
func resolveReadySelector(explicit string, opts extract.Options) string {
	if explicit != "" {
		return explicit
	}
	if opts.Recipe != nil {
		return opts.Recipe.ReadySelector
	}
	return ""
}

// fetchPage loads one URL through a session-carrying browser and returns the
// rendered HTML. Exits the process on failure.
func fetchPage(pageURL, sessionDir string, useProfile, headless bool, opts browser.FetchOptions) string {
	bundle, err := session.Load(sessionDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load session from %s: %v\n", sessionDir, err)
		os.Exit(1)
	}

	nav, err := browser.NewNavigator(browser.OptionsFromBundle(bundle, headless, useProfile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start browser: %v\n", err)
		os.Exit(1)
	}

	snap, err := nav.Fetch(context.Background(), pageURL, opts)
	if err != nil {
		nav.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	nav.Close()

	return snap.HTML
}

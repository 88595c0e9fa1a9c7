package config

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SettingsStore manages user settings using SQLite.
type SettingsStore struct {
	db *sql.DB
}

// Settings represents user settings.
type Settings struct {
	DefaultTemplate string `json:"default_template"`
}

// NewSettingsStore creates a new settings store with the given database path.
func NewSettingsStore(dbPath string) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SettingsStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the settings table if it doesn't exist.
func (s *SettingsStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// GetSettings retrieves user settings. A setting that was never stored comes
// back as its zero value.
func (s *SettingsStore) GetSettings() (*Settings, error) {
	query := "SELECT value FROM settings WHERE key = ?"

	var defaultTemplate string
	err := s.db.QueryRow(query, "default_template").Scan(&defaultTemplate)
	if err == sql.ErrNoRows {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	return &Settings{DefaultTemplate: defaultTemplate}, nil
}

// UpdateSettings updates user settings.
func (s *SettingsStore) UpdateSettings(settings *Settings) error {
	query := "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)"
	_, err := s.db.Exec(query, "default_template", settings.DefaultTemplate)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

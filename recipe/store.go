package recipe

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists user-defined templates using SQLite. Built-in templates are
// not stored; they always resolve ahead of the database.
type Store struct {
	db *sql.DB
}

// NewStore creates a template store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the templates table if it doesn't exist. The full
// template is stored as JSON in the config column; name is duplicated as the
// primary key so lookups and uniqueness don't need to touch the JSON.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		name TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create saves a new template. Names must be unique and must not shadow a
// built-in template.
func (s *Store) Create(r *Recipe) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if IsBuiltin(r.Name) {
		return fmt.Errorf("%w: %q is a built-in template", ErrDuplicateRecipe, r.Name)
	}

	config, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	now := time.Now().Truncate(0).Format(time.RFC3339Nano)
	_, err = s.db.Exec(
		"INSERT INTO templates (name, config, created_at, updated_at) VALUES (?, ?, ?, ?)",
		r.Name, string(config), now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") ||
			strings.Contains(err.Error(), "unique constraint") {
			return ErrDuplicateRecipe
		}
		return fmt.Errorf("failed to insert template: %w", err)
	}

	return nil
}

// Get retrieves a template by name.
func (s *Store) Get(name string) (*Recipe, error) {
	var config string
	err := s.db.QueryRow("SELECT config FROM templates WHERE name = ?", name).Scan(&config)
	if err == sql.ErrNoRows {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query template: %w", err)
	}

	var r Recipe
	if err := json.Unmarshal([]byte(config), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return &r, nil
}

// List returns all stored templates ordered by name.
func (s *Store) List() ([]*Recipe, error) {
	rows, err := s.db.Query("SELECT config FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var recipes []*Recipe
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		var r Recipe
		if err := json.Unmarshal([]byte(config), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template: %w", err)
		}
		recipes = append(recipes, &r)
	}

	return recipes, rows.Err()
}

// Delete removes a stored template.
func (s *Store) Delete(name string) error {
	result, err := s.db.Exec("DELETE FROM templates WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRecipeNotFound
	}

	return nil
}

// Resolve looks up a template by name, checking built-ins before the store.
// A nil store restricts resolution to built-ins only.
func Resolve(name string, store *Store) (*Recipe, error) {
	if r := Builtin(name); r != nil {
		return r, nil
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	r, err := store.Get(name)
	if errors.Is(err, ErrRecipeNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	return r, err
}

package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notelog/internal/query"
	"github.com/starford/notelog/internal/schema"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Notes  NotesConfig       `yaml:"notes"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Query  QueryConfig       `yaml:"query"`
	Fields []schema.Field    `yaml:"fields"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Query.Validate(); err != nil {
		return err
	}
	if _, err := c.Schema(); err != nil {
		return err
	}
	return nil
}

// Schema builds the field schema declared under fields.
func (c *Config) Schema() (*schema.Schema, error) {
	s, err := schema.New(c.Fields)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	return s, nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotesConfig holds the path to the changelog notes directory.
type NotesConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// QueryConfig tunes query evaluation.
type QueryConfig struct {
	// FuzzyThreshold is the minimum similarity for the ~~ operator.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// Validate validates the query configuration.
func (c *QueryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FuzzyThreshold, validation.Min(0.0), validation.Max(1.0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notes: NotesConfig{
			Dir: "./changelog",
		},
		SQLite: SQLiteConfig{
			Path: "./notelog.db",
		},
		Query: QueryConfig{
			FuzzyThreshold: query.DefaultFuzzyThreshold,
		},
	}
}

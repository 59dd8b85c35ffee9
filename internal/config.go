// Package internal provides the application configuration and wiring.
package internal

import (
	"log/slog"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// StateDirName is the directory under the store root holding the listing
// cache, the last-note pointer, backups, and the search index.
const StateDirName = ".poi"

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Editor EditorConfig      `yaml:"editor"`
	Index  IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel string `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// Level maps the configured log level name onto a slog level.
func (c *ApplicationConfig) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// StoreConfig holds the note store configuration.
type StoreConfig struct {
	Path       string            `yaml:"path"`
	Extension  string            `yaml:"extension"`
	TagPrefix  string            `yaml:"tag_prefix"`
	TagAliases map[string]string `yaml:"tag_aliases"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extensionRe)),
	)
}

// StateDir returns the state directory under the store root.
func (c *StoreConfig) StateDir() string {
	return filepath.Join(c.Path, StateDirName)
}

// ListingPath returns the listing index cache file location.
func (c *StoreConfig) ListingPath() string {
	return filepath.Join(c.StateDir(), "listing.json")
}

// LastNotePath returns the last-note pointer file location.
func (c *StoreConfig) LastNotePath() string {
	return filepath.Join(c.StateDir(), "lastnote")
}

// BackupsDir returns the directory receiving pre-edit backups.
func (c *StoreConfig) BackupsDir() string {
	return filepath.Join(c.StateDir(), "backups")
}

// ExpandTag resolves a tag through the configured aliases.
func (c *StoreConfig) ExpandTag(tag string) string {
	if full, ok := c.TagAliases[tag]; ok {
		return full
	}
	return tag
}

// EditorConfig holds the external editor configuration.
type EditorConfig struct {
	Command string `yaml:"command"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
	)
}

// IndexConfig holds the search index configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// ResolvedPath returns the index database location, defaulting to the state
// directory of the given store.
func (c *IndexConfig) ResolvedPath(store *StoreConfig) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(store.StateDir(), "index.db")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: "warn",
		},
		Store: StoreConfig{
			Path:      "./notes",
			Extension: ".poi",
			TagPrefix: "#: ",
		},
		Editor: EditorConfig{
			Command: "vim",
		},
	}
}

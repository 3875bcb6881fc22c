// Package config handles the optional per-site configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matsen/bibpub/internal/publication"
)

// Config represents site configuration stored in .bibpub.yml.
// Paths are relative to the site root unless absolute.
type Config struct {
	BibFile         string   `yaml:"bib_file"`
	HTMLFile        string   `yaml:"html_file"`
	AnchorBase      string   `yaml:"anchor_base"`
	EscapeHTML      bool     `yaml:"escape_html"`
	JournalTypes    []string `yaml:"journal_types"`
	ConferenceTypes []string `yaml:"conference_types"`
}

const (
	ConfigFile      = ".bibpub.yml"
	DefaultBibFile  = "files/citations.bib"
	DefaultHTMLFile = "publications.html"

	// RootEnv overrides the site root (default: current directory).
	RootEnv = "BIBPUB_ROOT"
)

// ErrOverlappingTypes is returned when an entry type is listed for both sections.
var ErrOverlappingTypes = errors.New("entry type listed as both journal and conference")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BibFile:         DefaultBibFile,
		HTMLFile:        DefaultHTMLFile,
		AnchorBase:      publication.DefaultAnchorBase,
		JournalTypes:    append([]string(nil), publication.DefaultJournalTypes...),
		ConferenceTypes: append([]string(nil), publication.DefaultConferenceTypes...),
	}
}

// ConfigPath returns the path to .bibpub.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// Load reads configuration from path.
// Returns the defaults (not an error) if the file doesn't exist.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults restores defaults for keys set to empty values.
func (c *Config) fillDefaults() {
	def := Default()
	if c.BibFile == "" {
		c.BibFile = def.BibFile
	}
	if c.HTMLFile == "" {
		c.HTMLFile = def.HTMLFile
	}
	if c.AnchorBase == "" {
		c.AnchorBase = def.AnchorBase
	}
	if len(c.JournalTypes) == 0 {
		c.JournalTypes = def.JournalTypes
	}
	if len(c.ConferenceTypes) == 0 {
		c.ConferenceTypes = def.ConferenceTypes
	}
}

// Validate checks that the journal and conference type lists are disjoint.
func (c *Config) Validate() error {
	journal := publication.NewTypeSet(c.JournalTypes)

	var overlap []string
	for t := range publication.NewTypeSet(c.ConferenceTypes) {
		if journal.Contains(t) {
			overlap = append(overlap, t)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return fmt.Errorf("%w: %s", ErrOverlappingTypes, strings.Join(overlap, ", "))
	}
	return nil
}

// Save writes configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// BibPath returns the bibliography path resolved against root.
func (c *Config) BibPath(root string) string {
	return resolve(root, c.BibFile)
}

// HTMLPath returns the page path resolved against root.
func (c *Config) HTMLPath(root string) string {
	return resolve(root, c.HTMLFile)
}

func resolve(root, path string) string {
	path = ExpandPath(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}

// Package config manages relnotes configuration and the .relnotes directory.
// It handles loading, saving, and initializing the project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilupskalvis/relnotes/internal/models"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

const (
	ProjectDir   = ".relnotes"
	ConfigFile   = "config"
	DatabaseFile = "history.db"

	// EnvPrefix prefixes environment overrides, e.g. RELNOTES_VISIBLE_LIMIT.
	EnvPrefix = "RELNOTES_"
)

// Config represents the relnotes configuration
type Config struct {
	Repository        string `koanf:"repository" toml:"repository,omitempty"`
	APIURL            string `koanf:"api_url" toml:"api_url"`
	VisibleLimit      int    `koanf:"visible_limit" toml:"visible_limit"`
	FallbackBound     int    `koanf:"fallback_bound" toml:"fallback_bound"`
	StartMode         string `koanf:"start_mode" toml:"start_mode"`
	ChangeLogType     string `koanf:"changelog_type" toml:"changelog_type"`
	ReleaseTagPattern string `koanf:"release_tag_pattern" toml:"release_tag_pattern,omitempty"`

	// Pipeline run context for the footer link
	ReleaseWebURL string `koanf:"release_web_url" toml:"release_web_url,omitempty"`
	CollectionURI string `koanf:"collection_uri" toml:"collection_uri,omitempty"`
	TeamProject   string `koanf:"team_project" toml:"team_project,omitempty"`
	BuildID       string `koanf:"build_id" toml:"build_id,omitempty"`

	MaxRetries int `koanf:"max_retries" toml:"max_retries"`
	Timeout    int `koanf:"timeout" toml:"timeout"` // seconds

	// Token only ever comes from the environment.
	Token string `koanf:"token" toml:"-"`

	path string        // path to .relnotes directory, empty outside a project
	k    *koanf.Koanf // merged key/value view the struct was decoded from
}

// Defaults returns the built-in configuration values keyed by config key.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"api_url":        "https://api.github.com",
		"visible_limit":  10,
		"fallback_bound": 250,
		"start_mode":     "last-full-release",
		"changelog_type": "commit",
		"max_retries":    3,
		"timeout":        30,
	}
}

// pipelineEnv maps Azure Pipelines variables to config keys.
var pipelineEnv = map[string]string{
	"RELEASE_RELEASEWEBURL":             "release_web_url",
	"SYSTEM_TEAMFOUNDATIONCOLLECTIONURI": "collection_uri",
	"SYSTEM_TEAMPROJECT":                "team_project",
	"BUILD_BUILDID":                     "build_id",
}

// FindProjectRoot finds the .relnotes directory by walking up from the current directory
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		projectPath := filepath.Join(dir, ProjectDir)
		if info, err := os.Stat(projectPath); err == nil && info.IsDir() {
			return projectPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a relnotes project (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration. Outside a project only defaults and the
// environment apply and HasProject reports false.
func Load() (*Config, error) {
	projectPath, err := FindProjectRoot()
	if err != nil {
		projectPath = ""
	}
	return LoadFrom(projectPath)
}

// LoadFrom loads the configuration for the given .relnotes directory.
// An empty path skips the config file.
//
// Precedence: defaults < config file < pipeline variables < RELNOTES_*.
// GITHUB_TOKEN is used when RELNOTES_TOKEN is unset.
func LoadFrom(projectPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if projectPath != "" {
		configPath := filepath.Join(projectPath, ConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), TOMLParser()); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", pipelineKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load pipeline variables: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.path = projectPath
	cfg.k = k
	return &cfg, nil
}

// pipelineKey maps a pipeline variable name to its config key. Other
// variables are dropped.
func pipelineKey(name string) string {
	return pipelineEnv[name]
}

// envTransform converts environment variable names to config keys
// Example: RELNOTES_VISIBLE_LIMIT -> visible_limit
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.VisibleLimit < 1 {
		return fmt.Errorf("visible_limit must be at least 1, got %d", c.VisibleLimit)
	}
	if c.FallbackBound < 1 {
		return fmt.Errorf("fallback_bound must be at least 1, got %d", c.FallbackBound)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %d", c.Timeout)
	}
	if c.Repository != "" && !ValidRepository(c.Repository) {
		return fmt.Errorf("repository must look like owner/name, got %q", c.Repository)
	}
	return nil
}

// ValidRepository reports whether s has the "owner/name" shape.
func ValidRepository(s string) bool {
	owner, name, ok := strings.Cut(s, "/")
	return ok && owner != "" && name != "" && !strings.Contains(name, "/")
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("not a relnotes project")
	}
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// HasProject reports whether the configuration was loaded from a project.
func (c *Config) HasProject() bool {
	return c.path != ""
}

// ProjectPath returns the path to the .relnotes directory
func (c *Config) ProjectPath() string {
	return c.path
}

// DatabasePath returns the path to the history database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// RequestTimeout returns the per-request timeout. Zero disables it.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// PipelineRun returns the pipeline run context used for the footer link.
func (c *Config) PipelineRun() models.PipelineRun {
	return models.PipelineRun{
		ReleaseWebURL: c.ReleaseWebURL,
		CollectionURI: c.CollectionURI,
		TeamProject:   c.TeamProject,
		BuildID:       c.BuildID,
	}
}

// Initialize creates a new .relnotes directory in the current directory
func Initialize(repository string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return InitializeAt(cwd, repository)
}

// InitializeAt creates a new .relnotes directory under dir with the default
// configuration.
func InitializeAt(dir, repository string) (*Config, error) {
	projectPath := filepath.Join(dir, ProjectDir)

	// Check if already initialized
	if _, err := os.Stat(projectPath); err == nil {
		return nil, fmt.Errorf("relnotes project already exists")
	}

	if repository != "" && !ValidRepository(repository) {
		return nil, fmt.Errorf("repository must look like owner/name, got %q", repository)
	}

	if err := os.MkdirAll(projectPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", ProjectDir, err)
	}

	d := Defaults()
	cfg := &Config{
		Repository:    repository,
		APIURL:        d["api_url"].(string),
		VisibleLimit:  d["visible_limit"].(int),
		FallbackBound: d["fallback_bound"].(int),
		StartMode:     d["start_mode"].(string),
		ChangeLogType: d["changelog_type"].(string),
		MaxRetries:    d["max_retries"].(int),
		Timeout:       d["timeout"].(int),
		path:          projectPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(projectPath)
		return nil, err
	}

	return cfg, nil
}

// Keys lists every configuration key that can be set.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for key := range keyKinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
)

var keyKinds = map[string]keyKind{
	"repository":          kindString,
	"api_url":             kindString,
	"visible_limit":       kindInt,
	"fallback_bound":      kindInt,
	"start_mode":          kindString,
	"changelog_type":      kindString,
	"release_tag_pattern": kindString,
	"release_web_url":     kindString,
	"collection_uri":      kindString,
	"team_project":        kindString,
	"build_id":            kindString,
	"max_retries":         kindInt,
	"timeout":             kindInt,
}

// Get returns the effective value of key as text. The token is never
// returned.
func (c *Config) Get(key string) (string, error) {
	if _, ok := keyKinds[key]; !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	if c.k == nil {
		return "", nil
	}
	return c.k.String(key), nil
}

// SetValue writes key=value into the project's config file, leaving
// environment overrides out of the file.
func SetValue(projectPath, key, value string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	k := koanf.New(".")
	configPath := filepath.Join(projectPath, ConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), TOMLParser()); err != nil {
			return fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
	}

	var typed interface{} = value
	if kind == kindInt {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		typed = n
	}
	if err := k.Set(key, typed); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	// Validate the result against defaults before touching the file.
	check := koanf.New(".")
	for dk, dv := range Defaults() {
		_ = check.Set(dk, dv)
	}
	if err := check.Merge(k); err != nil {
		return err
	}
	var cfg Config
	if err := check.Unmarshal("", &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := k.Marshal(TOMLParser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(configPath, data, 0644)
}

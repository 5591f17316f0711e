package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. JSONVIEW_DEBOUNCE_MS.
const EnvPrefix = "JSONVIEW_"

// Themes lists the accepted values of Config.Theme.
var Themes = []string{"light", "dark", "original-dark"}

// Config represents the complete configuration for jsonview
type Config struct {
	DebounceMS  int            `yaml:"debounce_ms"`
	RevealLimit int            `yaml:"reveal_limit"`
	Theme       string         `yaml:"theme"`
	Parser      ParserConfig   `yaml:"parser"`
	Web         WebConfig      `yaml:"web"`
	Log         LogConfig      `yaml:"log"`
	Download    DownloadConfig `yaml:"download"`
}

// ParserConfig controls how raw text is accepted
type ParserConfig struct {
	AllowComments bool `yaml:"allow_comments"`
}

// WebConfig controls the HTTP front end
type WebConfig struct {
	Addr string `yaml:"addr"`
	// SessionTTLMinutes drops browser sessions idle for longer; 0 keeps them.
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty discards logs in the terminal UI
}

// DownloadConfig controls where downloads are written
type DownloadConfig struct {
	Dir      string `yaml:"dir"`
	FileName string `yaml:"file_name"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		DebounceMS:  500,
		RevealLimit: 100,
		Theme:       "light",
		Parser: ParserConfig{
			AllowComments: false,
		},
		Web: WebConfig{
			Addr:              ":8080",
			SessionTTLMinutes: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
		Download: DownloadConfig{
			Dir:      ".",
			FileName: "data.json",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsonview.yml", ".jsonview.yaml", "jsonview.yml", "jsonview.yaml"}

	// Start from current directory
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks that every setting is in range
func (c *Config) Validate() error {
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMS)
	}
	if c.RevealLimit < 1 {
		return fmt.Errorf("reveal_limit must be at least 1, got %d", c.RevealLimit)
	}
	if c.Web.SessionTTLMinutes < 0 {
		return fmt.Errorf("web.session_ttl_minutes must not be negative, got %d", c.Web.SessionTTLMinutes)
	}
	if !contains(Themes, c.Theme) {
		return fmt.Errorf("unknown theme %q (want one of %s)", c.Theme, strings.Join(Themes, ", "))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Download.FileName == "" || strings.ContainsAny(c.Download.FileName, `/\`) {
		return fmt.Errorf("download.file_name must be a plain file name, got %q", c.Download.FileName)
	}
	return nil
}

// Debounce returns the input quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// SessionTTL returns how long an idle browser session is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Web.SessionTTLMinutes) * time.Minute
}

// DownloadPath returns where a download is written.
func (c *Config) DownloadPath() string {
	return filepath.Join(c.Download.Dir, c.Download.FileName)
}

// settings maps each dotted key to a setter. The keys mirror the YAML layout.
func (c *Config) settings() map[string]func(string) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	num := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v)
			}
			*dst = n
			return nil
		}
	}
	flag := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expected a boolean, got %q", v)
			}
			*dst = b
			return nil
		}
	}

	return map[string]func(string) error{
		"debounce_ms":             num(&c.DebounceMS),
		"reveal_limit":            num(&c.RevealLimit),
		"theme":                   str(&c.Theme),
		"parser.allow_comments":   flag(&c.Parser.AllowComments),
		"web.addr":                str(&c.Web.Addr),
		"web.session_ttl_minutes": num(&c.Web.SessionTTLMinutes),
		"log.level":               str(&c.Log.Level),
		"log.file":                str(&c.Log.File),
		"download.dir":            str(&c.Download.Dir),
		"download.file_name":      str(&c.Download.FileName),
	}
}

// Keys returns every settable key in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.settings()))
	for k := range c.settings() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a single setting by its dotted key, e.g. "web.addr".
func (c *Config) Set(key, value string) error {
	set, ok := c.settings()[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := set(value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strcase.ToScreamingSnake(key)
}

// ApplyEnv applies overrides found through lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range c.Keys() {
		if v, ok := lookup(EnvName(key)); ok {
			if err := c.Set(key, v); err != nil {
				return fmt.Errorf("environment %s: %w", EnvName(key), err)
			}
		}
	}
	return nil
}

// MergeConfigs merges CLI overrides into a base config
// Non-empty values from override take precedence over base values
func MergeConfigs(base, override *Config) *Config {
	merged := *base // Start with a copy of base

	if override.DebounceMS > 0 {
		merged.DebounceMS = override.DebounceMS
	}
	if override.RevealLimit > 0 {
		merged.RevealLimit = override.RevealLimit
	}
	if override.Theme != "" {
		merged.Theme = override.Theme
	}
	if override.Web.Addr != "" {
		merged.Web.Addr = override.Web.Addr
	}
	if override.Log.Level != "" {
		merged.Log.Level = override.Log.Level
	}
	if override.Log.File != "" {
		merged.Log.File = override.Log.File
	}
	if override.Download.Dir != "" {
		merged.Download.Dir = override.Download.Dir
	}
	if override.Download.FileName != "" {
		merged.Download.FileName = override.Download.FileName
	}

	// A boolean can only switch a feature on from the command line.
	merged.Parser.AllowComments = base.Parser.AllowComments || override.Parser.AllowComments

	return &merged
}

// LoadConfigWithCLI loads config with the precedence
// defaults < config file < environment < command line.
func LoadConfigWithCLI(configPath string, cli *Config) (*Config, error) {
	// Start with defaults
	cfg := NewConfig()

	// Load config file if provided
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if cli != nil {
		cfg = MergeConfigs(cfg, cli)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"pan-scan/internal/observability"
	"pan-scan/internal/paths"
)

// Formats lists the report formats the config may name.
var Formats = []string{"text", "csv", "json", "yaml", "parquet"}

// Config represents the application configuration
type Config struct {
	Defaults     Defaults                   `yaml:"defaults"`
	Logging      observability.LoggerConfig `yaml:"logging"`
	Sources      Sources                    `yaml:"sources"`
	Suppressions string                     `yaml:"suppressions"`
	Profiles     map[string]Profile         `yaml:"profiles"`
}

// Defaults are the settings used when neither a profile nor a flag
// overrides them.
type Defaults struct {
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	NoColor     bool   `yaml:"no_color"`
	Workers     int    `yaml:"workers"`
	Debug       bool   `yaml:"debug"`
	Verbose     bool   `yaml:"verbose"`
	MaxFileSize int64  `yaml:"max_file_size"`
}

// Sources holds the enable switch and options of every adapter.
type Sources struct {
	Text     TextSource     `yaml:"text"`
	CSV      CSVSource      `yaml:"csv"`
	PDF      PDFSource      `yaml:"pdf"`
	Excel    Switch         `yaml:"excel"`
	Image    Switch         `yaml:"image"`
	SQLite   DatabaseSource `yaml:"sqlite"`
	Postgres DatabaseSource `yaml:"postgres"`
	MySQL    DatabaseSource `yaml:"mysql"`
	S3       CloudSource    `yaml:"s3"`
	GCS      CloudSource    `yaml:"gcs"`
	Azure    CloudSource    `yaml:"azure"`
}

// Switch enables or disables an adapter.
type Switch struct {
	Enabled bool `yaml:"enabled"`
}

// TextSource configures the plain text adapter.
type TextSource struct {
	Enabled    bool     `yaml:"enabled"`
	Extensions []string `yaml:"extensions"`
	Sniff      bool     `yaml:"sniff"`
}

// CSVSource configures the CSV adapter.
type CSVSource struct {
	Enabled   bool   `yaml:"enabled"`
	Delimiter string `yaml:"delimiter"`
}

// PDFSource configures the PDF adapter. MaxPages 0 reads every page.
type PDFSource struct {
	Enabled  bool `yaml:"enabled"`
	MaxPages int  `yaml:"max_pages"`
}

// DatabaseSource configures a database adapter.
type DatabaseSource struct {
	Enabled  bool          `yaml:"enabled"`
	RowLimit int           `yaml:"row_limit"`
	Timeout  time.Duration `yaml:"timeout"`
	Schema   string        `yaml:"schema"`
	SSLMode  string        `yaml:"sslmode"`
}

// CloudSource configures a cloud storage adapter.
type CloudSource struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Region            string  `yaml:"region"`
}

// Profile overrides defaults for one scanning scenario. Unset fields
// leave the defaults alone.
type Profile struct {
	Description string `yaml:"description"`
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	NoColor     *bool  `yaml:"no_color"`
	Workers     int    `yaml:"workers"`
	Verbose     *bool  `yaml:"verbose"`
	Debug       *bool  `yaml:"debug"`
	RowLimit    int    `yaml:"row_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Defaults: Defaults{
			Format:      "text",
			MaxFileSize: 100 * 1024 * 1024,
		},
		Logging:  observability.DefaultLoggerConfig(),
		Profiles: make(map[string]Profile),
	}

	s := &cfg.Sources
	s.Text = TextSource{Enabled: true, Sniff: true}
	s.CSV = CSVSource{Enabled: true, Delimiter: ","}
	s.PDF = PDFSource{Enabled: true}
	s.Excel.Enabled = true
	s.Image.Enabled = true
	for _, db := range []*DatabaseSource{&s.SQLite, &s.Postgres, &s.MySQL} {
		*db = DatabaseSource{Enabled: true, RowLimit: 10000, Timeout: 30 * time.Second}
	}
	s.Postgres.Schema = "public"
	s.Postgres.SSLMode = "prefer"
	for _, c := range []*CloudSource{&s.S3, &s.GCS, &s.Azure} {
		*c = CloudSource{Enabled: true, RequestsPerSecond: 10}
	}

	noColor := true
	cfg.Profiles["ci"] = Profile{
		Description: "Machine-readable output for pipelines",
		Format:      "json",
		NoColor:     &noColor,
	}
	return cfg
}

// enableSwitches lists every boolean that defaults to true, by YAML path.
// A key absent from the file keeps its default.
func (c *Config) enableSwitches() map[string]*bool {
	s := &c.Sources
	return map[string]*bool{
		"sources.text.enabled":     &s.Text.Enabled,
		"sources.text.sniff":       &s.Text.Sniff,
		"sources.csv.enabled":      &s.CSV.Enabled,
		"sources.pdf.enabled":      &s.PDF.Enabled,
		"sources.excel.enabled":    &s.Excel.Enabled,
		"sources.image.enabled":    &s.Image.Enabled,
		"sources.sqlite.enabled":   &s.SQLite.Enabled,
		"sources.postgres.enabled": &s.Postgres.Enabled,
		"sources.mysql.enabled":    &s.MySQL.Enabled,
		"sources.s3.enabled":       &s.S3.Enabled,
		"sources.gcs.enabled":      &s.GCS.Enabled,
		"sources.azure.enabled":    &s.Azure.Enabled,
	}
}

// LoadConfig loads configuration from the specified file path. An empty
// path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	defaults := make(map[string]bool)
	for key, ptr := range config.enableSwitches() {
		defaults[key] = *ptr
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := requireMapping(&doc); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// switches the file does not mention keep their defaults
	for key, ptr := range config.enableSwitches() {
		if !containsField(data, strings.Split(key, ".")...) {
			*ptr = defaults[key]
		}
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// FindConfigFile looks for a configuration file in the working directory
// and then in the user configuration directory.
func FindConfigFile() string {
	for _, name := range []string{"pan-scan.yaml", "pan-scan.yml", ".pan-scan.yaml", ".pan-scan.yml"} {
		if paths.FileExists(name) {
			return name
		}
	}
	if standard := paths.GetConfigFile(); paths.FileExists(standard) {
		return standard
	}
	return ""
}

// containsField checks if a nested field exists in the YAML data
// requireMapping rejects documents whose top level is not a mapping of
// sections. Empty and null documents are allowed and leave the defaults.
func requireMapping(doc *yaml.Node) error {
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode || root.ShortTag() == "!!null" {
		return nil
	}
	return fmt.Errorf("line %d: expected a mapping of sections, got %s", root.Line, root.ShortTag())
}

func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return false
		}
		current = next
	}
	return false
}

// ListProfiles returns the profile names in sorted order
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile copies the profile's set fields over the defaults. An
// unknown profile name is an error.
func (c *Config) ApplyProfile(name string) error {
	if name == "" {
		return nil
	}
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}

	d := &c.Defaults
	if p.Format != "" {
		d.Format = p.Format
	}
	if p.Output != "" {
		d.Output = p.Output
	}
	if p.Workers > 0 {
		d.Workers = p.Workers
	}
	if p.NoColor != nil {
		d.NoColor = *p.NoColor
	}
	if p.Verbose != nil {
		d.Verbose = *p.Verbose
	}
	if p.Debug != nil {
		d.Debug = *p.Debug
	}
	if p.RowLimit > 0 {
		for _, db := range []*DatabaseSource{&c.Sources.SQLite, &c.Sources.Postgres, &c.Sources.MySQL} {
			db.RowLimit = p.RowLimit
		}
	}
	return ValidateConfig(c)
}

// ValidateConfig rejects settings no scan could run with.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if !slices.Contains(Formats, config.Defaults.Format) {
		return fmt.Errorf("unsupported format %q (available: %s)", config.Defaults.Format, strings.Join(Formats, ", "))
	}
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", config.Defaults.Workers)
	}
	if config.Defaults.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", config.Defaults.MaxFileSize)
	}

	if err := validateDelimiter(config.Sources.CSV.Delimiter); err != nil {
		return err
	}
	if config.Sources.PDF.MaxPages < 0 {
		return fmt.Errorf("sources.pdf.max_pages must not be negative")
	}

	for name, db := range map[string]DatabaseSource{
		"sqlite":   config.Sources.SQLite,
		"postgres": config.Sources.Postgres,
		"mysql":    config.Sources.MySQL,
	} {
		if db.RowLimit <= 0 {
			return fmt.Errorf("sources.%s.row_limit must be positive, got %d", name, db.RowLimit)
		}
		if db.Timeout <= 0 {
			return fmt.Errorf("sources.%s.timeout must be positive", name)
		}
	}
	for name, c := range map[string]CloudSource{
		"s3":    config.Sources.S3,
		"gcs":   config.Sources.GCS,
		"azure": config.Sources.Azure,
	} {
		if c.RequestsPerSecond <= 0 {
			return fmt.Errorf("sources.%s.requests_per_second must be positive", name)
		}
	}

	for name, p := range config.Profiles {
		if p.Format != "" && !slices.Contains(Formats, p.Format) {
			return fmt.Errorf("profile %q: unsupported format %q", name, p.Format)
		}
		if p.Workers < 0 || p.RowLimit < 0 {
			return fmt.Errorf("profile %q: limits must not be negative", name)
		}
	}
	return nil
}

func validateDelimiter(d string) error {
	if d == `\t` {
		return nil
	}
	if d == "" {
		return fmt.Errorf("sources.csv.delimiter must not be empty")
	}
	if utf8.RuneCountInString(d) != 1 {
		return fmt.Errorf("sources.csv.delimiter must be a single character, got %q", d)
	}
	return nil
}

// LoadConfigOrDefault loads configFile, or the first file FindConfigFile
// returns when configFile is empty. An explicitly named file that cannot
// be loaded is an error; a discovered one that fails falls back to the
// defaults.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	if configFile != "" {
		return LoadConfig(configFile)
	}

	cfg, err := LoadConfig(FindConfigFile())
	if err != nil {
		observability.L().Warn("ignoring unreadable config file", zap.Error(err))
		return Default(), nil
	}
	return cfg, nil
}

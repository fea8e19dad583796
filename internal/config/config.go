package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the workspace looks for its config file.
const DefaultConfigPath = ".gora/config.yaml"

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("Gemini API key not configured (set GOOGLE_API_KEY or GEMINI_API_KEY, or enter it at startup)")

// Config holds all GORA Workspace configuration.
type Config struct {
	Name string `yaml:"name"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Context assembly (uploaded files)
	Context ContextConfig `yaml:"context"`

	// Session behaviour
	Session SessionConfig `yaml:"session"`

	// Scratch interpreter
	Lab LabConfig `yaml:"lab"`

	// Download surface
	Export ExportConfig `yaml:"export"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// UI
	UX UXConfig `yaml:"ux"`
}

// ContextConfig configures the context assembler and document extractor.
type ContextConfig struct {
	// PDFMaxPages caps how many PDF pages are extracted. 0 means unbounded.
	PDFMaxPages int `yaml:"pdf_max_pages"`

	// CSVPreviewRows is the number of data rows rendered for a CSV upload.
	CSVPreviewRows int `yaml:"csv_preview_rows"`

	// MaxParallel bounds concurrent extractions per turn.
	MaxParallel int `yaml:"max_parallel"`
}

// SessionConfig configures the session store.
type SessionConfig struct {
	// TitleLength is the rune length of the auto-generated title prefix.
	TitleLength int `yaml:"title_length"`
}

// LabConfig configures the scratch execution environment.
type LabConfig struct {
	WatchArtifacts bool   `yaml:"watch_artifacts"`
	WatchDir       string `yaml:"watch_dir"`
	WatchDepth     int    `yaml:"watch_depth"`
}

// ExportConfig configures where downloads are written.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "GORA Workspace",

		LLM: LLMConfig{
			Model:  "",
			Stream: true,
		},

		Context: ContextConfig{
			PDFMaxPages:    15,
			CSVPreviewRows: 5,
			MaxParallel:    4,
		},

		Session: SessionConfig{
			TitleLength: 24,
		},

		Lab: LabConfig{
			WatchArtifacts: true,
			WatchDir:       ".",
			WatchDepth:     2,
		},

		Export: ExportConfig{
			Dir: "downloads",
		},

		Logging: LoggingConfig{
			Level:     "info",
			File:      ".gora/logs/gora.log",
			DebugMode: false,
		},

		UX: UXConfig{
			Theme: "dark",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GOOGLE_API_KEY wins over GEMINI_API_KEY, matching the genai SDK.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if model := os.Getenv("GORA_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if level := os.Getenv("GORA_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// applyDefaults restores defaults for zero values left by a partial file.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Context.CSVPreviewRows <= 0 {
		c.Context.CSVPreviewRows = def.Context.CSVPreviewRows
	}
	if c.Context.MaxParallel <= 0 {
		c.Context.MaxParallel = def.Context.MaxParallel
	}
	if c.Context.PDFMaxPages < 0 {
		c.Context.PDFMaxPages = 0
	}
	if c.Session.TitleLength <= 0 {
		c.Session.TitleLength = def.Session.TitleLength
	}
	if c.Lab.WatchDir == "" {
		c.Lab.WatchDir = def.Lab.WatchDir
	}
	if c.Lab.WatchDepth <= 0 {
		c.Lab.WatchDepth = def.Lab.WatchDepth
	}
	if c.Export.Dir == "" {
		c.Export.Dir = def.Export.Dir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// HasCredential reports whether an API key is present.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Field describes one observed input field.
type Field struct {
	// Name is how the field is referred to locally ("text").
	Name string `json:"name" yaml:"name"`
	// Key is the field's name on the wire ("drug_text").
	Key         string `json:"key" yaml:"key"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	// Default seeds the field's value at start.
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// ServerConfig configures the stand-in prediction service.
type ServerConfig struct {
	Addr          string   `json:"addr" yaml:"addr"`
	RatePerSecond float64  `json:"rate_per_second" yaml:"rate_per_second"`
	Burst         int      `json:"burst" yaml:"burst"`
	MinLatency    Duration `json:"min_latency" yaml:"min_latency"`
	MaxLatency    Duration `json:"max_latency" yaml:"max_latency"`
}

// Config represents the typeahead configuration
type Config struct {
	// Prediction service
	Endpoint       string   `json:"endpoint" yaml:"endpoint"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	// Query coordination
	QuietPeriod Duration `json:"quiet_period" yaml:"quiet_period"`
	ResultCap   int      `json:"result_cap" yaml:"result_cap"`
	Fields      []Field  `json:"fields" yaml:"fields"`
	// Require is "all" (every required field set) or "any".
	Require string `json:"require" yaml:"require"`

	// UI preferences
	Theme   string `json:"theme" yaml:"theme"`
	Debug   bool   `json:"debug" yaml:"debug"`
	LogFile string `json:"log_file" yaml:"log_file"`

	Server ServerConfig `json:"server" yaml:"server"`
}

const (
	RequireAll = "all"
	RequireAny = "any"
)

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "http://localhost:23432/drug-predict/",
		RequestTimeout: 0,
		QuietPeriod:    Duration(500 * time.Millisecond),
		ResultCap:      10,
		Fields: []Field{
			{Name: "section", Key: "drug_section", Label: "Section", Placeholder: "IN01", Default: "IN01"},
			{Name: "text", Key: "drug_text", Label: "Drug", Placeholder: "start typing a drug name", Required: true},
		},
		Require: RequireAll,
		Theme:   "ember",
		Debug:   false,
		LogFile: "typeahead.log",
		Server: ServerConfig{
			Addr:          ":23432",
			RatePerSecond: 20,
			Burst:         10,
			MinLatency:    Duration(50 * time.Millisecond),
			MaxLatency:    Duration(400 * time.Millisecond),
		},
	}
}

// RequiredFields returns the names of fields that must be filled before a
// query fires.
func (c *Config) RequiredFields() []string {
	var names []string
	for _, f := range c.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// FieldKeys maps field names to their wire keys.
func (c *Config) FieldKeys() map[string]string {
	keys := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		keys[f.Name] = f.Key
	}
	return keys
}

// PrimaryField is the field accepted predictions are written into: the
// last required field, or the last field if none is required.
func (c *Config) PrimaryField() string {
	required := c.RequiredFields()
	if len(required) > 0 {
		return required[len(required)-1]
	}
	if len(c.Fields) > 0 {
		return c.Fields[len(c.Fields)-1].Name
	}
	return ""
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	if c.QuietPeriod < 0 {
		errs = append(errs, fmt.Errorf("quiet_period must not be negative, got %s", c.QuietPeriod))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout))
	}
	if c.ResultCap <= 0 {
		errs = append(errs, fmt.Errorf("result_cap must be positive, got %d", c.ResultCap))
	}
	if c.Require != RequireAll && c.Require != RequireAny {
		errs = append(errs, fmt.Errorf("require must be %q or %q, got %q", RequireAll, RequireAny, c.Require))
	}
	if len(c.Fields) == 0 {
		errs = append(errs, errors.New("at least one field is required"))
	}
	seen := make(map[string]bool)
	for i, f := range c.Fields {
		if f.Name == "" || f.Key == "" {
			errs = append(errs, fmt.Errorf("fields[%d]: name and key are required", i))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("fields[%d]: duplicate field name %q", i, f.Name))
		}
		seen[f.Name] = true
	}
	if c.Server.MaxLatency < c.Server.MinLatency {
		errs = append(errs, fmt.Errorf("server.max_latency (%s) is below server.min_latency (%s)", c.Server.MaxLatency, c.Server.MinLatency))
	}
	return errors.Join(errs...)
}

// Manager handles configuration loading and saving
type Manager struct {
	configPath string
	dotDir     bool
	config     *Config
}

// NewManager creates a manager for the project's .typeahead/config.json.
func NewManager(projectPath string) *Manager {
	return &Manager{
		configPath: filepath.Join(projectPath, ".typeahead", "config.json"),
		dotDir:     true,
		config:     DefaultConfig(),
	}
}

// NewFileManager creates a manager for an explicit config file. Files
// ending in .yaml or .yml are read and written as YAML, anything else as
// JSON.
func NewFileManager(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.configPath
}

// Dir returns the directory holding the config file.
func (m *Manager) Dir() string {
	return filepath.Dir(m.configPath)
}

// Load reads the configuration from disk, creating defaults if needed
func (m *Manager) Load() error {
	if m.dotDir {
		if err := os.MkdirAll(m.Dir(), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", m.Dir(), err)
		}
		if err := m.ensureGitignore(); err != nil {
			return fmt.Errorf("failed to create .gitignore: %w", err)
		}
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal over the defaults so missing keys keep their default. Fields
	// is cleared first: decoding into existing slice elements would merge
	// them with the default fields.
	config := DefaultConfig()
	defaultFields := config.Fields
	config.Fields = nil
	if m.isYAML() {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", m.configPath, err)
	}
	if config.Fields == nil {
		config.Fields = defaultFields
	}

	m.expandEnvVars(config)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.config = config
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	var (
		data []byte
		err  error
	)
	if m.isYAML() {
		data, err = yaml.Marshal(m.config)
	} else {
		data, err = json.MarshalIndent(m.config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(m.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", m.Dir(), err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// Value returns a scalar setting as a string.
func (m *Manager) Value(key string) (string, error) {
	c := m.config
	switch key {
	case "endpoint":
		return c.Endpoint, nil
	case "quiet_period":
		return c.QuietPeriod.String(), nil
	case "request_timeout":
		return c.RequestTimeout.String(), nil
	case "result_cap":
		return strconv.Itoa(c.ResultCap), nil
	case "require":
		return c.Require, nil
	case "theme":
		return c.Theme, nil
	case "debug":
		return strconv.FormatBool(c.Debug), nil
	case "log_file":
		return c.LogFile, nil
	case "server.addr":
		return c.Server.Addr, nil
	case "server.rate_per_second":
		return strconv.FormatFloat(c.Server.RatePerSecond, 'f', -1, 64), nil
	case "server.burst":
		return strconv.Itoa(c.Server.Burst), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value and saves
func (m *Manager) Set(key, value string) error {
	updated := *m.config
	updated.Fields = append([]Field(nil), m.config.Fields...)

	var err error
	switch key {
	case "endpoint":
		updated.Endpoint = value
	case "quiet_period":
		updated.QuietPeriod, err = ParseDuration(value)
	case "request_timeout":
		updated.RequestTimeout, err = ParseDuration(value)
	case "result_cap":
		updated.ResultCap, err = strconv.Atoi(value)
	case "require":
		updated.Require = value
	case "theme":
		updated.Theme = value
	case "debug":
		updated.Debug = value == "true"
	case "log_file":
		updated.LogFile = value
	case "server.addr":
		updated.Server.Addr = value
	case "server.rate_per_second":
		updated.Server.RatePerSecond, err = strconv.ParseFloat(value, 64)
	case "server.burst":
		updated.Server.Burst, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	m.config = &updated
	return m.Save()
}

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.configPath))
	return ext == ".yaml" || ext == ".yml"
}

// ensureGitignore creates a .gitignore in .typeahead/ that keeps logs out of git
func (m *Manager) ensureGitignore() error {
	gitignorePath := filepath.Join(m.Dir(), ".gitignore")

	if _, err := os.Stat(gitignorePath); !os.IsNotExist(err) {
		return nil // Already exists
	}

	gitignoreContent := `# typeahead data directory .gitignore
#
# Config is worth committing, logs are not.

*.log
*.tmp

!config.json
!.gitignore
`

	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644)
}

// expandEnvVars expands environment variables in config values
func (m *Manager) expandEnvVars(config *Config) {
	config.Endpoint = expandString(config.Endpoint)
	config.LogFile = expandString(config.LogFile)
	config.Server.Addr = expandString(config.Server.Addr)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandString expands environment variables in a string
// Supports $VAR and ${VAR} syntax
func expandString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return original if env var not found
		return match
	})
}

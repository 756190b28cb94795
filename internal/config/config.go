// ABOUTME: Configuration loading and parsing for the chat widget runtime
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the context the widget runtime operates in.
type Mode string

const (
	// ModeStandalone runs the widget directly on a host page. The widget
	// controls its own visibility and starts closed.
	ModeStandalone Mode = "standalone"

	// ModeEmbedded runs the widget inside a cross-origin iframe controlled
	// by a third-party site. The widget starts open; closing is mediated by
	// the embedding host.
	ModeEmbedded Mode = "embedded"

	// ModePreview runs the widget inside the admin dashboard's live
	// preview surface. Starts open, uses the default backend.
	ModePreview Mode = "preview"
)

// Config represents the complete widget runtime configuration
type Config struct {
	Widget  WidgetConfig  `yaml:"widget"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// WidgetConfig holds the construction-time widget surface
type WidgetConfig struct {
	Mode      Mode   `yaml:"mode"`
	ChatbotID string `yaml:"chatbot_id"`

	// Initial content overrides; a controlling host may replace these later
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Greeting string `yaml:"greeting"`

	// ErrorMessage is shown as a synthetic agent turn when a send fails
	ErrorMessage string `yaml:"error_message"`
}

// BackendConfig holds transport binding configuration
type BackendConfig struct {
	// Origin is the build-time-configured backend, used in standalone and
	// preview contexts
	Origin string `yaml:"origin"`

	// RuntimeOrigin, when set, selects the parameterized binding (embed
	// mode served over a tunnel or custom domain)
	RuntimeOrigin string `yaml:"runtime_origin"`

	RequestTimeout time.Duration `yaml:"-"`
	BeaconTimeout  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
	BeaconTimeoutRaw  string `yaml:"beacon_timeout"`
}

// StorageConfig holds session storage configuration
type StorageConfig struct {
	// Path to the visitor-profile database holding session tokens.
	// Empty means in-memory (tokens do not survive a restart).
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultErrorMessage   = "Sorry, something went wrong. Please try again."
	defaultRequestTimeout = 30 * time.Second
	defaultBeaconTimeout  = 5 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration suitable for a standalone widget with no
// config file, pointed at the given backend origin.
func Default(origin string) *Config {
	cfg := &Config{
		Widget:  WidgetConfig{Mode: ModeStandalone},
		Backend: BackendConfig{Origin: origin},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Widget.Mode == "" {
		c.Widget.Mode = ModeStandalone
	}
	if c.Widget.ErrorMessage == "" {
		c.Widget.ErrorMessage = defaultErrorMessage
	}
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
	if c.Backend.BeaconTimeout == 0 {
		c.Backend.BeaconTimeout = defaultBeaconTimeout
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Widget.Mode {
	case ModeStandalone, ModeEmbedded, ModePreview:
	default:
		return fmt.Errorf("widget.mode must be one of standalone, embedded, preview (got %q)", c.Widget.Mode)
	}

	// The parameterized binding only applies when embedded; standalone and
	// preview always use the build-time origin
	if c.Backend.RuntimeOrigin != "" && c.Widget.Mode != ModeEmbedded {
		return fmt.Errorf("backend.runtime_origin is only valid in embedded mode")
	}

	if c.Backend.Origin == "" && c.Backend.RuntimeOrigin == "" {
		return fmt.Errorf("backend.origin is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.RequestTimeoutRaw != "" {
		cfg.Backend.RequestTimeout, err = time.ParseDuration(cfg.Backend.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Backend.RequestTimeoutRaw, err)
		}
	}

	if cfg.Backend.BeaconTimeoutRaw != "" {
		cfg.Backend.BeaconTimeout, err = time.ParseDuration(cfg.Backend.BeaconTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing beacon_timeout %q: %w", cfg.Backend.BeaconTimeoutRaw, err)
		}
	}

	return nil
}

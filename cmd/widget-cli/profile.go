// ABOUTME: Profile loading for widget-cli
// ABOUTME: Loads TOML profile from XDG path with environment variable expansion

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/config"
)

// Profile is the CLI's persistent settings file. It maps onto the widget
// runtime config; the CLI adds nothing of its own beyond where to find it.
type Profile struct {
	Backend BackendProfile `toml:"backend"`
	Widget  WidgetProfile  `toml:"widget"`
	Storage StorageProfile `toml:"storage"`
	Logging LoggingProfile `toml:"logging"`
}

type BackendProfile struct {
	Origin         string `toml:"origin"`
	RequestTimeout string `toml:"request_timeout"`
	BeaconTimeout  string `toml:"beacon_timeout"`
}

type WidgetProfile struct {
	ChatbotID    string `toml:"chatbot_id"`
	Title        string `toml:"title"`
	Subtitle     string `toml:"subtitle"`
	Greeting     string `toml:"greeting"`
	ErrorMessage string `toml:"error_message"`
}

type StorageProfile struct {
	Path string `toml:"path"`
}

type LoggingProfile struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// defaultProfilePath returns the profile location.
// Priority: WIDGET_PROFILE env var > XDG_CONFIG_HOME/githaforge/widget.toml > ~/.config/githaforge/widget.toml
func defaultProfilePath() string {
	if envPath := os.Getenv("WIDGET_PROFILE"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "widget.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "githaforge", "widget.toml")
}

// loadProfile reads the TOML profile at path, expanding ${VAR} references.
// A missing file is not an error; flags and defaults take over.
func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var p Profile
	if _, err := toml.Decode(expanded, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return &p, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

// buildConfig merges profile values with command-line overrides into the
// runtime config. Flags win over the profile; empty flag values defer.
func buildConfig(p *Profile, origin, chatbotID string) (*config.Config, error) {
	if origin == "" {
		origin = p.Backend.Origin
	}
	if origin == "" {
		origin = "http://localhost:8080"
	}
	if chatbotID == "" {
		chatbotID = p.Widget.ChatbotID
	}

	cfg := config.Default(origin)
	cfg.Widget.ChatbotID = chatbotID
	if p.Widget.Title != "" {
		cfg.Widget.Title = p.Widget.Title
	}
	if p.Widget.Subtitle != "" {
		cfg.Widget.Subtitle = p.Widget.Subtitle
	}
	if p.Widget.Greeting != "" {
		cfg.Widget.Greeting = p.Widget.Greeting
	}
	if p.Widget.ErrorMessage != "" {
		cfg.Widget.ErrorMessage = p.Widget.ErrorMessage
	}
	cfg.Storage.Path = p.Storage.Path
	cfg.Logging.Level = p.Logging.Level
	cfg.Logging.Format = p.Logging.Format

	if p.Backend.RequestTimeout != "" {
		d, err := time.ParseDuration(p.Backend.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing backend.request_timeout: %w", err)
		}
		cfg.Backend.RequestTimeout = d
	}
	if p.Backend.BeaconTimeout != "" {
		d, err := time.ParseDuration(p.Backend.BeaconTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing backend.beacon_timeout: %w", err)
		}
		cfg.Backend.BeaconTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

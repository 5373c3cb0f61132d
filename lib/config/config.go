// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/bus"
)

// EnvVar names the environment variable Load reads the config path
// from.
const EnvVar = "PANELSHELL_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// PanelKind selects how a panel's content is provided.
type PanelKind string

const (
	// RemoteKind panels live in their own process behind a bus name.
	RemoteKind PanelKind = "remote"

	// LocalKind panels render static in-process text.
	LocalKind PanelKind = "local"
)

// Config is the master configuration for panelshell.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Bus configures the session bus directory.
	Bus BusConfig `yaml:"bus"`

	// Toolbar configures the container panels drop down from.
	Toolbar ToolbarConfig `yaml:"toolbar"`

	// Animation configures panel slides.
	Animation AnimationConfig `yaml:"animation"`

	// Log configures the host logger.
	Log LogConfig `yaml:"log"`

	// Panels lists the toolbar's panels, in button order.
	Panels []PanelConfig `yaml:"panels"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Panels are not overridable.
type ConfigOverrides struct {
	Bus       *BusConfig       `yaml:"bus,omitempty"`
	Toolbar   *ToolbarConfig   `yaml:"toolbar,omitempty"`
	Animation *AnimationConfig `yaml:"animation,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// BusConfig configures the session bus.
type BusConfig struct {
	// Dir holds one socket per exported service name.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/panelshell
	Dir string `yaml:"dir"`
}

// ToolbarConfig configures the toolbar.
type ToolbarConfig struct {
	// SlideDuration is the toolbar's own slide time.
	// Default: 150ms
	SlideDuration string `yaml:"slide_duration"`

	// Exclusive makes showing one panel hide the others.
	// Default: true
	Exclusive *bool `yaml:"exclusive,omitempty"`
}

// AnimationConfig configures panel slides.
type AnimationConfig struct {
	// Duration of one slide. Default: 250ms
	Duration string `yaml:"duration"`

	// Easing names an easing function. Default: out-cubic
	Easing string `yaml:"easing"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is auto, text or json. auto picks text on a terminal.
	// Default: auto
	Format string `yaml:"format"`
}

// PanelConfig describes one toolbar panel.
type PanelConfig struct {
	// Name labels the toolbar button.
	Name string `yaml:"name"`

	// Kind is remote or local. Default: remote
	Kind PanelKind `yaml:"kind"`

	// Service is the bus name of a remote panel.
	Service string `yaml:"service"`

	// Text is the content of a local panel.
	Text string `yaml:"text"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// X and Y are sent to position-aware panels.
	X             int  `yaml:"x"`
	Y             int  `yaml:"y"`
	PositionAware bool `yaml:"position_aware"`
}

// Default returns the default configuration. The config file is still
// required; defaults only fill fields the file leaves out.
func Default() *Config {
	exclusive := true
	return &Config{
		Environment: Development,
		Bus: BusConfig{
			Dir: "${XDG_RUNTIME_DIR:-/tmp}/panelshell",
		},
		Toolbar: ToolbarConfig{
			SlideDuration: "150ms",
			Exclusive:     &exclusive,
		},
		Animation: AnimationConfig{
			Duration: "250ms",
			Easing:   "out-cubic",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by PANELSHELL_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your panelshell.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.applyPanelDefaults()
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges one file into the config. JSONC is reduced to plain
// JSON, which the YAML decoder accepts as-is.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".jsonc") || strings.HasSuffix(path, ".json") {
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production logs are machine-read.
		if overrides == nil {
			overrides = &ConfigOverrides{Log: &LogConfig{Format: "json"}}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Bus != nil && overrides.Bus.Dir != "" {
		c.Bus.Dir = overrides.Bus.Dir
	}

	if overrides.Toolbar != nil {
		if overrides.Toolbar.SlideDuration != "" {
			c.Toolbar.SlideDuration = overrides.Toolbar.SlideDuration
		}
		if overrides.Toolbar.Exclusive != nil {
			c.Toolbar.Exclusive = overrides.Toolbar.Exclusive
		}
	}

	if overrides.Animation != nil {
		if overrides.Animation.Duration != "" {
			c.Animation.Duration = overrides.Animation.Duration
		}
		if overrides.Animation.Easing != "" {
			c.Animation.Easing = overrides.Animation.Easing
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

func (c *Config) applyPanelDefaults() {
	for i := range c.Panels {
		panel := &c.Panels[i]
		if panel.Kind == "" {
			panel.Kind = RemoteKind
		}
		if panel.Name == "" {
			panel.Name = panel.Service
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}
	c.Bus.Dir = expandVars(c.Bus.Dir, vars)
}

// DefaultBusDir returns the expanded default bus directory, for tools
// run without a config file.
func DefaultBusDir() string {
	return expandVars(Default().Bus.Dir, nil)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// SlideDuration parses Animation.Duration.
func (c *Config) SlideDuration() (time.Duration, error) {
	return parseDuration("animation.duration", c.Animation.Duration)
}

// ToolbarSlideDuration parses Toolbar.SlideDuration.
func (c *Config) ToolbarSlideDuration() (time.Duration, error) {
	return parseDuration("toolbar.slide_duration", c.Toolbar.SlideDuration)
}

// AnimationOptions returns the panel slide options.
func (c *Config) AnimationOptions() (anim.Options, error) {
	duration, err := c.SlideDuration()
	if err != nil {
		return anim.Options{}, err
	}
	easing, err := anim.EasingByName(c.Animation.Easing)
	if err != nil {
		return anim.Options{}, fmt.Errorf("animation.easing: %w", err)
	}
	return anim.Options{Duration: duration, Easing: easing}, nil
}

// ExclusiveToolbar reports whether showing one panel hides the others.
func (c *Config) ExclusiveToolbar() bool {
	return c.Toolbar.Exclusive == nil || *c.Toolbar.Exclusive
}

func parseDuration(field, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%s: %s is negative", field, value)
	}
	return duration, nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Bus.Dir == "" {
		errs = append(errs, fmt.Errorf("bus.dir is required"))
	}
	if _, err := c.SlideDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ToolbarSlideDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := anim.EasingByName(c.Animation.Easing); err != nil {
		errs = append(errs, fmt.Errorf("animation.easing: %w", err))
	}
	if !contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	seen := make(map[string]bool)
	for i, panel := range c.Panels {
		prefix := fmt.Sprintf("panels[%d]", i)
		if panel.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else if seen[panel.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is used twice", prefix, panel.Name))
		}
		seen[panel.Name] = true

		switch panel.Kind {
		case RemoteKind:
			if err := bus.ValidateName(panel.Service); err != nil {
				errs = append(errs, fmt.Errorf("%s.service: %w", prefix, err))
			}
		case LocalKind:
		default:
			errs = append(errs, fmt.Errorf("%s.kind must be remote or local, got %q", prefix, panel.Kind))
		}
		if panel.Width <= 0 || panel.Height <= 0 {
			errs = append(errs, fmt.Errorf("%s: width and height must be positive", prefix))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the bus directory if it does not exist.
func (c *Config) EnsurePaths() error {
	if c.Bus.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Bus.Dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Bus.Dir, err)
	}
	return nil
}

// Panel returns the panel named name.
func (c *Config) Panel(name string) (PanelConfig, bool) {
	for _, panel := range c.Panels {
		if panel.Name == name {
			return panel, true
		}
	}
	return PanelConfig{}, false
}

// SocketDir returns the absolute bus directory.
func (c *Config) SocketDir() (string, error) {
	return filepath.Abs(c.Bus.Dir)
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/shrun/internal/rules"
)

// Config holds the global shrun configuration.
type Config struct {
	// Shell is the default shell name or path. Empty means "use the
	// parent shell".
	Shell string `yaml:"shell"`
	// Check, ShowOutput and ShowCommands are the config-level defaults
	// for the matching run options. nil means "not configured" so the
	// resolution cascade can fall through to the hard default (true).
	Check        *bool `yaml:"check"`
	ShowOutput   *bool `yaml:"show_output"`
	ShowCommands *bool `yaml:"show_commands"`

	Audit  AuditConfig  `yaml:"audit"`
	Rules  rules.Config `yaml:"rules"`
	Policy PolicyConfig `yaml:"policy"`
	Daemon DaemonConfig `yaml:"daemon"`
}

// PolicyConfig points at an optional Starlark policy script.
type PolicyConfig struct {
	Script string `yaml:"script"`
}

// DaemonConfig controls daemon behavior.
type DaemonConfig struct {
	IdleTimeout string `yaml:"idle_timeout"`
}

// DefaultIdleTimeout is used when no idle_timeout is configured.
const DefaultIdleTimeout = 5 * time.Minute

// IdleTimeoutDuration parses the configured idle timeout or returns the default.
func (d *DaemonConfig) IdleTimeoutDuration() time.Duration {
	if d.IdleTimeout != "" {
		dur, err := time.ParseDuration(d.IdleTimeout)
		if err == nil {
			return dur
		}
	}
	return DefaultIdleTimeout
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Audit: AuditConfig{
			Path: filepath.Join(home, ".local", "share", "shrun", "audit.jsonl"),
		},
	}
}

// Load reads the config from the standard location (~/.config/shrun/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".config", "shrun", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Expand ~ in file paths.
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Policy.Script = expandHome(cfg.Policy.Script)

	return cfg, nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, path[1:])
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shrun", "config.yaml")
}

// CompileRules builds the rule set from the config: hardcoded safety rules
// are always included, config-driven rules are appended after.
func (c *Config) CompileRules() (*rules.RuleSet, error) {
	rs := rules.NewRuleSet(rules.Hardcoded()...)
	fns, err := rules.Compile(c.Rules)
	if err != nil {
		return nil, err
	}
	for _, fn := range fns {
		rs.AddConfig(fn)
	}
	return rs, nil
}

package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Config represents command rules from YAML config.
type Config struct {
	// RejectSubstrings blocks any command containing one of these
	// substrings.
	RejectSubstrings []string `yaml:"reject_substrings"`
	// RejectPatterns blocks any command matching one of these regular
	// expressions.
	RejectPatterns []string `yaml:"reject_patterns"`
}

// Compile turns the config into CheckFuncs. Patterns are compiled once;
// an invalid pattern fails compilation rather than silently passing.
func Compile(cfg Config) ([]CheckFunc, error) {
	var fns []CheckFunc

	for _, sub := range cfg.RejectSubstrings {
		sub := sub
		fns = append(fns, func(command string) error {
			if strings.Contains(command, sub) {
				return fmt.Errorf("command contains %q (config rule). Retry with --allow to bypass", sub)
			}
			return nil
		})
	}

	for _, pat := range cfg.RejectPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("compile rule pattern %q: %w", pat, err)
		}
		fns = append(fns, func(command string) error {
			if re.MatchString(command) {
				return fmt.Errorf("command matches %q (config rule). Retry with --allow to bypass", re.String())
			}
			return nil
		})
	}

	return fns, nil
}

package fields

import (
	"fmt"
	"regexp"
	"strings"
)

// NoiseRule rewrites every match of Pattern with Replace.
type NoiseRule struct {
	Pattern *regexp.Regexp
	Replace string
}

func NewNoiseRule(pattern, replace string) (NoiseRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return NoiseRule{}, fmt.Errorf("noise pattern %q: %w", pattern, err)
	}
	return NoiseRule{Pattern: re, Replace: replace}, nil
}

var reWhitespace = regexp.MustCompile(`\s+`)

// DefaultNoise removes separator artifacts OCR leaves around values.
var DefaultNoise = []NoiseRule{
	{Pattern: regexp.MustCompile(`\|{2,}`), Replace: " "},
	{Pattern: regexp.MustCompile(`_{2,}`), Replace: " "},
	{Pattern: regexp.MustCompile(`\.{3,}`), Replace: " "},
	{Pattern: regexp.MustCompile(`[“”"]`), Replace: ""},
	{Pattern: regexp.MustCompile(`^[\s:;,|]+`), Replace: ""},
	{Pattern: regexp.MustCompile(`[\s:;,|]+$`), Replace: ""},
}

// Cleaner normalises a captured value.
type Cleaner struct {
	rules []NoiseRule
}

func NewCleaner(rules ...NoiseRule) *Cleaner {
	return &Cleaner{rules: rules}
}

func DefaultCleaner() *Cleaner {
	return NewCleaner(DefaultNoise...)
}

// With returns a cleaner that applies c's rules followed by extra.
func (c *Cleaner) With(extra ...NoiseRule) *Cleaner {
	rules := make([]NoiseRule, 0, len(c.rules)+len(extra))
	rules = append(rules, c.rules...)
	rules = append(rules, extra...)
	return &Cleaner{rules: rules}
}

// Clean applies the noise rules, collapses internal whitespace and trims.
func (c *Cleaner) Clean(v string) string {
	for _, r := range c.rules {
		v = r.Pattern.ReplaceAllString(v, r.Replace)
	}
	v = reWhitespace.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}

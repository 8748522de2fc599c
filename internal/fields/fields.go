// Package fields pulls named values out of extracted text with ordered regex tables.
package fields

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule binds a field name to its patterns, tried in order. Group 1 is the
// value when present, otherwise the whole match.
type Rule struct {
	Name     string
	Patterns []*regexp.Regexp
}

// NewRule compiles patterns for a field.
func NewRule(name string, patterns ...string) (Rule, error) {
	r := Rule{Name: name}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return Rule{}, fmt.Errorf("field %s: pattern %q: %w", name, p, err)
		}
		r.Patterns = append(r.Patterns, re)
	}
	if r.Name == "" || len(r.Patterns) == 0 {
		return Rule{}, fmt.Errorf("field %q: name and at least one pattern are required", name)
	}
	return r, nil
}

func MustRule(name string, patterns ...string) Rule {
	r, err := NewRule(name, patterns...)
	if err != nil {
		panic(err)
	}
	return r
}

// Table is an ordered rule list.
type Table []Rule

// Names returns the field names in table order.
func (t Table) Names() []string {
	out := make([]string, 0, len(t))
	for _, r := range t {
		out = append(out, r.Name)
	}
	return out
}

// FieldMap holds cleaned, non-empty values keyed by field name.
type FieldMap map[string]string

// Extractor applies a Table to text. It holds no per-call state and is safe
// for concurrent use.
type Extractor struct {
	cleaner *Cleaner
}

func NewExtractor(cleaner *Cleaner) *Extractor {
	if cleaner == nil {
		cleaner = DefaultCleaner()
	}
	return &Extractor{cleaner: cleaner}
}

// ExtractFields takes, for every rule, the first pattern with a non-blank
// capture. Later patterns and later rules with the same name never replace a
// value that was already set. Values that clean to "" are omitted.
func (e *Extractor) ExtractFields(table Table, text string) FieldMap {
	out := FieldMap{}
	settled := make(map[string]bool, len(table))
	for _, rule := range table {
		if settled[rule.Name] {
			continue
		}
		raw, ok := firstCapture(rule.Patterns, text)
		if !ok {
			continue
		}
		settled[rule.Name] = true
		if v := e.cleaner.Clean(raw); v != "" {
			out[rule.Name] = v
		}
	}
	return out
}

func firstCapture(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v := m[0]
			if len(m) > 1 {
				v = m[1]
			}
			if strings.TrimSpace(v) != "" {
				return v, true
			}
		}
	}
	return "", false
}

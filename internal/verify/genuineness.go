// Package verify scores how genuine a document looks and how complete its extraction is.
package verify

import (
	"regexp"
	"strings"
)

// DefaultIndicators are phrases that mark samples, mock-ups and copies.
var DefaultIndicators = []string{
	"sample", "specimen", "template", "example", "dummy", "test",
	"not for official use", "for demonstration", "training", "practice",
	"mock", "photocopy", "scan", "digital copy", "this is a",
	"this document is", "for testing", "for practice", "do not use",
	"invalid", "unofficial", "non-official",
}

// DefaultKeywords are terms real identity documents tend to carry.
var DefaultKeywords = []string{
	"name", "date", "address", "signature", "photo",
	"passport", "license", "id", "number", "issued",
}

type Config struct {
	Base         float64
	Penalty      float64 // subtracted per indicator found, floored at 0
	KeywordBonus float64 // added per keyword found
	BonusCap     float64 // upper bound on the total keyword bonus
	Indicators   []string
	Keywords     []string
}

func DefaultConfig() Config {
	return Config{
		Base:         0.5,
		Penalty:      0.2,
		KeywordBonus: 0.05,
		BonusCap:     0.3,
		Indicators:   DefaultIndicators,
		Keywords:     DefaultKeywords,
	}
}

// Scorer is immutable after construction.
type Scorer struct {
	cfg        Config
	indicators []string
	keywords   []*regexp.Regexp
}

// NewScorer uses cfg as given; empty indicator or keyword lists fall back to the defaults.
func NewScorer(cfg Config) *Scorer {
	if len(cfg.Indicators) == 0 {
		cfg.Indicators = DefaultIndicators
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultKeywords
	}
	s := &Scorer{cfg: cfg}
	for _, ind := range cfg.Indicators {
		if ind = strings.ToLower(strings.TrimSpace(ind)); ind != "" {
			s.indicators = append(s.indicators, ind)
		}
	}
	for _, kw := range cfg.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			s.keywords = append(s.keywords, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
	}
	return s
}

func (s *Scorer) Config() Config { return s.cfg }

// ScoreGenuineness starts at Base, subtracts Penalty for every indicator found
// as a case-insensitive substring, then adds KeywordBonus per keyword found as
// a whole word up to BonusCap. The result is clamped to [0,1].
func (s *Scorer) ScoreGenuineness(text string) float64 {
	lower := strings.ToLower(text)
	score := s.cfg.Base
	for _, ind := range s.indicators {
		if strings.Contains(lower, ind) {
			score = max(0, score-s.cfg.Penalty)
		}
	}
	hits := 0
	for _, kw := range s.keywords {
		if kw.MatchString(lower) {
			hits++
		}
	}
	score += min(float64(hits)*s.cfg.KeywordBonus, s.cfg.BonusCap)
	return Clamp(score)
}

// IndicatorsFound lists the configured indicators present in text, for diagnostics.
func (s *Scorer) IndicatorsFound(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, ind := range s.indicators {
		if strings.Contains(lower, ind) {
			out = append(out, ind)
		}
	}
	return out
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

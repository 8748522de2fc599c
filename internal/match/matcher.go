// Package match classifies documents against the template registry.
package match

import (
	"image"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/imaging"
	"github.com/joseph-ayodele/docverify/internal/templates"
)

const (
	MethodCCoeffNormed = "ccoeff-normed"
	MethodCCorrNormed  = "ccorr-normed"
	MethodTextKeywords = "text-keywords"
	MethodNone         = "none"
)

// MatchResult is the best template for a document. TemplateID is
// constants.Unknown when nothing scored above zero.
type MatchResult struct {
	TemplateID string             `json:"template_id"`
	Category   constants.Category `json:"category,omitempty"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method"`
}

func unknown() MatchResult {
	return MatchResult{TemplateID: constants.Unknown, Method: MethodNone}
}

// Known reports whether a registered template was selected.
func (r MatchResult) Known() bool { return r.TemplateID != constants.Unknown && r.TemplateID != "" }

// Matcher holds no per-call state; one instance serves concurrent documents.
type Matcher struct {
	maxDim   int
	logger   *slog.Logger
	keywords sync.Map // lowercased keyword -> *regexp.Regexp
}

// NewMatcher downscales inputs to fit maxDim before correlating; 0 disables it.
func NewMatcher(maxDim int, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{maxDim: maxDim, logger: logger}
}

// MatchDocument correlates img with every template that has a reference image.
// Each template is resized to the input's dimensions and scored with both
// normalized correlation variants; the higher one counts. The first template
// registered wins a tie.
func (m *Matcher) MatchDocument(reg *templates.Registry, img image.Image) MatchResult {
	best := unknown()
	if img == nil || reg.Len() == 0 {
		return best
	}
	input := imaging.FitWithin(imaging.ToGray(img), m.maxDim)
	w, h := input.Bounds().Dx(), input.Bounds().Dy()
	if w == 0 || h == 0 {
		return best
	}
	in := newStats(imaging.Pixels(input))

	for _, t := range reg.Templates() {
		if t.Image == nil {
			continue
		}
		if !t.HasImage() {
			m.logger.Warn("skipping malformed template", "template", t.ID, "reason", "empty reference image")
			continue
		}
		score, method := m.score(in, t.Image, w, h)
		m.logger.Debug("template scored", "template", t.ID, "score", score, "method", method)
		if score > best.Confidence {
			best = MatchResult{TemplateID: t.ID, Category: t.Category, Confidence: score, Method: method}
		}
	}
	return best
}

func (m *Matcher) score(in stats, ref *image.Gray, w, h int) (float64, string) {
	tpl := newStats(imaging.Pixels(imaging.Resize(ref, w, h)))
	ccoeff, ccorr := correlate(in, tpl)
	if ccorr > ccoeff {
		return ccorr, MethodCCorrNormed
	}
	return ccoeff, MethodCCoeffNormed
}

// MatchDocumentBytes decodes data first; undecodable data is an InputDecodeError.
func (m *Matcher) MatchDocumentBytes(reg *templates.Registry, data []byte) (MatchResult, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return MatchResult{}, err
	}
	return m.MatchDocument(reg, img), nil
}

// MatchText classifies documents without a raster view by the share of each
// template's keywords found in text. Registration order breaks ties.
func (m *Matcher) MatchText(reg *templates.Registry, text string) MatchResult {
	best := unknown()
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return best
	}
	for _, t := range reg.Templates() {
		if len(t.Keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range t.Keywords {
			if re := m.keyword(kw); re != nil && re.MatchString(lower) {
				hits++
			}
		}
		score := clamp(float64(hits) / float64(len(t.Keywords)))
		if score > best.Confidence {
			best = MatchResult{TemplateID: t.ID, Category: t.Category, Confidence: score, Method: MethodTextKeywords}
		}
	}
	return best
}

// keyword compiles kw as a whole-word pattern, so "pan" does not hit "Japan".
func (m *Matcher) keyword(kw string) *regexp.Regexp {
	kw = strings.ToLower(strings.TrimSpace(kw))
	if kw == "" {
		return nil
	}
	if re, ok := m.keywords.Load(kw); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := m.keywords.LoadOrStore(kw, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	return re.(*regexp.Regexp)
}

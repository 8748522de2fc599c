package verify

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docverify/internal/fields"
)

// Verification is the extraction-quality assessment of one document.
type Verification struct {
	FieldCompleteness float64  `json:"field_completeness"`
	DataQuality       float64  `json:"data_quality"`
	Score             float64  `json:"score"` // mean of completeness and quality
	IsGenuine         bool     `json:"is_genuine"`
	MissingFields     []string `json:"missing_fields,omitempty"`
}

// VerifyExtractedInfo is the share of fields whose trimmed value is non-empty;
// an empty map scores 0.
func VerifyExtractedInfo(m fields.FieldMap) float64 {
	if len(m) == 0 {
		return 0
	}
	filled := 0
	for _, v := range m {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	return Clamp(float64(filled) / float64(len(m)))
}

// VerifyDocument scores completeness against required and the share of values
// longer than two characters. IsGenuine is Score >= threshold. With no required
// fields completeness is 1.
func VerifyDocument(m fields.FieldMap, required []string, threshold float64) Verification {
	var v Verification

	if len(required) == 0 {
		v.FieldCompleteness = 1
	} else {
		present := 0
		for _, name := range required {
			if _, ok := m[name]; ok {
				present++
			} else {
				v.MissingFields = append(v.MissingFields, name)
			}
		}
		v.FieldCompleteness = float64(present) / float64(len(required))
	}

	if len(m) > 0 {
		good := 0
		for _, val := range m {
			if utf8.RuneCountInString(strings.TrimSpace(val)) > 2 {
				good++
			}
		}
		v.DataQuality = float64(good) / float64(len(m))
	}

	v.FieldCompleteness = Clamp(v.FieldCompleteness)
	v.DataQuality = Clamp(v.DataQuality)
	v.Score = Clamp((v.FieldCompleteness + v.DataQuality) / 2)
	v.IsGenuine = v.Score >= threshold
	return v
}

package match

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/imaging"
	"github.com/joseph-ayodele/docverify/internal/templates"
)

// pattern draws a deterministic image; different seeds give uncorrelated layouts.
func pattern(w, h, seed int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := (x*7 + y*13 + seed*31) % 97
			if (x/4+y/4+seed)%2 == 0 {
				v += 150
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

func invert(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

func TestCorrelate(t *testing.T) {
	a := newStats(imaging.Pixels(pattern(16, 16, 1)))

	ccoeff, ccorr := correlate(a, a)
	if math.Abs(ccoeff-1) > 1e-9 || math.Abs(ccorr-1) > 1e-9 {
		t.Fatalf("self correlation = %v, %v", ccoeff, ccorr)
	}

	inv := newStats(imaging.Pixels(invert(pattern(16, 16, 1))))
	ccoeff, ccorr = correlate(a, inv)
	if ccoeff != 0 {
		t.Fatalf("anti-correlated ccoeff should clamp to 0, got %v", ccoeff)
	}
	if ccorr <= 0 || ccorr > 1 {
		t.Fatalf("ccorr out of range: %v", ccorr)
	}

	black := newStats(make([]float64, 256))
	if c1, c2 := correlate(a, black); c1 != 0 || c2 != 0 {
		t.Fatalf("zero denominator should give 0, got %v %v", c1, c2)
	}
	if c1, c2 := correlate(a, newStats([]float64{1, 2})); c1 != 0 || c2 != 0 {
		t.Fatal("size mismatch should give 0")
	}
}

func TestMatchDocument(t *testing.T) {
	m := NewMatcher(0, nil)
	passport := pattern(40, 30, 1)
	pan := pattern(40, 30, 5)
	reg := templates.NewRegistry(
		templates.Template{ID: "passport", Category: constants.Passport, Image: passport},
		templates.Template{ID: "pan", Category: constants.PanCard, Image: pan},
		templates.Template{ID: "keywords-only", Keywords: []string{"x"}},
	)

	t.Run("picks the matching template", func(t *testing.T) {
		res := m.MatchDocument(reg, pattern(40, 30, 5))
		if res.TemplateID != "pan" || res.Category != constants.PanCard {
			t.Fatalf("got %+v", res)
		}
		if math.Abs(res.Confidence-1) > 1e-9 {
			t.Fatalf("confidence = %v", res.Confidence)
		}
	})

	t.Run("input of a different size", func(t *testing.T) {
		big := imaging.Resize(pattern(40, 30, 1), 120, 90)
		res := m.MatchDocument(reg, big)
		if res.TemplateID != "passport" {
			t.Fatalf("got %+v", res)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Fatalf("confidence out of range: %v", res.Confidence)
		}
	})

	t.Run("empty registry", func(t *testing.T) {
		res := m.MatchDocument(templates.NewRegistry(), passport)
		if res.TemplateID != constants.Unknown || res.Confidence != 0 || res.Known() {
			t.Fatalf("got %+v", res)
		}
		if res := m.MatchDocument(nil, passport); res.TemplateID != constants.Unknown {
			t.Fatalf("nil registry: %+v", res)
		}
	})

	t.Run("tie goes to the first registered", func(t *testing.T) {
		same := pattern(20, 20, 3)
		tied := templates.NewRegistry(
			templates.Template{ID: "first", Image: same},
			templates.Template{ID: "second", Image: same},
		)
		for i := 0; i < 5; i++ {
			if res := m.MatchDocument(tied, same); res.TemplateID != "first" {
				t.Fatalf("got %+v", res)
			}
		}
	})

	t.Run("downscaled input still matches", func(t *testing.T) {
		small := NewMatcher(16, nil)
		res := small.MatchDocument(reg, pattern(40, 30, 1))
		if res.TemplateID != "passport" {
			t.Fatalf("got %+v", res)
		}
	})
}

func TestMatchDocumentBytes(t *testing.T) {
	m := NewMatcher(0, nil)
	reg := templates.NewRegistry(templates.Template{ID: "a", Image: pattern(10, 10, 2)})

	if _, err := m.MatchDocumentBytes(reg, []byte("definitely not an image")); !errors.Is(err, common.ErrInputDecode) {
		t.Fatalf("err = %v", err)
	}

	data, err := imaging.EncodePNG(pattern(10, 10, 2))
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.MatchDocumentBytes(reg, data)
	if err != nil || res.TemplateID != "a" {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestMatchText(t *testing.T) {
	m := NewMatcher(0, nil)
	reg := templates.NewRegistry(
		templates.Template{ID: "pan", Category: constants.PanCard, Keywords: []string{"pan", "permanent account", "income tax"}},
		templates.Template{ID: "passport", Category: constants.Passport, Keywords: []string{"passport", "travel", "nationality"}},
		templates.Template{ID: "passport-copy", Category: constants.Passport, Keywords: []string{"passport", "travel", "nationality"}},
	)

	res := m.MatchText(reg, "REPUBLIC OF INDIA\nPASSPORT\nNationality: INDIAN")
	if res.TemplateID != "passport" || res.Method != MethodTextKeywords {
		t.Fatalf("got %+v", res)
	}
	if math.Abs(res.Confidence-2.0/3) > 1e-9 {
		t.Fatalf("confidence = %v", res.Confidence)
	}

	if res := m.MatchText(reg, "   "); res.TemplateID != constants.Unknown {
		t.Fatalf("blank text: %+v", res)
	}
	if res := m.MatchText(reg, "grocery list"); res.TemplateID != constants.Unknown || res.Method != MethodNone {
		t.Fatalf("no keywords: %+v", res)
	}
}

func TestMatchTextWholeWords(t *testing.T) {
	m := NewMatcher(0, nil)
	reg := templates.NewRegistry(
		templates.Template{ID: "pan", Category: constants.PanCard, Keywords: []string{"pan", "permanent account", "income tax"}},
		templates.Template{ID: "aadhaar", Category: constants.AadhaarCard, Keywords: []string{"aadhaar", "uid"}},
	)

	tests := []struct {
		name string
		text string
		want string
		conf float64
	}{
		{"embedded in longer words", "Company panel meeting in Japan, see the guide", constants.Unknown, 0},
		{"standalone keyword", "PAN: ABCDE1234F issued by the company", "pan", 1.0 / 3},
		{"punctuation bounds a word", "uid/1234 (aadhaar)", "aadhaar", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.MatchText(reg, tt.text)
			if res.TemplateID != tt.want {
				t.Fatalf("template = %s, want %s (%+v)", res.TemplateID, tt.want, res)
			}
			if math.Abs(res.Confidence-tt.conf) > 1e-9 {
				t.Fatalf("confidence = %v, want %v", res.Confidence, tt.conf)
			}
		})
	}
}

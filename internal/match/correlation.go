package match

import "math"

// stats caches the per-image sums both correlation variants need.
type stats struct {
	px     []float64
	mean   float64
	sumSq  float64 // sum of x^2
	varSum float64 // sum of (x-mean)^2
}

func newStats(px []float64) stats {
	s := stats{px: px}
	if len(px) == 0 {
		return s
	}
	var sum float64
	for _, v := range px {
		sum += v
		s.sumSq += v * v
	}
	s.mean = sum / float64(len(px))
	for _, v := range px {
		d := v - s.mean
		s.varSum += d * d
	}
	return s
}

// correlate returns the normalized correlation coefficient (TM_CCOEFF_NORMED)
// and the normalized cross-correlation (TM_CCORR_NORMED) of two equally sized
// images. A zero denominator yields 0 for that variant.
func correlate(a, b stats) (ccoeff, ccorr float64) {
	if len(a.px) == 0 || len(a.px) != len(b.px) {
		return 0, 0
	}
	var cross, centered float64
	for i, av := range a.px {
		bv := b.px[i]
		cross += av * bv
		centered += (av - a.mean) * (bv - b.mean)
	}
	if d := math.Sqrt(a.varSum * b.varSum); d > 0 {
		ccoeff = centered / d
	}
	if d := math.Sqrt(a.sumSq * b.sumSq); d > 0 {
		ccorr = cross / d
	}
	return clamp(ccoeff), clamp(ccorr)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

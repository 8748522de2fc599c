package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGray converts img to a single-channel intensity image anchored at (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Resize scales src to exactly w x h with bilinear interpolation.
func Resize(src *image.Gray, w, h int) *image.Gray {
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// FitWithin downscales src so neither side exceeds maxDim; aspect ratio is kept.
// maxDim <= 0 or an already small image returns src unchanged.
func FitWithin(src *image.Gray, maxDim int) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return src
	}
	if w >= h {
		nh := max(1, h*maxDim/w)
		return Resize(src, maxDim, nh)
	}
	nw := max(1, w*maxDim/h)
	return Resize(src, nw, maxDim)
}

// Pixels returns the intensities of g as float64 in row-major order.
func Pixels(g *image.Gray) []float64 {
	b := g.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y):g.PixOffset(b.Max.X, y)]
		for _, v := range row {
			out = append(out, float64(v))
		}
	}
	return out
}

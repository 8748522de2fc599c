package imaging

import (
	"image"
	"math"
	"slices"
)

// PreprocessOptions configures the OCR cleanup chain.
type PreprocessOptions struct {
	BlockSize int     // adaptive threshold neighbourhood, odd
	C         float64 // constant subtracted from the weighted mean
	ClipLimit float64 // CLAHE clip limit
	TilesX    int
	TilesY    int
}

// DefaultPreprocess mirrors the classic OpenCV recipe: 11/2 gaussian threshold, 2.0 clip, 8x8 tiles.
var DefaultPreprocess = PreprocessOptions{BlockSize: 11, C: 2, ClipLimit: 2.0, TilesX: 8, TilesY: 8}

// Preprocess runs grayscale, adaptive thresholding, denoising and CLAHE, then
// keeps only pixels that are bright in both the denoised and enhanced images.
func Preprocess(img image.Image, opts PreprocessOptions) *image.Gray {
	if opts.BlockSize < 3 {
		opts = DefaultPreprocess
	}
	gray := ToGray(img)
	thresh := AdaptiveThreshold(gray, opts.BlockSize, opts.C)
	denoised := MedianDenoise(thresh)
	enhanced := CLAHE(denoised, opts.ClipLimit, opts.TilesX, opts.TilesY)

	out := image.NewGray(denoised.Bounds())
	for i := range out.Pix {
		out.Pix[i] = enhanced.Pix[i] & denoised.Pix[i]
	}
	return out
}

// gaussianKernel follows OpenCV's sigma rule for a given odd size.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AdaptiveThreshold binarises src against a gaussian-weighted local mean minus c.
func AdaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	if blockSize%2 == 0 {
		blockSize++
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	k := gaussianKernel(blockSize)
	half := blockSize / 2

	// separable blur with replicated borders
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[clampInt(x+i-half, 0, w-1)])
			}
			tmp[y*w+x] = acc
		}
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for i, kv := range k {
				mean += kv * tmp[clampInt(y+i-half, 0, h-1)*w+x]
			}
			if float64(src.Pix[y*src.Stride+x]) > mean-c {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// MedianDenoise applies a 3x3 median filter, which removes the salt-and-pepper
// specks thresholding leaves behind.
func MedianDenoise(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := clampInt(y+dy, 0, h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := clampInt(x+dx, 0, w-1)
					win[n] = src.Pix[yy*src.Stride+xx]
					n++
				}
			}
			s := win[:]
			slices.Sort(s)
			dst.Pix[y*dst.Stride+x] = s[4]
		}
	}
	return dst
}

// CLAHE performs contrast-limited adaptive histogram equalisation with
// bilinear interpolation between tile lookup tables.
func CLAHE(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	tilesX = clampInt(tilesX, 1, max(1, w))
	tilesY = clampInt(tilesY, 1, max(1, h))
	tw := (w + tilesX - 1) / tilesX
	th := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			luts[ty*tilesX+tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(th) - 0.5
		ty0 := int(math.Floor(fy))
		ay := fy - float64(ty0)
		ty1 := clampInt(ty0+1, 0, tilesY-1)
		ty0 = clampInt(ty0, 0, tilesY-1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tw) - 0.5
			tx0 := int(math.Floor(fx))
			ax := fx - float64(tx0)
			tx1 := clampInt(tx0+1, 0, tilesX-1)
			tx0 = clampInt(tx0, 0, tilesX-1)

			v := src.Pix[y*src.Stride+x]
			top := (1-ax)*float64(luts[ty0*tilesX+tx0][v]) + ax*float64(luts[ty0*tilesX+tx1][v])
			bot := (1-ax)*float64(luts[ty1*tilesX+tx0][v]) + ax*float64(luts[ty1*tilesX+tx1][v])
			dst.Pix[y*dst.Stride+x] = uint8(math.Round((1-ay)*top + ay*bot))
		}
	}
	return dst
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	area := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[src.Pix[y*src.Stride+x]]++
			area++
		}
	}
	var lut [256]uint8
	if area == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	if clipLimit > 0 {
		limit := max(1, int(clipLimit*float64(area)/256))
		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		bonus, residual := excess/256, excess%256
		for i := range hist {
			hist[i] += bonus
		}
		if residual > 0 {
			step := max(1, 256/residual)
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	scale := 255.0 / float64(area)
	cdf := 0
	for i := range hist {
		cdf += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(cdf)*scale)))
	}
	return lut
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/imaging"
)

// ImageStrategy OCRs a raster image.
type ImageStrategy struct {
	raster *rasterOCR
}

func (*ImageStrategy) Format() constants.Format { return constants.IMAGE }

func (s *ImageStrategy) Extract(ctx context.Context, src Source) (*Result, error) {
	img, _, err := imaging.Decode(src.Data)
	if err != nil {
		return nil, err
	}
	res := &Result{Pages: 1}
	frag, w := s.raster.recognize(ctx, img, "image")
	if w != nil {
		res.warn(*w)
	}
	frag.Kind = KindImageOCR
	res.add(frag)
	return res, nil
}

var errNoRecognizer = errors.New("no ocr engine configured")

// rasterOCR is the raster path shared by every strategy that meets an image.
type rasterOCR struct {
	rec Recognizer
}

// recognize never fails hard: an OCR failure becomes a partial-failure warning.
func (r *rasterOCR) recognize(ctx context.Context, img image.Image, where string) (Fragment, *common.Warning) {
	if r.rec == nil {
		w := common.PartialFailure(where, errNoRecognizer)
		return Fragment{}, &w
	}
	out, err := r.rec.Recognize(ctx, img)
	if err != nil {
		w := common.PartialFailure(where, err)
		return Fragment{}, &w
	}
	return Fragment{Method: fmt.Sprintf("%s %s", out.Engine, out.Attempt), Text: out.Text}, nil
}

// recognizeBytes decodes then OCRs an embedded image; both failures are partial.
func (r *rasterOCR) recognizeBytes(ctx context.Context, data []byte, where string) (Fragment, *common.Warning) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		w := common.PartialFailure(where, err)
		return Fragment{}, &w
	}
	return r.recognize(ctx, img, where)
}

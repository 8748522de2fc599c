package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/imaging"
)

// ErrNoPreview means the document has no raster view to correlate against.
var ErrNoPreview = errors.New("document has no raster preview")

// Previewer produces the single image used for template matching: the image
// itself, page 1 of a PDF, or the first embedded image of a Word file.
type Previewer struct {
	pdf PDFBackend
	dpi int
}

func NewPreviewer(cfg Config, pdf PDFBackend) *Previewer {
	cfg = cfg.withDefaults()
	return &Previewer{pdf: pdf, dpi: cfg.PreviewDPI}
}

// Preview returns InputDecodeError when the document is unreadable as its
// format and ErrNoPreview when it is readable but has nothing to render.
func (p *Previewer) Preview(ctx context.Context, src Source) (image.Image, error) {
	src, err := src.Load()
	if err != nil {
		return nil, err
	}
	switch constants.MapExtToFormat(src.Extension()) {
	case constants.IMAGE:
		img, _, err := imaging.Decode(src.Data)
		return img, err
	case constants.PDF:
		return p.pdfPreview(ctx, src)
	case constants.DOCX:
		pkg, err := openDocx(src.Data)
		if err != nil {
			return nil, err
		}
		for _, data := range pkg.imageData() {
			if img, _, err := imaging.Decode(data); err == nil {
				return img, nil
			}
		}
		return nil, ErrNoPreview
	case constants.TXT:
		return nil, ErrNoPreview
	default:
		return nil, common.UnsupportedFormatError(src.Extension())
	}
}

func (p *Previewer) pdfPreview(ctx context.Context, src Source) (image.Image, error) {
	if p.pdf == nil {
		return nil, ErrNoPreview
	}
	var out image.Image
	err := common.WithTempDir("docverify-preview-*", func(dir string) error {
		path := src.Path
		if path == "" {
			path = filepath.Join(dir, "input.pdf")
			if err := os.WriteFile(path, src.Data, 0o600); err != nil {
				return fmt.Errorf("stage pdf: %w", err)
			}
		}
		doc, err := p.pdf.Open(ctx, path, src.Data)
		if err != nil {
			return common.InputDecodeError("open pdf", err)
		}
		defer doc.Close()
		if doc.PageCount() < 1 {
			return ErrNoPreview
		}
		if img, err := doc.RenderPage(ctx, 1, p.dpi, dir); err == nil {
			out = img
			return nil
		}
		imgs, err := doc.PageImages(ctx, 1)
		if err != nil {
			return ErrNoPreview
		}
		for _, im := range imgs {
			if img, _, err := imaging.Decode(im.Data); err == nil {
				out = img
				return nil
			}
		}
		return ErrNoPreview
	})
	return out, err
}

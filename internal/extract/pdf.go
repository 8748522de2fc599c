package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
)

// EmbeddedImage is a raster object stored inside a page.
type EmbeddedImage struct {
	Name string
	Type string // file type reported by the parser, e.g. "png", "jpg"
	Data []byte
}

// PDFBackend opens portable documents.
type PDFBackend interface {
	Open(ctx context.Context, path string, data []byte) (PDFDocument, error)
}

// PDFDocument gives page-level access. RenderPage writes into dir, which the
// caller owns and removes.
type PDFDocument interface {
	PageCount() int
	PageText(ctx context.Context, page int) (string, error)
	RenderPage(ctx context.Context, page, dpi int, dir string) (image.Image, error)
	PageImages(ctx context.Context, page int) ([]EmbeddedImage, error)
	Close() error
}

// PDFStrategy reads embedded page text, falls back to OCR of the rendered
// page when that text is too short, and always OCRs embedded images.
type PDFStrategy struct {
	cfg     Config
	backend PDFBackend
	raster  *rasterOCR
	logger  *slog.Logger
}

func (*PDFStrategy) Format() constants.Format { return constants.PDF }

func (s *PDFStrategy) Extract(ctx context.Context, src Source) (*Result, error) {
	if s.backend == nil {
		return nil, common.NewAppError(common.CodeInternal, "no pdf backend configured", common.ErrInternal)
	}
	res := &Result{}
	err := common.WithTempDir("docverify-pdf-*", func(dir string) error {
		path := src.Path
		if path == "" {
			path = filepath.Join(dir, "input.pdf")
			if err := os.WriteFile(path, src.Data, 0o600); err != nil {
				return fmt.Errorf("stage pdf: %w", err)
			}
		}
		doc, err := s.backend.Open(ctx, path, src.Data)
		if err != nil {
			return common.InputDecodeError("open pdf", err)
		}
		defer func() {
			if err := doc.Close(); err != nil {
				s.logger.Warn("failed to close pdf", "source", src.ID, "error", err)
			}
		}()

		pages := doc.PageCount()
		if s.cfg.MaxPages > 0 && pages > s.cfg.MaxPages {
			res.warn(common.Warning{
				Code:    common.CodeExtractionPartial,
				Source:  "pdf",
				Message: fmt.Sprintf("only the first %d of %d pages were processed", s.cfg.MaxPages, pages),
			})
			pages = s.cfg.MaxPages
		}
		res.Pages = pages
		for p := 1; p <= pages; p++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.extractPage(ctx, doc, p, dir, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PDFStrategy) extractPage(ctx context.Context, doc PDFDocument, p int, dir string, res *Result) {
	where := fmt.Sprintf("page %d", p)

	txt, err := doc.PageText(ctx, p)
	if err != nil {
		res.warn(common.PartialFailure(where+" text", err))
	}
	txt = strings.TrimSpace(txt)

	if utf8.RuneCountInString(txt) >= s.cfg.MinPageText {
		res.add(Fragment{Kind: KindPageText, Page: p, Method: "embedded-text", Text: txt})
	} else {
		s.logger.Debug("page text below threshold, rasterizing", "page", p, "chars", utf8.RuneCountInString(txt), "dpi", s.cfg.RenderDPI)
		var ocrFrag Fragment
		img, err := doc.RenderPage(ctx, p, s.cfg.RenderDPI, dir)
		if err != nil {
			res.warn(common.PartialFailure(where+" render", err))
		} else {
			var w *common.Warning
			ocrFrag, w = s.raster.recognize(ctx, img, where+" ocr")
			if w != nil {
				res.warn(*w)
			}
		}
		if strings.TrimSpace(ocrFrag.Text) != "" {
			ocrFrag.Kind, ocrFrag.Page = KindPageOCR, p
			res.add(ocrFrag)
		} else {
			res.add(Fragment{Kind: KindPageText, Page: p, Method: "embedded-text", Text: txt})
		}
	}

	imgs, err := doc.PageImages(ctx, p)
	if err != nil {
		res.warn(common.PartialFailure(where+" images", err))
		return
	}
	for i, im := range imgs {
		frag, w := s.raster.recognizeBytes(ctx, im.Data, fmt.Sprintf("%s image %d (%s)", where, i+1, im.Name))
		if w != nil {
			res.warn(*w)
			continue
		}
		frag.Kind, frag.Page, frag.Index = KindEmbeddedImage, p, i+1
		res.add(frag)
	}
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/docverify/internal/imaging"
	"github.com/joseph-ayodele/docverify/internal/ocr"
)

// PopplerBackend reads structure and embedded images with pdfcpu and uses the
// poppler tools for text (pdftotext) and rasterisation (pdftoppm).
type PopplerBackend struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Runner    ocr.Runner
	Logger    *slog.Logger
}

func NewPopplerBackend(pdftotext, pdftoppm string, runner ocr.Runner, logger *slog.Logger) *PopplerBackend {
	if pdftotext == "" {
		pdftotext = "pdftotext"
	}
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{Logger: logger}
	}
	return &PopplerBackend{Pdftotext: pdftotext, Pdftoppm: pdftoppm, Runner: runner, Logger: logger}
}

func (b *PopplerBackend) Open(_ context.Context, path string, data []byte) (doc PDFDocument, err error) {
	if data == nil {
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	// pdfcpu panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return &popplerDoc{backend: b, path: path, pctx: pctx}, nil
}

type popplerDoc struct {
	backend *PopplerBackend
	path    string
	pctx    *model.Context
}

func (d *popplerDoc) PageCount() int { return d.pctx.PageCount }

// PageText runs: pdftotext -f N -l N -layout -enc UTF-8 -eol unix <path> -
func (d *popplerDoc) PageText(ctx context.Context, page int) (string, error) {
	n := strconv.Itoa(page)
	out, errb, err := d.backend.Runner.Run(ctx, d.backend.Pdftotext,
		"-f", n, "-l", n, "-layout", "-enc", "UTF-8", "-eol", "unix", d.path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, ocr.Truncate(string(errb), 512))
	}
	return string(out), nil
}

// RenderPage runs: pdftoppm -f N -l N -r DPI -png -singlefile <path> <dir>/page-N
func (d *popplerDoc) RenderPage(ctx context.Context, page, dpi int, dir string) (image.Image, error) {
	n := strconv.Itoa(page)
	prefix := filepath.Join(dir, "page-"+n)
	_, errb, err := d.backend.Runner.Run(ctx, d.backend.Pdftoppm,
		"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", "-singlefile", d.path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, ocr.Truncate(string(errb), 512))
	}
	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	img, _, err := imaging.Decode(data)
	return img, err
}

func (d *popplerDoc) PageImages(_ context.Context, page int) (imgs []EmbeddedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			imgs, err = nil, fmt.Errorf("extract images: %v", r)
		}
	}()
	found, err := pdfcpu.ExtractPageImages(d.pctx, page, false)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}
	objNrs := make([]int, 0, len(found))
	for nr := range found {
		objNrs = append(objNrs, nr)
	}
	slices.Sort(objNrs)
	for _, nr := range objNrs {
		im := found[nr]
		if im.Reader == nil {
			continue
		}
		data, err := io.ReadAll(im)
		if err != nil {
			return imgs, fmt.Errorf("read image %s: %w", im.Name, err)
		}
		imgs = append(imgs, EmbeddedImage{Name: im.Name, Type: im.FileType, Data: data})
	}
	return imgs, nil
}

func (d *popplerDoc) Close() error { return nil }

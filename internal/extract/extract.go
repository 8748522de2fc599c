// Package extract turns a document of any supported format into plain text,
// one strategy per format variant.
package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/ocr"
)

// Source is a document to process: a path, in-memory bytes, or both.
type Source struct {
	ID   string
	Path string
	Data []byte
	Ext  string // declared extension; taken from Path when empty
}

// Extension returns the declared extension without the dot.
func (s Source) Extension() string {
	if s.Ext != "" {
		return constants.NormalizeExt(s.Ext)
	}
	return constants.NormalizeExt(filepath.Ext(s.Path))
}

// Load returns a copy of s with Data read from Path when it was not supplied.
func (s Source) Load() (Source, error) {
	if s.Data != nil {
		return s, nil
	}
	if s.Path == "" {
		return s, common.InputDecodeError("source has neither path nor data", nil)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return s, common.InputDecodeError(fmt.Sprintf("read %s", s.Path), err)
	}
	s.Data = data
	return s, nil
}

type FragmentKind string

const (
	KindPlain         FragmentKind = "plain-text"
	KindImageOCR      FragmentKind = "image-ocr"
	KindPageText      FragmentKind = "page-text"
	KindPageOCR       FragmentKind = "page-ocr"
	KindEmbeddedImage FragmentKind = "embedded-image"
	KindParagraph     FragmentKind = "paragraph"
)

// Fragment is one piece of recovered text and where it came from.
type Fragment struct {
	Kind   FragmentKind `json:"kind"`
	Page   int          `json:"page,omitempty"`  // 1-based, PDFs only
	Index  int          `json:"index,omitempty"` // paragraph or image ordinal within its container
	Method string       `json:"method"`
	Text   string       `json:"text"`
}

type Result struct {
	SourceID  string
	Format    constants.Format
	Text      string
	Fragments []Fragment
	Pages     int
	Warnings  []common.Warning
	Duration  time.Duration
}

func (r *Result) add(f Fragment) {
	if strings.TrimSpace(f.Text) == "" {
		return
	}
	r.Fragments = append(r.Fragments, f)
}

func (r *Result) warn(w common.Warning) {
	r.Warnings = append(r.Warnings, w)
}

// join concatenates fragments in provenance order.
func (r *Result) join() {
	parts := make([]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		parts = append(parts, f.Text)
	}
	r.Text = strings.Join(parts, "\n")
}

// Strategy extracts text for exactly one format variant.
type Strategy interface {
	Format() constants.Format
	Extract(ctx context.Context, src Source) (*Result, error)
}

// Recognizer is the OCR sweep the raster paths delegate to.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (ocr.Outcome, error)
}

type Config struct {
	MinPageText int // embedded page text shorter than this is replaced by OCR; default 50
	RenderDPI   int // default 400
	PreviewDPI  int // default 150
	MaxPages    int // 0 = no limit
}

func (c Config) withDefaults() Config {
	if c.MinPageText <= 0 {
		c.MinPageText = 50
	}
	if c.RenderDPI <= 0 {
		c.RenderDPI = 400
	}
	if c.PreviewDPI <= 0 {
		c.PreviewDPI = 150
	}
	return c
}

// Dispatcher selects the strategy for a document once, at the boundary.
type Dispatcher struct {
	strategies map[constants.Format]Strategy
	logger     *slog.Logger
}

func NewDispatcher(logger *slog.Logger, strategies ...Strategy) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{strategies: make(map[constants.Format]Strategy, len(strategies)), logger: logger}
	for _, s := range strategies {
		d.strategies[s.Format()] = s
	}
	return d
}

// New wires the standard strategy set.
func New(cfg Config, rec Recognizer, pdf PDFBackend, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	raster := &rasterOCR{rec: rec}
	return NewDispatcher(logger,
		&ImageStrategy{raster: raster},
		&PDFStrategy{cfg: cfg, backend: pdf, raster: raster, logger: logger},
		&DocxStrategy{raster: raster},
		TextStrategy{},
	)
}

// Resolve maps an extension to a format this dispatcher can handle.
func (d *Dispatcher) Resolve(ext string) (constants.Format, error) {
	f := constants.MapExtToFormat(ext)
	if _, ok := d.strategies[f]; !ok || f == constants.UNKNOWN {
		return constants.UNKNOWN, common.UnsupportedFormatError(constants.NormalizeExt(ext))
	}
	return f, nil
}

// ExtractText runs the strategy for src's extension. Sub-step failures come
// back as warnings on the result; only unsupported or undecodable input errors.
func (d *Dispatcher) ExtractText(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()
	ext := src.Extension()
	format, err := d.Resolve(ext)
	if err != nil {
		d.logger.Error("unsupported extension", "extension", ext, "source", src.ID)
		return nil, err
	}
	src, err = src.Load()
	if err != nil {
		return nil, err
	}
	d.logger.Debug("starting text extraction", "source", src.ID, "format", format, "bytes", len(src.Data))

	res, err := d.strategies[format].Extract(ctx, src)
	if err != nil {
		d.logger.Error("text extraction failed", "source", src.ID, "format", format, "error", err)
		return nil, err
	}
	res.SourceID = src.ID
	res.Format = format
	res.join()
	res.Duration = time.Since(start)
	for _, w := range res.Warnings {
		d.logger.Warn("partial extraction failure", "source", src.ID, "code", w.Code, "at", w.Source, "message", w.Message)
	}
	d.logger.Info("text extracted",
		"source", src.ID,
		"format", format,
		"fragments", len(res.Fragments),
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

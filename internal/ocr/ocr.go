// Package ocr turns raster images into text by sweeping an OCR engine across
// page-segmentation modes and language hypotheses.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/imaging"
)

var (
	DefaultPSMModes  = []int{6, 3, 4, 1}
	DefaultLanguages = []string{"eng", "eng+fra", "eng+deu"}
)

// Attempt is one PSM x language combination.
type Attempt struct {
	PSM  int
	Lang string
}

func (a Attempt) String() string { return fmt.Sprintf("psm=%d lang=%s", a.PSM, a.Lang) }

// Sweep expands modes x languages in mode-major order.
func Sweep(modes []int, langs []string) []Attempt {
	out := make([]Attempt, 0, len(modes)*len(langs))
	for _, m := range modes {
		for _, l := range langs {
			out = append(out, Attempt{PSM: m, Lang: l})
		}
	}
	return out
}

// Input is the prepared image handed to an engine: a PNG on disk and the same bytes in memory.
type Input struct {
	Path string
	PNG  []byte
}

// Engine recognises text for one attempt.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input, a Attempt) (string, error)
}

type Config struct {
	PSMModes   []int
	Languages  []string
	Preprocess bool
	Options    imaging.PreprocessOptions
}

// Outcome is the winning hypothesis of a sweep.
type Outcome struct {
	Text     string
	Attempt  Attempt
	Engine   string
	Tried    int
	Failed   int
	Duration time.Duration
}

type Recognizer struct {
	engine     Engine
	attempts   []Attempt
	preprocess bool
	opts       imaging.PreprocessOptions
	logger     *slog.Logger
}

func NewRecognizer(engine Engine, cfg Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.PSMModes) == 0 {
		cfg.PSMModes = DefaultPSMModes
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages
	}
	if cfg.Options.BlockSize == 0 {
		cfg.Options = imaging.DefaultPreprocess
	}
	return &Recognizer{
		engine:     engine,
		attempts:   Sweep(cfg.PSMModes, cfg.Languages),
		preprocess: cfg.Preprocess,
		opts:       cfg.Options,
		logger:     logger,
	}
}

// Attempts returns the fixed sweep this recognizer runs per image.
func (r *Recognizer) Attempts() []Attempt { return append([]Attempt(nil), r.attempts...) }

// Recognize runs every attempt and keeps the text with the most non-whitespace
// characters; the earlier attempt wins a tie. Failed attempts are skipped. It
// errors only when no attempt succeeded. The scratch PNG is removed before return.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (Outcome, error) {
	start := time.Now()
	if r.preprocess {
		img = imaging.Preprocess(img, r.opts)
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Engine: r.engine.Name()}
	log := r.logger.With("document_id", common.DocumentIDFromContext(ctx))
	best := -1
	var errs []error
	err = common.WithTempDir("docverify-ocr-*", func(dir string) error {
		in := Input{Path: filepath.Join(dir, "input.png"), PNG: data}
		if err := os.WriteFile(in.Path, data, 0o600); err != nil {
			return fmt.Errorf("write ocr input: %w", err)
		}
		for _, a := range r.attempts {
			if err := ctx.Err(); err != nil {
				return err
			}
			out.Tried++
			txt, err := r.engine.Recognize(ctx, in, a)
			if err != nil {
				out.Failed++
				errs = append(errs, fmt.Errorf("%s: %w", a, err))
				log.Warn("ocr attempt failed", "engine", out.Engine, "attempt", a.String(), "error", err)
				continue
			}
			txt = Normalize(txt)
			if n := NonSpaceCount(txt); n > best {
				best = n
				out.Text = txt
				out.Attempt = a
			}
		}
		return nil
	})
	out.Duration = time.Since(start)
	if err != nil {
		return out, err
	}
	if best < 0 {
		return out, fmt.Errorf("all %d ocr attempts failed: %w", out.Tried, errors.Join(errs...))
	}
	log.Debug("ocr sweep done",
		"engine", out.Engine,
		"winner", out.Attempt.String(),
		"chars", best,
		"tried", out.Tried,
		"failed", out.Failed,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/match"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/ocr/tessclient"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
	"github.com/joseph-ayodele/docverify/internal/templates"
	"github.com/joseph-ayodele/docverify/internal/verify"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	store     *templates.Store
	processor *pipeline.Processor
}

func newEngine(cfg common.OCRConfig, runner ocr.Runner) (ocr.Engine, error) {
	switch cfg.Engine {
	case "", "cli":
		return ocr.NewTesseractCLI(cfg.Tesseract, cfg.TessdataDir, cfg.OEM, runner), nil
	case "gosseract":
		return tessclient.New(cfg.TessdataDir, nil), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown ocr engine %q", cfg.Engine), common.ErrInvalidInput)
	}
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	runner := ocr.ExecRunner{Logger: logger, Env: []string{"OMP_THREAD_LIMIT=1"}}
	engine, err := newEngine(cfg.OCR, runner)
	if err != nil {
		return nil, err
	}
	rec := ocr.NewRecognizer(engine, ocr.Config{
		PSMModes:   cfg.OCR.PSMModes,
		Languages:  cfg.OCR.Languages,
		Preprocess: cfg.OCR.Preprocess,
	}, logger)

	pdf := extract.NewPopplerBackend(cfg.OCR.Pdftotext, cfg.OCR.Pdftoppm, runner, logger)
	ecfg := extract.Config{
		MinPageText: cfg.Extract.MinPageText,
		RenderDPI:   cfg.Extract.RenderDPI,
		PreviewDPI:  cfg.Extract.PreviewDPI,
		MaxPages:    cfg.Extract.MaxPages,
	}
	dispatcher := extract.New(ecfg, rec, pdf, logger)
	previewer := extract.NewPreviewer(ecfg, pdf)

	store, err := templates.NewStore(ctx, templates.Options{
		Dir:          cfg.Templates.Dir,
		Manifest:     cfg.Templates.Manifest,
		MaxDimension: cfg.Match.MaxDimension,
		Renderer:     previewer,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	proc := pipeline.NewProcessor(logger, store, dispatcher, previewer, pipeline.Thresholds{
		MinMatchConfidence: cfg.Thresholds.MinMatchConfidence,
		MinGenuineness:     cfg.Thresholds.MinGenuineness,
		Verification:       cfg.Thresholds.Verification,
	})
	proc.Matcher = match.NewMatcher(cfg.Match.MaxDimension, logger)
	proc.Scorer = verify.NewScorer(verify.Config{
		Base:         cfg.Genuineness.Base,
		Penalty:      cfg.Genuineness.Penalty,
		KeywordBonus: cfg.Genuineness.KeywordBonus,
		BonusCap:     cfg.Genuineness.BonusCap,
		Indicators:   cfg.Genuineness.Indicators,
		Keywords:     cfg.Genuineness.Keywords,
	})
	proc.Workers = cfg.Workers

	logger.Debug("application wired", "config", cfg.String(), "ocr_attempts", len(rec.Attempts()))
	return &app{cfg: cfg, logger: logger, store: store, processor: proc}, nil
}

// setup loads config, installs the logger and wires the app for a command.
func setup(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, nil)
	slog.SetDefault(logger)
	return newApp(ctx, cfg, logger)
}

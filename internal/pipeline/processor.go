// Package pipeline classifies, extracts and verifies one document end to end.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/fields"
	"github.com/joseph-ayodele/docverify/internal/match"
	"github.com/joseph-ayodele/docverify/internal/templates"
	"github.com/joseph-ayodele/docverify/internal/verify"
)

// RegistrySource hands out the registry snapshot used for one document.
// *templates.Store and *templates.Registry both satisfy it.
type RegistrySource interface {
	Current() *templates.Registry
}

// Previewer renders the image a document is matched with.
type Previewer interface {
	Preview(ctx context.Context, src extract.Source) (image.Image, error)
}

// Document is one unit of work: a path, bytes, or both.
type Document struct {
	ID   string
	Path string
	Data []byte
	Ext  string
}

func (d Document) source() extract.Source {
	return extract.Source{ID: d.ID, Path: d.Path, Data: d.Data, Ext: d.Ext}
}

// Result is the final outcome. Rejections are results too; fields computed
// before the rejection are kept for diagnostics.
type Result struct {
	ID             string              `json:"id"`
	Source         string              `json:"source"`
	Format         constants.Format    `json:"format"`
	Match          match.MatchResult   `json:"match"`
	Text           string              `json:"text,omitempty"`
	Fragments      []extract.Fragment  `json:"fragments,omitempty"`
	Fields         fields.FieldMap     `json:"fields,omitempty"`
	FieldFillRatio float64             `json:"field_fill_ratio"`
	Genuineness    float64             `json:"genuineness_score"`
	Verification   verify.Verification `json:"verification"`
	IsGenuine      bool                `json:"is_genuine"`
	RequiredFields []string            `json:"required_fields,omitempty"`
	MissingFields  []string            `json:"missing_fields,omitempty"`
	Decision       constants.Decision  `json:"decision"`
	Reason         string              `json:"reason,omitempty"`
	Stages         []constants.Stage   `json:"stages"`
	Warnings       []common.Warning    `json:"warnings,omitempty"`
	Duration       time.Duration       `json:"duration"`
}

// Processor coordinates matching, extraction, field parsing and scoring.
type Processor struct {
	Logger     *slog.Logger
	Registry   RegistrySource
	Dispatcher *extract.Dispatcher
	Previewer  Previewer
	Matcher    *match.Matcher
	Scorer     *verify.Scorer
	Cleaner    *fields.Cleaner
	Thresholds Thresholds
	Workers    int // batch parallelism; <= 0 means runtime.NumCPU()
}

func NewProcessor(logger *slog.Logger, reg RegistrySource, dispatcher *extract.Dispatcher, previewer Previewer, th Thresholds) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:     logger,
		Registry:   reg,
		Dispatcher: dispatcher,
		Previewer:  previewer,
		Matcher:    match.NewMatcher(0, logger),
		Scorer:     verify.NewScorer(verify.DefaultConfig()),
		Cleaner:    fields.DefaultCleaner(),
		Thresholds: th,
	}
}

// Process runs one document through the gate. The error is non-nil only for
// fatal conditions: unsupported format, undecodable input or cancellation.
func (p *Processor) Process(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	ctx = common.WithDocumentID(ctx, doc.ID)
	src := doc.source()
	res := &Result{ID: doc.ID, Source: doc.Path}
	if res.Source == "" {
		res.Source = doc.ID
	}
	log := p.Logger.With("document_id", doc.ID, "source", res.Source)

	format, err := p.Dispatcher.Resolve(src.Extension())
	if err != nil {
		log.Error("pipeline.unsupported", "extension", src.Extension(), "error", err)
		return nil, err
	}
	res.Format = format
	if src, err = src.Load(); err != nil {
		log.Error("pipeline.unreadable", "error", err)
		return nil, err
	}

	reg := p.Registry.Current()
	gate := NewGate(p.Thresholds)
	defer func() { res.Duration = time.Since(start) }()

	// Documents without a raster view are classified from their text, which
	// therefore has to be extracted first.
	var extracted *extract.Result
	img, err := p.Previewer.Preview(ctx, src)
	switch {
	case err == nil:
		res.Match = p.Matcher.MatchDocument(reg, img)
	case errors.Is(err, extract.ErrNoPreview):
		if extracted, err = p.extract(ctx, src, log); err != nil {
			return nil, err
		}
		res.Match = p.Matcher.MatchText(reg, extracted.Text)
	default:
		log.Error("pipeline.preview.failed", "error", err)
		return nil, err
	}
	log.Info("pipeline.matched", "template", res.Match.TemplateID, "confidence", res.Match.Confidence, "method", res.Match.Method)
	if err := gate.Matched(res.Match.Confidence); err != nil {
		return nil, err
	}
	if gate.Done() {
		if res.Match.Known() {
			res.RequiredFields = p.schemaFor(reg, res.Match).Required
		}
		return p.finish(res, gate, log), nil
	}

	if extracted == nil {
		if extracted, err = p.extract(ctx, src, log); err != nil {
			return nil, err
		}
	}
	res.Text = extracted.Text
	res.Fragments = extracted.Fragments
	res.Warnings = append(res.Warnings, extracted.Warnings...)
	if err := gate.TextExtracted(); err != nil {
		return nil, err
	}

	schema := p.schemaFor(reg, res.Match)
	extractor := fields.NewExtractor(p.Cleaner.With(reg.Noise()...))
	res.Fields = extractor.ExtractFields(schema.Table, res.Text)
	res.RequiredFields = schema.Required
	res.FieldFillRatio = verify.VerifyExtractedInfo(res.Fields)
	if err := gate.FieldsExtracted(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Genuineness = p.Scorer.ScoreGenuineness(res.Text)
	if err := gate.GenuinenessChecked(res.Genuineness); err != nil {
		return nil, err
	}
	if gate.Done() {
		res.MissingFields = missing(res.Fields, schema.Required)
		return p.finish(res, gate, log), nil
	}

	res.Verification = verify.VerifyDocument(res.Fields, schema.Required, p.Thresholds.Verification)
	res.MissingFields = res.Verification.MissingFields
	res.IsGenuine = res.Verification.IsGenuine
	if err := gate.VerificationChecked(res.Verification.Score); err != nil {
		return nil, err
	}
	return p.finish(res, gate, log), nil
}

func (p *Processor) extract(ctx context.Context, src extract.Source, log *slog.Logger) (*extract.Result, error) {
	out, err := p.Dispatcher.ExtractText(ctx, src)
	if err != nil {
		log.Error("pipeline.extract.failed", "error", err)
		return nil, err
	}
	return out, nil
}

// schemaFor uses the matched template's rules, falling back to the default
// table of its category (or the generic identity table).
func (p *Processor) schemaFor(reg *templates.Registry, m match.MatchResult) fields.Schema {
	if t, ok := reg.Lookup(m.TemplateID); ok && len(t.Rules) > 0 {
		return fields.Schema{Table: t.Rules, Required: t.Required, Optional: t.Optional}
	}
	return fields.Default(m.Category)
}

func (p *Processor) finish(res *Result, gate *Gate, log *slog.Logger) *Result {
	res.Decision, res.Reason = gate.Decision()
	res.Stages = gate.Trail()
	if res.Decision.Accepted() {
		log.Info("pipeline.accepted",
			"template", res.Match.TemplateID,
			"genuineness", res.Genuineness,
			"verification", res.Verification.Score,
			"fields", len(res.Fields),
		)
	} else {
		log.Info("pipeline.rejected", "decision", res.Decision, "reason", res.Reason)
	}
	return res
}

func missing(m fields.FieldMap, required []string) []string {
	var out []string
	for _, name := range required {
		if _, ok := m[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

package templates

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/fields"
	"github.com/joseph-ayodele/docverify/internal/imaging"
)

// Renderer turns a reference file into the image used for correlation.
// extract.Previewer implements it.
type Renderer interface {
	Preview(ctx context.Context, src extract.Source) (image.Image, error)
}

type Options struct {
	Dir          string
	Manifest     string // file name inside Dir; DefaultManifest when empty
	MaxDimension int    // reference images are downscaled to fit; 0 keeps full size
	Renderer     Renderer
	Logger       *slog.Logger
}

const samplePrefix = "sample_"

// categoryKeywords classify documents that have no raster view.
var categoryKeywords = map[constants.Category][]string{
	constants.AadhaarCard: {"aadhaar", "aadhar", "uid", "unique identification"},
	constants.PanCard:     {"pan", "permanent account", "income tax"},
	constants.License:     {"driving", "license", "licence", "vehicle"},
	constants.Passport:    {"passport", "travel", "nationality"},
	constants.SSN:         {"social security", "ssn"},
	constants.Identity:    {"identity", "identification", "id card"},
}

// Load builds a registry from opts.Dir. A manifest, when present, lists the
// templates in registration order; otherwise every sample_<type>.<ext> file is
// registered in lexical order. Individual bad templates are skipped and
// reported as warnings. Load fails only when the directory or the manifest as a
// whole cannot be read.
func Load(ctx context.Context, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Manifest == "" {
		opts.Manifest = DefaultManifest
	}
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, common.NewAppError(common.CodeTemplateLoad, "read template directory", fmt.Errorf("%w: %w", common.ErrTemplateLoad, err))
	}
	if !info.IsDir() {
		return nil, common.NewAppError(common.CodeTemplateLoad, fmt.Sprintf("%s is not a directory", opts.Dir), common.ErrTemplateLoad)
	}

	l := &loader{opts: opts, logger: logger, reg: &Registry{byID: map[string]int{}, loadedAt: time.Now()}}
	manifestPath := filepath.Join(opts.Dir, opts.Manifest)
	data, err := os.ReadFile(manifestPath)
	switch {
	case err == nil:
		if err := l.fromManifest(ctx, data); err != nil {
			return nil, common.NewAppError(common.CodeTemplateLoad, manifestPath, fmt.Errorf("%w: %w", common.ErrTemplateLoad, err))
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := l.discover(ctx); err != nil {
			return nil, common.NewAppError(common.CodeTemplateLoad, "scan template directory", fmt.Errorf("%w: %w", common.ErrTemplateLoad, err))
		}
	default:
		return nil, common.NewAppError(common.CodeTemplateLoad, manifestPath, fmt.Errorf("%w: %w", common.ErrTemplateLoad, err))
	}

	for _, w := range l.reg.warnings {
		logger.Warn("template skipped", "template", w.Source, "error", w.Message)
	}
	logger.Info("template registry loaded",
		"dir", opts.Dir,
		"source", l.reg.source,
		"templates", l.reg.Len(),
		"skipped", len(l.reg.warnings),
	)
	return l.reg, nil
}

type loader struct {
	opts   Options
	logger *slog.Logger
	reg    *Registry
}

func (l *loader) fromManifest(ctx context.Context, data []byte) error {
	m, err := parseManifest(data)
	if err != nil {
		return err
	}
	l.reg.source = "manifest"
	for i, n := range m.Noise {
		rule, err := fields.NewNoiseRule(n.Pattern, n.Replace)
		if err != nil {
			l.reg.warn(fmt.Sprintf("noise[%d]", i), err)
			continue
		}
		l.reg.noise = append(l.reg.noise, rule)
	}
	for i, raw := range m.Templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := fmt.Sprintf("templates[%d]", i)
		e, err := decodeEntry(raw)
		if err != nil {
			l.reg.warn(src, err)
			continue
		}
		t, err := l.fromEntry(ctx, e)
		if err != nil {
			l.reg.warn(e.ID, err)
			continue
		}
		l.reg.add(t)
	}
	return nil
}

func (l *loader) fromEntry(ctx context.Context, e manifestEntry) (Template, error) {
	cat, ok := constants.Canonicalize(e.Category)
	if !ok {
		return Template{}, fmt.Errorf("unknown category %q", e.Category)
	}
	t := Template{
		ID:        e.ID,
		Category:  cat,
		Reference: e.Reference,
		Keywords:  e.Keywords,
		Required:  e.Required,
		Optional:  e.Optional,
	}
	if !filepath.IsAbs(t.Reference) {
		t.Reference = filepath.Join(l.opts.Dir, t.Reference)
	}
	if len(e.Fields) == 0 {
		def := fields.Default(cat)
		t.Rules = def.Table
		if t.Required == nil {
			t.Required = def.Required
		}
		if t.Optional == nil {
			t.Optional = def.Optional
		}
	} else {
		for _, f := range e.Fields {
			rule, err := fields.NewRule(f.Name, f.Patterns...)
			if err != nil {
				return Template{}, err
			}
			t.Rules = append(t.Rules, rule)
		}
	}
	if len(t.Keywords) == 0 {
		t.Keywords = categoryKeywords[cat]
	}
	img, err := l.render(ctx, t.Reference)
	if err != nil {
		return Template{}, err
	}
	t.Image = img
	return t, nil
}

func (l *loader) discover(ctx context.Context) error {
	entries, err := os.ReadDir(l.opts.Dir)
	if err != nil {
		return err
	}
	l.reg.source = "discovery"
	names := make([]string, 0, len(entries))
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(strings.ToLower(name), samplePrefix) {
			continue
		}
		if !constants.IsSupportedExt(filepath.Ext(name)) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		id := strings.ToLower(stem[len(samplePrefix):])
		cat, ok := constants.Canonicalize(id)
		if !ok {
			l.reg.warn(name, fmt.Errorf("cannot infer a category from %q", id))
			continue
		}
		def := fields.Default(cat)
		t := Template{
			ID:        id,
			Category:  cat,
			Reference: filepath.Join(l.opts.Dir, name),
			Keywords:  categoryKeywords[cat],
			Rules:     def.Table,
			Required:  def.Required,
			Optional:  def.Optional,
		}
		img, err := l.render(ctx, t.Reference)
		if err != nil {
			l.reg.warn(name, err)
			continue
		}
		t.Image = img
		l.reg.add(t)
	}
	return nil
}

// render returns nil without error when the reference has no raster view;
// such templates only take part in keyword classification.
func (l *loader) render(ctx context.Context, path string) (*image.Gray, error) {
	if l.opts.Renderer == nil {
		return nil, nil
	}
	img, err := l.opts.Renderer.Preview(ctx, extract.Source{ID: path, Path: path})
	if errors.Is(err, extract.ErrNoPreview) {
		l.logger.Debug("template reference has no raster view", "reference", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("render reference %s: %w", filepath.Base(path), err)
	}
	g := imaging.FitWithin(imaging.ToGray(img), l.opts.MaxDimension)
	if g.Bounds().Empty() {
		return nil, fmt.Errorf("reference %s renders to an empty image", filepath.Base(path))
	}
	return g, nil
}

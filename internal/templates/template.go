// Package templates holds the reference-template registry used for classification.
package templates

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/fields"
)

// Template is a reference document tied to a category. Values handed out by a
// Registry share their slices and image with it and must be treated as read-only.
type Template struct {
	ID        string
	Category  constants.Category
	Reference string      // path of the reference file
	Image     *image.Gray // nil when the reference has no raster view
	Keywords  []string
	Rules     fields.Table
	Required  []string
	Optional  []string
}

// HasImage reports whether the template can take part in image correlation.
func (t Template) HasImage() bool {
	return t.Image != nil && !t.Image.Bounds().Empty()
}

func (t Template) validate() error {
	switch {
	case t.ID == "":
		return errors.New("template id is empty")
	case t.Image != nil && t.Image.Bounds().Empty():
		return fmt.Errorf("template %q has an empty reference image", t.ID)
	}
	return nil
}

// Registry is an immutable, ordered set of templates. Order is registration
// order and decides ties during matching.
type Registry struct {
	templates []Template
	byID      map[string]int
	noise     []fields.NoiseRule
	warnings  []common.Warning
	source    string
	loadedAt  time.Time
}

// NewRegistry registers templates in the given order. Entries with an empty id,
// an empty image, or an id that is already taken are skipped and reported in
// Warnings.
func NewRegistry(templates ...Template) *Registry {
	r := &Registry{
		byID:     make(map[string]int, len(templates)),
		source:   "memory",
		loadedAt: time.Now(),
	}
	for _, t := range templates {
		r.add(t)
	}
	return r
}

func (r *Registry) add(t Template) bool {
	if err := t.validate(); err != nil {
		r.warn(t.ID, err)
		return false
	}
	if _, dup := r.byID[t.ID]; dup {
		r.warn(t.ID, fmt.Errorf("duplicate template id %q", t.ID))
		return false
	}
	r.byID[t.ID] = len(r.templates)
	r.templates = append(r.templates, t)
	return true
}

func (r *Registry) warn(source string, err error) {
	r.warnings = append(r.warnings, common.TemplateWarning(source, fmt.Errorf("%w: %w", common.ErrTemplateLoad, err)))
}

// Templates returns the templates in registration order.
func (r *Registry) Templates() []Template {
	if r == nil {
		return nil
	}
	out := make([]Template, len(r.templates))
	copy(out, r.templates)
	return out
}

func (r *Registry) Lookup(id string) (Template, bool) {
	if r == nil {
		return Template{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return Template{}, false
	}
	return r.templates[i], true
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.templates)
}

// Noise returns extra cleaning rules declared by the manifest.
func (r *Registry) Noise() []fields.NoiseRule {
	if r == nil {
		return nil
	}
	return r.noise
}

// Warnings lists the templates skipped while the registry was built.
func (r *Registry) Warnings() []common.Warning {
	if r == nil {
		return nil
	}
	return r.warnings
}

// Source is "manifest", "discovery" or "memory".
func (r *Registry) Source() string      { return r.source }
func (r *Registry) LoadedAt() time.Time { return r.loadedAt }

// Current lets a fixed registry stand in wherever a Store is expected.
func (r *Registry) Current() *Registry { return r }

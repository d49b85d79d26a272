package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/gobwas/glob"
	"github.com/vcaesar/imgo"
)

// DefaultThreshold is the confidence a template must reach when no
// per-template threshold is configured.
const DefaultThreshold = 0.9

// Template is a named reference image. It is immutable once built.
type Template struct {
	Name      string
	Path      string
	Threshold float64
	raster    *Raster
}

// NewTemplate prepares img for matching. A threshold outside (0, 1]
// falls back to DefaultThreshold.
func NewTemplate(name string, img image.Image, threshold float64) *Template {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Template{
		Name:      name,
		Threshold: threshold,
		raster:    NewRaster(img),
	}
}

// Size returns the template dimensions.
func (t *Template) Size() image.Point {
	return image.Pt(t.raster.W, t.raster.H)
}

// Image returns the reference image.
func (t *Template) Image() image.Image {
	return t.raster.Source()
}

// LoadOptions controls which files LoadLibrary reads.
type LoadOptions struct {
	// Dir holds the template images.
	Dir string
	// Include lists glob patterns matched against file names. Empty means "*.png".
	Include []string
	// DefaultThreshold applies to templates without an override.
	DefaultThreshold float64
	// Thresholds overrides the threshold per template name.
	Thresholds map[string]float64
	// Required names must exist after loading; absent ones are reported
	// once as missing.
	Required []string
}

// Library holds the templates available to a Classifier. Names are file
// names without extension ("templates/shiny.png" is "shiny").
// A Library is safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	templates map[string]*Template
	failed    map[string]error
	threshold float64
}

// NewLibrary returns an empty library.
func NewLibrary(defaultThreshold float64) *Library {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = DefaultThreshold
	}
	return &Library{
		templates: make(map[string]*Template),
		failed:    make(map[string]error),
		threshold: defaultThreshold,
	}
}

// LoadLibrary reads every matching image in opts.Dir. Unreadable images
// and required names with no file are logged once as warnings and recorded
// as failed; they never abort loading. Only an unreadable directory or a
// bad glob pattern is returned as an error.
func LoadLibrary(opts LoadOptions, logger *logging.Logger) (*Library, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	lib := NewLibrary(opts.DefaultThreshold)

	patterns := opts.Include
	if len(patterns) == 0 {
		patterns = []string{"*.png"}
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid template pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !matchesAny(globs, entry.Name()) {
			continue
		}
		path := filepath.Join(opts.Dir, entry.Name())
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		img, err := imgo.Read(path)
		if err != nil {
			terr := errors.NewTemplateError(name, err).WithPath(path)
			lib.markFailed(name, terr)
			logger.Warn("template failed to load", "template", name, "path", path, "error", err.Error())
			continue
		}

		threshold := lib.threshold
		if t, ok := opts.Thresholds[name]; ok {
			threshold = t
		}
		tmpl := NewTemplate(name, img, threshold)
		tmpl.Path = path
		lib.put(tmpl)
		logger.Debug("template loaded", "template", name, "width", tmpl.raster.W, "height", tmpl.raster.H, "threshold", tmpl.Threshold)
	}

	for _, name := range opts.Required {
		if _, err := lib.Get(name); err != nil {
			if !lib.hasFailure(name) {
				lib.markFailed(name, errors.NewTemplateError(name, os.ErrNotExist).WithPath(opts.Dir))
				logger.Warn("template not found", "template", name, "dir", opts.Dir)
			}
		}
	}

	return lib, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Add builds a template from img and stores it, replacing any previous
// template or failure with the same name. A threshold of 0 uses the
// library default.
func (l *Library) Add(name string, img image.Image, threshold float64) *Template {
	if threshold == 0 {
		threshold = l.threshold
	}
	tmpl := NewTemplate(name, img, threshold)
	l.put(tmpl)
	return tmpl
}

func (l *Library) put(t *Template) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[t.Name] = t
	delete(l.failed, t.Name)
}

func (l *Library) markFailed(name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[name] = err
}

func (l *Library) hasFailure(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.failed[name]
	return ok
}

// Get returns the named template. The error is a *errors.TemplateError
// matching errors.ErrTemplateMissing when the template is absent or failed
// to load.
func (l *Library) Get(name string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if t, ok := l.templates[name]; ok {
		return t, nil
	}
	if err, ok := l.failed[name]; ok {
		return nil, err
	}
	return nil, errors.NewTemplateError(name, os.ErrNotExist)
}

// Names returns the loaded template names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Failed returns a copy of the load failures keyed by template name.
func (l *Library) Failed() map[string]error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]error, len(l.failed))
	for k, v := range l.failed {
		out[k] = v
	}
	return out
}

// DefaultThreshold returns the threshold used for templates without an override.
func (l *Library) DefaultThreshold() float64 {
	return l.threshold
}

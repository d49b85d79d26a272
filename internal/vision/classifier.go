package vision

import (
	"fmt"
	"image"
	"sync"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
)

// matchEpsilon absorbs float error so a frame identical to its template
// matches even at threshold 1.
const matchEpsilon = 1e-9

// Outcome is the result of scanning an encounter screen.
type Outcome int

const (
	// NotDetected means no candidate reached its threshold.
	NotDetected Outcome = iota
	// OrdinaryMatch means the ordinary variant is on screen.
	OrdinaryMatch
	// RareMatch means the rare variant is on screen.
	RareMatch
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case NotDetected:
		return "not_detected"
	case OrdinaryMatch:
		return "ordinary"
	case RareMatch:
		return "rare"
	default:
		return "unknown"
	}
}

// Result is a single classification. It is produced fresh on every call.
type Result struct {
	Template   string
	Matched    bool
	Confidence float64
	Location   image.Point
}

// Candidate pairs an outcome with the template that signals it.
type Candidate struct {
	Outcome  Outcome
	Template string
	// Threshold overrides the template's own threshold when > 0.
	Threshold float64
}

// Classifier scores frames against a Library. Classification is a pure
// function of the frame and the loaded templates; the only state is the
// set of unusable templates already reported.
type Classifier struct {
	lib     *Library
	matcher Matcher
	logger  *logging.Logger

	mu        sync.Mutex
	warned    map[string]bool
	oversized map[string]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMatcher replaces the default NCC backend.
func WithMatcher(m Matcher) Option {
	return func(c *Classifier) {
		if m != nil {
			c.matcher = m
		}
	}
}

// WithLogger sets the logger used for missing-template warnings.
func WithLogger(l *logging.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClassifier creates a Classifier over lib.
func NewClassifier(lib *Library, opts ...Option) *Classifier {
	c := &Classifier{
		lib:     lib,
		matcher: NCCMatcher{},
		logger:  logging.NopLogger(),
		warned:    make(map[string]bool),
		oversized: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	// LoadLibrary already reported these.
	if lib != nil {
		for name := range lib.Failed() {
			c.warned[name] = true
		}
	}
	return c
}

// Library returns the classifier's template library.
func (c *Classifier) Library() *Library {
	return c.lib
}

// Matcher returns the scoring backend.
func (c *Classifier) Matcher() Matcher {
	return c.matcher
}

// IsPresent reports whether the named template appears in frame with a
// confidence of at least threshold. A threshold <= 0 uses the template's
// own threshold. A nil frame or unknown template reports false.
func (c *Classifier) IsPresent(frame image.Image, name string, threshold float64) bool {
	if frame == nil {
		return false
	}
	tmpl := c.template(name)
	if tmpl == nil {
		return false
	}
	if threshold <= 0 {
		threshold = tmpl.Threshold
	}
	conf, _ := c.match(NewRaster(frame), tmpl)
	return reaches(conf, threshold)
}

// Classify returns the raw confidence and best-match location for the
// named template, with Matched judged against the template's threshold.
func (c *Classifier) Classify(frame image.Image, name string) Result {
	if frame == nil {
		return Result{Template: name}
	}
	return c.classifyRaster(NewRaster(frame), name, 0)
}

// ClassifyAll scores frame against every loaded template, in name order.
func (c *Classifier) ClassifyAll(frame image.Image) []Result {
	names := c.lib.Names()
	results := make([]Result, 0, len(names))
	if frame == nil {
		for _, name := range names {
			results = append(results, Result{Template: name})
		}
		return results
	}
	r := NewRaster(frame)
	for _, name := range names {
		results = append(results, c.classifyRaster(r, name, 0))
	}
	return results
}

// ScanForOutcome evaluates candidates in order and returns the first whose
// confidence reaches its threshold. Order is the tie-break: list the rare
// variant first. With no match it returns NotDetected and the highest
// scoring result seen, for logging.
func (c *Classifier) ScanForOutcome(frame image.Image, candidates []Candidate) (Outcome, Result) {
	if frame == nil {
		return NotDetected, Result{}
	}

	r := NewRaster(frame)
	var best Result
	for i, cand := range candidates {
		res := c.classifyRaster(r, cand.Template, cand.Threshold)
		if res.Matched {
			return cand.Outcome, res
		}
		if i == 0 || res.Confidence > best.Confidence {
			best = res
		}
	}
	return NotDetected, best
}

func (c *Classifier) classifyRaster(r *Raster, name string, threshold float64) Result {
	res := Result{Template: name}
	tmpl := c.template(name)
	if tmpl == nil {
		return res
	}
	if threshold <= 0 {
		threshold = tmpl.Threshold
	}
	res.Confidence, res.Location = c.match(r, tmpl)
	res.Matched = reaches(res.Confidence, threshold)
	return res
}

// match scores tmpl against r. A template larger than the frame scores 0
// and is reported once.
func (c *Classifier) match(r *Raster, tmpl *Template) (float64, image.Point) {
	if tmpl.raster.W > r.W || tmpl.raster.H > r.H {
		c.mu.Lock()
		first := !c.oversized[tmpl.Name]
		c.oversized[tmpl.Name] = true
		c.mu.Unlock()

		if first {
			err := fmt.Errorf("%w: template %dx%d, frame %dx%d",
				errors.ErrTemplateTooLarge, tmpl.raster.W, tmpl.raster.H, r.W, r.H)
			c.logger.Warn("template cannot match this frame", "template", tmpl.Name, "error", err.Error())
		}
		return 0, image.Point{}
	}
	return c.matcher.Match(r, tmpl.raster)
}

// template looks up name, warning once if it is unavailable.
func (c *Classifier) template(name string) *Template {
	tmpl, err := c.lib.Get(name)
	if err == nil {
		return tmpl
	}

	c.mu.Lock()
	first := !c.warned[name]
	c.warned[name] = true
	c.mu.Unlock()

	if first {
		c.logger.Warn("template unavailable, it will never match", "template", name, "error", err.Error())
	}
	return nil
}

func reaches(confidence, threshold float64) bool {
	return confidence+matchEpsilon >= threshold
}

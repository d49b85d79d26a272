package vision

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// Matcher scores every placement of tmpl inside frame and returns the best
// confidence with the top-left corner where it occurred. A template larger
// than the frame scores 0.
type Matcher interface {
	Match(frame, tmpl *Raster) (confidence float64, location image.Point)
}

// DefaultStride is the coarse grid step used when none is configured.
const DefaultStride = 4

// NCCMatcher is the pure-Go zero-mean normalized cross correlation matcher.
type NCCMatcher struct {
	// Stride > 1 scores a coarse grid first and then refines around the
	// best coarse hit. 0 or 1 scores every placement.
	Stride int
	// Workers bounds the goroutines scoring rows in parallel. 0 uses
	// GOMAXPROCS.
	Workers int
}

// minParallelPlacements is the grid size below which scoring stays on the
// calling goroutine.
const minParallelPlacements = 4096

// hit is the best placement seen by one scan.
type hit struct {
	score float64
	at    image.Point
}

var noHit = hit{score: math.Inf(-1)}

// Match implements Matcher.
func (m NCCMatcher) Match(frame, tmpl *Raster) (float64, image.Point) {
	if frame == nil || tmpl == nil || tmpl.W == 0 || tmpl.H == 0 ||
		tmpl.W > frame.W || tmpl.H > frame.H {
		return 0, image.Point{}
	}

	p := newPlacementScorer(frame, tmpl)
	maxX, maxY := frame.W-tmpl.W, frame.H-tmpl.H
	stride := max(m.Stride, 1)
	workers := m.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	best := p.scan(image.Rect(0, 0, maxX, maxY), stride, workers)
	if stride > 1 {
		c := best.at
		area := image.Rect(max(0, c.X-stride+1), max(0, c.Y-stride+1),
			min(maxX, c.X+stride-1), min(maxY, c.Y+stride-1))
		if refined := p.scan(area, 1, workers); refined.score > best.score {
			best = refined
		}
	}

	return clampUnit(best.score), best.at
}

// scan scores the placements of area (inclusive bounds) on a grid of step,
// splitting rows into bands across workers. Ties keep the first placement in
// row-major order.
func (p *placementScorer) scan(area image.Rectangle, step, workers int) hit {
	rows := (area.Max.Y-area.Min.Y)/step + 1
	cols := (area.Max.X-area.Min.X)/step + 1
	workers = min(workers, rows)
	if workers <= 1 || rows*cols < minParallelPlacements {
		return p.scanRows(area, step, area.Min.Y, area.Max.Y)
	}

	perBand := (rows + workers - 1) / workers
	bands := make([]hit, workers)
	wp := pool.New().WithMaxGoroutines(workers)
	for i := range bands {
		first := area.Min.Y + i*perBand*step
		if first > area.Max.Y {
			bands[i] = noHit
			continue
		}
		last := min(area.Max.Y, first+(perBand-1)*step)
		wp.Go(func() {
			bands[i] = p.scanRows(area, step, first, last)
		})
	}
	wp.Wait()

	best := noHit
	for _, b := range bands {
		if b.score > best.score {
			best = b
		}
	}
	return best
}

func (p *placementScorer) scanRows(area image.Rectangle, step, y0, y1 int) hit {
	best := noHit
	for y := y0; y <= y1; y += step {
		for x := area.Min.X; x <= area.Max.X; x += step {
			if s := p.score(x, y); s > best.score {
				best = hit{score: s, at: image.Pt(x, y)}
			}
		}
	}
	return best
}

// placementScorer holds the per-call precomputation: the zero-mean template
// and summed-area tables of the frame for O(1) window statistics.
type placementScorer struct {
	frame *Raster
	tw    int
	th    int
	n     float64

	tz     []float64 // template minus its per-channel mean
	tMean  [channels]float64
	tNorm  float64 // sum of tz^2 over all channels
	tFlat  bool
	stride int // summed-area table row width (frame.W + 1)
	sum    [channels][]float64
	sq     [channels][]float64
}

func newPlacementScorer(frame, tmpl *Raster) *placementScorer {
	n := tmpl.W * tmpl.H
	p := &placementScorer{
		frame:  frame,
		tw:     tmpl.W,
		th:     tmpl.H,
		n:      float64(n),
		tz:     make([]float64, len(tmpl.Pix)),
		stride: frame.W + 1,
	}

	for i, v := range tmpl.Pix {
		p.tMean[i%channels] += v
	}
	for c := range p.tMean {
		p.tMean[c] /= p.n
	}
	for i, v := range tmpl.Pix {
		d := v - p.tMean[i%channels]
		p.tz[i] = d
		p.tNorm += d * d
	}
	p.tFlat = p.tNorm <= flatEpsilon*p.n

	size := (frame.W + 1) * (frame.H + 1)
	for c := 0; c < channels; c++ {
		sum := make([]float64, size)
		sq := make([]float64, size)
		for y := 0; y < frame.H; y++ {
			var rowSum, rowSq float64
			for x := 0; x < frame.W; x++ {
				v := frame.Pix[(y*frame.W+x)*channels+c]
				rowSum += v
				rowSq += v * v
				i := (y+1)*p.stride + x + 1
				sum[i] = sum[i-p.stride] + rowSum
				sq[i] = sq[i-p.stride] + rowSq
			}
		}
		p.sum[c], p.sq[c] = sum, sq
	}
	return p
}

// flatEpsilon is the per-pixel variance below which a patch counts as flat.
const flatEpsilon = 1e-6

func (p *placementScorer) rect(table []float64, x, y int) float64 {
	s := p.stride
	x1, y1 := x+p.tw, y+p.th
	return table[y1*s+x1] - table[y*s+x1] - table[y1*s+x] + table[y*s+x]
}

func (p *placementScorer) score(x, y int) float64 {
	var wVar float64
	var wMean [channels]float64
	for c := 0; c < channels; c++ {
		s := p.rect(p.sum[c], x, y)
		wMean[c] = s / p.n
		wVar += p.rect(p.sq[c], x, y) - s*s/p.n
	}
	wFlat := wVar <= flatEpsilon*p.n

	switch {
	case p.tFlat && wFlat:
		for c := range wMean {
			if math.Abs(wMean[c]-p.tMean[c]) >= 0.5 {
				return 0
			}
		}
		return 1
	case p.tFlat || wFlat:
		return 0
	}

	var num float64
	fw := p.frame.W
	for ty := 0; ty < p.th; ty++ {
		frow := ((y+ty)*fw + x) * channels
		trow := ty * p.tw * channels
		for i := 0; i < p.tw*channels; i++ {
			num += p.tz[trow+i] * p.frame.Pix[frow+i]
		}
	}
	return num / math.Sqrt(p.tNorm*wVar)
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsInf(v, -1) || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// MatcherOptions tunes the backend built by NewMatcher. Backends ignore
// the options they have no use for.
type MatcherOptions struct {
	// Stride is the coarse grid step of the NCC matcher.
	Stride int
}

// Matcher registry. Backends behind build tags register themselves in init.
var (
	matchersMu sync.RWMutex
	matchers   = map[string]func(MatcherOptions) Matcher{
		"ncc": func(opts MatcherOptions) Matcher { return NCCMatcher{Stride: opts.Stride} },
	}
)

// RegisterMatcher makes a backend selectable by name.
func RegisterMatcher(name string, factory func(MatcherOptions) Matcher) {
	matchersMu.Lock()
	defer matchersMu.Unlock()
	matchers[name] = factory
}

// NewMatcher returns the backend registered under name, configured with
// opts. An empty name selects "ncc".
func NewMatcher(name string, opts MatcherOptions) (Matcher, error) {
	if name == "" {
		name = "ncc"
	}
	matchersMu.RLock()
	factory, ok := matchers[name]
	matchersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown matcher %q (available: %v)", name, MatcherNames())
	}
	return factory(opts), nil
}

// MatcherNames lists the registered backends in sorted order.
func MatcherNames() []string {
	matchersMu.RLock()
	defer matchersMu.RUnlock()
	names := make([]string, 0, len(matchers))
	for name := range matchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

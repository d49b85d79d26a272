//go:build gocv

package vision

import (
	"image"

	"gocv.io/x/gocv"
)

func init() {
	RegisterMatcher("gocv", func(MatcherOptions) Matcher { return CVMatcher{} })
}

// CVMatcher scores placements with OpenCV's matchTemplate (TM_CCOEFF_NORMED).
// It needs OpenCV installed and the binary built with -tags gocv.
type CVMatcher struct{}

// Match implements Matcher.
func (CVMatcher) Match(frame, tmpl *Raster) (float64, image.Point) {
	if frame == nil || tmpl == nil || tmpl.W == 0 || tmpl.H == 0 ||
		tmpl.W > frame.W || tmpl.H > frame.H {
		return 0, image.Point{}
	}

	src, err := gocv.ImageToMatRGB(frame.Source())
	if err != nil {
		return 0, image.Point{}
	}
	defer src.Close()

	ref, err := gocv.ImageToMatRGB(tmpl.Source())
	if err != nil {
		return 0, image.Point{}
	}
	defer ref.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(src, ref, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	return clampUnit(float64(maxVal)), maxLoc
}

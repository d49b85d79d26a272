package vision

import (
	"image"
	"image/color"
)

// channels is the number of colour planes compared during matching.
const channels = 3

// Raster is an RGB float copy of an image prepared for matching.
// Pixel (x, y) channel c lives at Pix[(y*W+x)*3+c], values in [0, 255].
type Raster struct {
	W, H int
	Pix  []float64
	src  image.Image
}

// NewRaster converts img to a Raster. Alpha is ignored; the original is
// kept for backends that work on image.Image directly.
func NewRaster(img image.Image) *Raster {
	b := img.Bounds()
	r := &Raster{
		W:   b.Dx(),
		H:   b.Dy(),
		Pix: make([]float64, b.Dx()*b.Dy()*channels),
		src: img,
	}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < r.H; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < r.W; x++ {
				i := (y*r.W + x) * channels
				r.Pix[i] = float64(row[x*4])
				r.Pix[i+1] = float64(row[x*4+1])
				r.Pix[i+2] = float64(row[x*4+2])
			}
		}
	default:
		for y := 0; y < r.H; y++ {
			for x := 0; x < r.W; x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				i := (y*r.W + x) * channels
				r.Pix[i] = float64(c.R)
				r.Pix[i+1] = float64(c.G)
				r.Pix[i+2] = float64(c.B)
			}
		}
	}
	return r
}

// Source returns the image the raster was built from.
func (r *Raster) Source() image.Image {
	return r.src
}

// Bounds returns the raster size as a rectangle at the origin.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.W, r.H)
}

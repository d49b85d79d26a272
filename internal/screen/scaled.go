package screen

import (
	"context"
	"image"

	"github.com/nfnt/resize"
)

// Scaled resizes every frame of Source to Width pixels wide, keeping the
// aspect ratio. Frames already at that width pass through untouched.
type Scaled struct {
	Source Source
	Width  int
}

// Capture implements Source.
func (s Scaled) Capture(ctx context.Context) (image.Image, error) {
	img, err := s.Source.Capture(ctx)
	if err != nil || img == nil || s.Width <= 0 {
		return img, err
	}
	return Resize(img, s.Width), nil
}

// Focus forwards to the wrapped source when it can focus.
func (s Scaled) Focus(ctx context.Context) error {
	if f, ok := s.Source.(Focuser); ok {
		return f.Focus(ctx)
	}
	return nil
}

// Resize scales img to width pixels wide with bilinear interpolation.
func Resize(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() == width {
		return img
	}
	return resize.Resize(uint(width), 0, img, resize.Bilinear)
}

package vision

import (
	"image"
	"image/color"
	"image/draw"
)

var (
	white      = color.RGBA{255, 255, 255, 255}
	normalBody = color.RGBA{200, 60, 60, 255}
	shinyBody  = color.RGBA{60, 200, 60, 255}
)

// sprite draws a small asymmetric shape in body colour on a white background.
func sprite(body color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	mask := []string{
		"........",
		"..####..",
		".######.",
		".##..##.",
		".######.",
		"..####..",
		"...##...",
		"..#..#..",
	}
	for y, row := range mask {
		for x, ch := range row {
			if ch == '#' {
				img.SetRGBA(x, y, body)
			}
		}
	}
	return img
}

// scene places img at offset inside a white canvas of the given size.
func scene(w, h int, img image.Image, at image.Point) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	if img != nil {
		r := img.Bounds().Sub(img.Bounds().Min).Add(at)
		draw.Draw(canvas, r, img, img.Bounds().Min, draw.Src)
	}
	return canvas
}

func flat(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// stripes draws alternating black and white lines, vertical or horizontal.
func stripes(w, h int, vertical bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y
			if vertical {
				i = x
			}
			if i%2 == 0 {
				img.SetRGBA(x, y, white)
			} else {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

// gradient fills an image with a deterministic non-repeating pattern.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x*37 + y*11) % 256),
				G: uint8((x*5 + y*53) % 256),
				B: uint8((x*x + y*3) % 256),
				A: 255,
			})
		}
	}
	return img
}

// ramp is a smooth pattern, so near-miss placements still score high.
func ramp(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(40 + x*15),
				G: uint8(40 + y*15),
				B: uint8(200 - (x+y)*6),
				A: 255,
			})
		}
	}
	return img
}

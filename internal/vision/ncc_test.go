package vision

import (
	"image"
	"math"
	"testing"
)

func TestNCCMatcher_Match(t *testing.T) {
	t.Run("identical placement scores one", func(t *testing.T) {
		tmpl := gradient(12, 9)
		frame := scene(60, 40, tmpl, image.Pt(17, 21))

		conf, at := NCCMatcher{}.Match(NewRaster(frame), NewRaster(tmpl))
		if math.Abs(conf-1) > 1e-9 {
			t.Errorf("confidence = %v, want 1", conf)
		}
		if at != image.Pt(17, 21) {
			t.Errorf("location = %v, want (17,21)", at)
		}
	})

	t.Run("orthogonal stripes score zero", func(t *testing.T) {
		tmpl := stripes(4, 4, true)
		frame := stripes(20, 20, false)

		conf, _ := NCCMatcher{}.Match(NewRaster(frame), NewRaster(tmpl))
		if math.Abs(conf) > 1e-9 {
			t.Errorf("confidence = %v, want 0", conf)
		}
	})

	t.Run("flat frame against textured template scores zero", func(t *testing.T) {
		conf, _ := NCCMatcher{}.Match(NewRaster(flat(30, 30, white)), NewRaster(sprite(normalBody)))
		if conf != 0 {
			t.Errorf("confidence = %v, want 0", conf)
		}
	})

	t.Run("flat template matches flat window of the same colour", func(t *testing.T) {
		conf, _ := NCCMatcher{}.Match(NewRaster(flat(30, 30, white)), NewRaster(flat(5, 5, white)))
		if conf != 1 {
			t.Errorf("confidence = %v, want 1", conf)
		}
	})

	t.Run("flat template does not match flat window of another colour", func(t *testing.T) {
		conf, _ := NCCMatcher{}.Match(NewRaster(flat(30, 30, white)), NewRaster(flat(5, 5, normalBody)))
		if conf != 0 {
			t.Errorf("confidence = %v, want 0", conf)
		}
	})

	t.Run("template larger than frame scores zero", func(t *testing.T) {
		conf, at := NCCMatcher{}.Match(NewRaster(flat(4, 4, white)), NewRaster(gradient(8, 8)))
		if conf != 0 || at != (image.Point{}) {
			t.Errorf("Match = (%v, %v), want (0, (0,0))", conf, at)
		}
	})

	t.Run("colour swap stays below the default threshold", func(t *testing.T) {
		frame := scene(40, 40, sprite(normalBody), image.Pt(10, 10))

		normal, _ := NCCMatcher{}.Match(NewRaster(frame), NewRaster(sprite(normalBody)))
		shiny, _ := NCCMatcher{}.Match(NewRaster(frame), NewRaster(sprite(shinyBody)))
		if normal < 0.999 {
			t.Errorf("normal confidence = %v, want ~1", normal)
		}
		if shiny >= DefaultThreshold {
			t.Errorf("shiny confidence = %v, want < %v", shiny, DefaultThreshold)
		}
	})

	t.Run("scores stay within [-1, 1]", func(t *testing.T) {
		frame := gradient(50, 30)
		tmpl := gradient(13, 7)
		for _, stride := range []int{0, 1, 3} {
			conf, _ := NCCMatcher{Stride: stride}.Match(NewRaster(frame), NewRaster(tmpl))
			if conf < -1 || conf > 1 {
				t.Errorf("stride %d: confidence %v out of range", stride, conf)
			}
		}
	})
}

func TestNCCMatcher_StrideRefines(t *testing.T) {
	tmpl := ramp(10, 10)
	// Offsets that are not multiples of the stride must still be found.
	frame := scene(64, 48, tmpl, image.Pt(23, 17))

	conf, at := NCCMatcher{Stride: 4}.Match(NewRaster(frame), NewRaster(tmpl))
	if conf < 0.999 {
		t.Errorf("confidence = %v, want ~1", conf)
	}
	if at != image.Pt(23, 17) {
		t.Errorf("location = %v, want (23,17)", at)
	}
}

func TestNCCMatcher_ParallelBands(t *testing.T) {
	tmpl := ramp(12, 12)
	frame := scene(200, 160, tmpl, image.Pt(101, 67))

	for _, stride := range []int{1, DefaultStride} {
		serialConf, serialAt := NCCMatcher{Stride: stride, Workers: 1}.Match(NewRaster(frame), NewRaster(tmpl))
		for _, workers := range []int{0, 3, 8} {
			conf, at := NCCMatcher{Stride: stride, Workers: workers}.Match(NewRaster(frame), NewRaster(tmpl))
			if conf != serialConf || at != serialAt {
				t.Errorf("stride %d workers %d: got %v at %v, serial got %v at %v",
					stride, workers, conf, at, serialConf, serialAt)
			}
		}
		if serialConf < 0.999 || serialAt != image.Pt(101, 67) {
			t.Errorf("stride %d: got %v at %v, want ~1 at (101,67)", stride, serialConf, serialAt)
		}
	}
}

func TestNewRaster_SubImage(t *testing.T) {
	full := gradient(20, 20)
	sub := full.SubImage(image.Rect(5, 6, 15, 12)).(*image.RGBA)

	r := NewRaster(sub)
	if r.W != 10 || r.H != 6 {
		t.Fatalf("size = %dx%d, want 10x6", r.W, r.H)
	}
	want := full.RGBAAt(5, 6)
	if r.Pix[0] != float64(want.R) || r.Pix[1] != float64(want.G) || r.Pix[2] != float64(want.B) {
		t.Errorf("first pixel = %v, want %v", r.Pix[:3], want)
	}
	if r.Bounds() != image.Rect(0, 0, 10, 6) {
		t.Errorf("Bounds() = %v", r.Bounds())
	}
}

func TestNewMatcher(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "", wantErr: false},
		{name: "ncc", wantErr: false},
		{name: "sift", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.name, MatcherOptions{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMatcher(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && m == nil {
				t.Error("NewMatcher returned nil matcher")
			}
		})
	}

	m, err := NewMatcher("ncc", MatcherOptions{Stride: 6})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if ncc, ok := m.(NCCMatcher); !ok || ncc.Stride != 6 {
		t.Errorf("NewMatcher(ncc, stride 6) = %#v", m)
	}

	found := false
	for _, n := range MatcherNames() {
		if n == "ncc" {
			found = true
		}
	}
	if !found {
		t.Errorf("MatcherNames() = %v, missing ncc", MatcherNames())
	}
}

package camera

import (
	"context"
	"image"
	"image/color"
	"math"
)

// Synthetic is the placeholder feed used when no camera is available.
type Synthetic struct {
	Res Resolution
}

// NewSynthetic returns a placeholder feed at res.
func NewSynthetic(res Resolution) *Synthetic {
	if res.Width <= 0 || res.Height <= 0 {
		res = DefaultResolution
	}
	return &Synthetic{Res: res}
}

func (s *Synthetic) Source() Source { return SourceSynthetic }

func (s *Synthetic) Close() error { return nil }

var (
	gradientInner = color.RGBA{0x1E, 0x1B, 0x4B, 0xFF}
	gradientMid   = color.RGBA{0x31, 0x2E, 0x81, 0xFF}
	gradientOuter = color.RGBA{0x1F, 0x29, 0x37, 0xFF}
	bracket       = color.RGBA{0x8B, 0x5C, 0xF6, 0xFF}
)

// Frame draws a radial gradient with scan lines and corner brackets. The scan
// count shifts the phase of the scan lines so consecutive frames differ.
func (s *Synthetic) Frame(_ context.Context, scans int) (image.Image, error) {
	w, h := s.Res.Width, s.Res.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Hypot(cx, cy)

	for y := 0; y < h; y++ {
		line := y%4 < 2
		alpha := 0.1 + math.Sin(float64(scans)+float64(y)*0.1)*0.05
		for x := 0; x < w; x++ {
			t := math.Hypot(float64(x)-cx, float64(y)-cy) / radius
			c := radial(t)
			if line {
				c = blend(c, bracket, alpha)
			}
			img.SetRGBA(x, y, c)
		}
	}

	margin, size, thick := w/12, w/16, 3
	drawCorner(img, margin, margin, size, thick, 1, 1)
	drawCorner(img, w-margin-1, margin, size, thick, -1, 1)
	drawCorner(img, margin, h-margin-1, size, thick, 1, -1)
	drawCorner(img, w-margin-1, h-margin-1, size, thick, -1, -1)
	return img, nil
}

func radial(t float64) color.RGBA {
	if t <= 0.5 {
		return lerp(gradientInner, gradientMid, t/0.5)
	}
	if t > 1 {
		t = 1
	}
	return lerp(gradientMid, gradientOuter, (t-0.5)/0.5)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xFF}
}

func blend(base, over color.RGBA, alpha float64) color.RGBA {
	if alpha < 0 {
		alpha = 0
	}
	return lerp(base, over, alpha)
}

// drawCorner draws an L-shaped bracket whose arms extend in directions dx, dy.
func drawCorner(img *image.RGBA, x, y, size, thick, dx, dy int) {
	for i := 0; i < size; i++ {
		for j := 0; j < thick; j++ {
			img.SetRGBA(x+i*dx, y+j*dy, bracket)
			img.SetRGBA(x+j*dx, y+i*dy, bracket)
		}
	}
}

package st7789

import (
	"image"

	"github.com/i474232898/weather-station/internal/display"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

const baseline = display.Ascent

// rasterizer turns strings into coverage masks, one 10x20 cell per rune.
// Runes the font lacks are drawn as '?'.
type rasterizer struct {
	face *basicfont.Face
}

func newRasterizer() *rasterizer {
	return &rasterizer{face: inconsolata.Regular8x16}
}

func (r *rasterizer) render(text string) *image.Alpha {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	img := image.NewAlpha(image.Rect(0, 0, len(runes)*display.CellWidth, display.CellHeight))
	dr := font.Drawer{Dst: img, Src: image.Opaque, Face: r.face}
	for i, c := range runes {
		if !r.covers(c) {
			c = '?'
		}
		dr.Dot = fixed.P(i*display.CellWidth+1, baseline)
		dr.DrawString(string(c))
	}
	return img
}

func (r *rasterizer) covers(c rune) bool {
	for _, rng := range r.face.Ranges {
		if rng.Low <= c && c < rng.High {
			return true
		}
	}
	return false
}

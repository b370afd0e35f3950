package render

import (
	"math"

	"github.com/i474232898/weather-station/internal/display"
	"github.com/i474232898/weather-station/internal/weather"
)

const (
	// IconSize is the edge length of a weather icon bitmap in pixels.
	IconSize = 40

	iconRowBytes = IconSize / 8
	iconBytes    = IconSize * iconRowBytes
)

// UnknownSymbol is drawn for icon codes without a known glyph.
const UnknownSymbol = "❓"

var iconSymbols = map[string]string{
	"01d": "☀",
	"01n": "🌙",
	"02d": "🌤",
	"02n": "☁",
	"03d": "☁",
	"03n": "☁",
	"04d": "☁",
	"04n": "☁",
	"09d": "🌧",
	"09n": "🌧",
	"10d": "🌦",
	"10n": "🌧",
	"11d": "⛈",
	"11n": "⛈",
	"13d": "❄",
	"13n": "❄",
	"50d": "🌫",
	"50n": "🌫",
}

// IconSymbol returns the fallback glyph for an OpenWeatherMap icon code.
func IconSymbol(code string) string {
	if s, ok := iconSymbols[code]; ok {
		return s
	}
	return UnknownSymbol
}

// IconColor returns the color an icon is drawn in, chosen by the condition
// prefix of the code.
func IconColor(code string) display.Color {
	switch weather.IconPrefix(code) {
	case "01", "02", "11":
		return display.Yellow
	case "09", "10":
		return display.Blue
	case "13":
		return display.White
	case "03", "04", "50":
		return display.Gray
	default:
		return display.White
	}
}

var iconNames = map[string]string{
	"01d": "sun",
	"01n": "moon",
	"02d": "partly_sunny",
	"02n": "cloud",
	"03d": "cloud",
	"03n": "cloud",
	"04d": "cloud",
	"04n": "cloud",
	"09d": "rain",
	"09n": "rain",
	"10d": "rain",
	"10n": "rain",
	"11d": "thunder",
	"11n": "thunder",
	"13d": "snow",
	"13n": "snow",
	"50d": "fog",
	"50n": "fog",
}

var iconBitmaps = map[string]*bitmap{
	"sun":          drawSun(),
	"moon":         drawMoon(),
	"partly_sunny": drawPartlySunny(),
	"cloud":        drawCloud(0),
	"rain":         drawRain(),
	"thunder":      drawThunder(),
	"snow":         drawSnow(),
	"fog":          drawFog(),
}

// IconBitmap returns a copy of the 40x40 1-bit bitmap for an icon code:
// row-major, 5 bytes per row, most significant bit leftmost.
func IconBitmap(code string) ([]byte, bool) {
	name, ok := iconNames[code]
	if !ok {
		return nil, false
	}
	bm := iconBitmaps[name]
	out := make([]byte, iconBytes)
	copy(out, bm[:])
	return out, true
}

// DecodeBitmap turns a 1-bit-per-pixel bitmap into one pixel of color c per
// set bit, offset by origin.
func DecodeBitmap(data []byte, width, height int, origin display.Point, c display.Color) []display.Pixel {
	rowBytes := (width + 7) / 8
	pixels := make([]display.Pixel, 0, width*height/4)

	for y := range height {
		for x := range width {
			idx := y*rowBytes + x/8
			if idx >= len(data) {
				continue
			}
			if data[idx]>>(7-uint(x%8))&1 == 1 {
				pixels = append(pixels, display.Pixel{
					Point: display.Point{X: origin.X + x, Y: origin.Y + y},
					Color: c,
				})
			}
		}
	}
	return pixels
}

type bitmap [iconBytes]byte

func (b *bitmap) set(x, y int) {
	if x < 0 || y < 0 || x >= IconSize || y >= IconSize {
		return
	}
	b[y*iconRowBytes+x/8] |= 0x80 >> uint(x%8)
}

func (b *bitmap) unset(x, y int) {
	if x < 0 || y < 0 || x >= IconSize || y >= IconSize {
		return
	}
	b[y*iconRowBytes+x/8] &^= 0x80 >> uint(x%8)
}

func (b *bitmap) disc(cx, cy, r int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				b.set(x, y)
			}
		}
	}
}

func (b *bitmap) cutDisc(cx, cy, r int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				b.unset(x, y)
			}
		}
	}
}

func (b *bitmap) rect(x0, y0, w, h int) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			b.set(x, y)
		}
	}
}

// line draws a two pixel wide Bresenham line.
func (b *bitmap) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		b.set(x0, y0)
		b.set(x0+1, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (b *bitmap) rays(cx, cy, inner, outer, n int) {
	for i := range n {
		a := 2 * math.Pi * float64(i) / float64(n)
		x0 := cx + int(math.Round(float64(inner)*math.Cos(a)))
		y0 := cy + int(math.Round(float64(inner)*math.Sin(a)))
		x1 := cx + int(math.Round(float64(outer)*math.Cos(a)))
		y1 := cy + int(math.Round(float64(outer)*math.Sin(a)))
		b.line(x0, y0, x1, y1)
	}
}

func (b *bitmap) cloud(dx, dy int) {
	b.disc(12+dx, 24+dy, 7)
	b.disc(22+dx, 18+dy, 10)
	b.disc(30+dx, 24+dy, 7)
	b.rect(12+dx, 24+dy, 18, 8)
}

func drawSun() *bitmap {
	var b bitmap
	b.disc(20, 20, 9)
	b.rays(20, 20, 12, 18, 8)
	return &b
}

func drawMoon() *bitmap {
	var b bitmap
	b.disc(20, 20, 15)
	b.cutDisc(27, 14, 13)
	return &b
}

func drawCloud(dy int) *bitmap {
	var b bitmap
	b.cloud(0, dy)
	return &b
}

func drawPartlySunny() *bitmap {
	var b bitmap
	b.disc(12, 12, 6)
	b.rays(12, 12, 8, 11, 8)
	b.disc(18, 29, 6)
	b.disc(26, 24, 8)
	b.disc(32, 30, 5)
	b.rect(18, 29, 14, 6)
	return &b
}

func drawRain() *bitmap {
	b := drawCloud(-8)
	for _, x := range []int{12, 20, 28} {
		b.line(x, 31, x-3, 38)
	}
	return b
}

func drawThunder() *bitmap {
	b := drawCloud(-8)
	b.line(23, 28, 17, 34)
	b.line(17, 34, 24, 34)
	b.line(24, 34, 18, 39)
	return b
}

func drawSnow() *bitmap {
	b := drawCloud(-8)
	for _, x := range []int{11, 20, 29} {
		y := 34
		if x == 20 {
			y = 36
		}
		b.set(x, y)
		b.set(x-2, y)
		b.set(x+2, y)
		b.set(x, y-2)
		b.set(x, y+2)
		b.set(x-1, y-1)
		b.set(x+1, y+1)
		b.set(x-1, y+1)
		b.set(x+1, y-1)
	}
	return b
}

func drawFog() *bitmap {
	var b bitmap
	b.rect(6, 10, 28, 2)
	b.rect(2, 16, 32, 2)
	b.rect(8, 22, 30, 2)
	b.rect(4, 28, 30, 2)
	b.rect(10, 34, 22, 2)
	return &b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

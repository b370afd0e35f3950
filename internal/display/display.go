// Package display defines the drawing surface the station renders onto: a
// fixed 240x320 panel with 16-bit RGB565 color.
package display

import "fmt"

const (
	Width  = 240
	Height = 320

	// CellWidth and CellHeight are the glyph box of the text font.
	CellWidth  = 10
	CellHeight = 20
	// Ascent is the distance from the top of a glyph cell to its baseline.
	Ascent = 15
)

// Color is an RGB565 color.
type Color uint16

// RGB565 packs 8-bit channels into a Color.
func RGB565(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB expands the color back to 8-bit channels.
func (c Color) RGB() (r, g, b uint8) {
	r5 := uint8(c >> 11 & 0x1f)
	g6 := uint8(c >> 5 & 0x3f)
	b5 := uint8(c & 0x1f)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("#%04x", uint16(c))
}

var (
	Black  = RGB565(0, 0, 0)
	White  = RGB565(255, 255, 255)
	Red    = RGB565(255, 0, 0)
	Blue   = RGB565(0, 0, 255)
	Yellow = RGB565(255, 255, 0)
	Gray   = RGB565(128, 128, 128)
)

var colorNames = map[Color]string{
	Black:  "black",
	White:  "white",
	Red:    "red",
	Blue:   "blue",
	Yellow: "yellow",
	Gray:   "gray",
}

// Point is a pixel position; X grows right, Y grows down.
type Point struct {
	X int
	Y int
}

// Size is a width and height in pixels.
type Size struct {
	W int
	H int
}

// Pixel is a single colored point.
type Pixel struct {
	Point Point
	Color Color
}

// Font selects a glyph set.
type Font int

const (
	// FontText is the 10x20 text font.
	FontText Font = iota
	// FontSymbol is the larger font used for fallback weather glyphs.
	FontSymbol
)

// TextStyle describes how text is drawn. The origin passed to DrawText is
// the left end of the text baseline. With Transparent unset every glyph cell
// is first filled with Background, which lets new text overwrite old text
// in place.
type TextStyle struct {
	Font        Font
	Foreground  Color
	Background  Color
	Transparent bool
}

// Display is the drawing surface. Implementations own their device; callers
// use one Display from a single goroutine.
type Display interface {
	Clear(c Color) error
	DrawText(origin Point, style TextStyle, text string) error
	DrawPixels(pixels []Pixel) error
	FillRect(origin Point, size Size, c Color) error
}

// CellOf returns the text cell (column, row) containing the glyph drawn at
// a baseline origin.
func CellOf(origin Point) (col, row int) {
	col = origin.X / CellWidth
	row = (origin.Y - 1) / CellHeight
	if origin.Y <= 0 {
		row = 0
	}
	return col, row
}

// Package terminal shows the station display in a terminal, one text cell
// per 10x20 pixel block, for running without the panel attached.
package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/i474232898/weather-station/internal/display"
)

const (
	// Cols and Rows are the simulated panel size in cells.
	Cols = display.Width / display.CellWidth
	Rows = display.Height / display.CellHeight

	cellArea = display.CellWidth * display.CellHeight
)

// Screen is a display.Display backed by a tcell screen.
type Screen struct {
	screen tcell.Screen
}

// New wraps an initialized tcell screen.
func New(s tcell.Screen) *Screen {
	return &Screen{screen: s}
}

// Open initializes the controlling terminal.
func Open() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("terminal: new screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("terminal: init screen: %w", err)
	}
	s.HideCursor()
	s.Clear()
	return New(s), nil
}

// Close restores the terminal.
func (s *Screen) Close() {
	s.screen.Fini()
}

// WaitQuit blocks until the user presses q, Esc or Ctrl-C, then calls quit.
// It returns without calling quit once the screen is closed.
func (s *Screen) WaitQuit(quit func()) {
	for {
		switch ev := s.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				quit()
				return
			}
		case *tcell.EventResize:
			s.screen.Sync()
		}
	}
}

func tcellColor(c display.Color) tcell.Color {
	r, g, b := c.RGB()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func (s *Screen) Clear(c display.Color) error {
	s.screen.Fill(' ', tcell.StyleDefault.Background(tcellColor(c)))
	s.screen.Show()
	return nil
}

func (s *Screen) DrawText(origin display.Point, style display.TextStyle, text string) error {
	col, row := display.CellOf(origin)
	fg := tcellColor(style.Foreground)

	for i, r := range []rune(text) {
		x := col + i
		st := tcell.StyleDefault.Foreground(fg)
		if style.Transparent {
			st = st.Background(s.background(x, row))
		} else {
			st = st.Background(tcellColor(style.Background))
		}
		s.screen.SetContent(x, row, r, nil, st)
	}
	s.screen.Show()
	return nil
}

// DrawPixels shades every cell a pixel falls into: a full block when at
// least a quarter of the cell is set, a light shade otherwise. The last
// pixel's color wins.
func (s *Screen) DrawPixels(pixels []display.Pixel) error {
	type cell struct{ x, y int }
	counts := make(map[cell]int)
	colors := make(map[cell]display.Color)

	for _, p := range pixels {
		c := cell{p.Point.X / display.CellWidth, p.Point.Y / display.CellHeight}
		counts[c]++
		colors[c] = p.Color
	}

	for c, n := range counts {
		r := '░'
		if n*4 >= cellArea {
			r = '█'
		}
		st := tcell.StyleDefault.Foreground(tcellColor(colors[c])).Background(s.background(c.x, c.y))
		s.screen.SetContent(c.x, c.y, r, nil, st)
	}
	s.screen.Show()
	return nil
}

func (s *Screen) FillRect(origin display.Point, size display.Size, c display.Color) error {
	if size.W <= 0 || size.H <= 0 {
		return nil
	}
	st := tcell.StyleDefault.Background(tcellColor(c))
	for y := origin.Y / display.CellHeight; y <= (origin.Y+size.H-1)/display.CellHeight; y++ {
		for x := origin.X / display.CellWidth; x <= (origin.X+size.W-1)/display.CellWidth; x++ {
			s.screen.SetContent(x, y, ' ', nil, st)
		}
	}
	s.screen.Show()
	return nil
}

func (s *Screen) background(x, y int) tcell.Color {
	_, _, st, _ := s.screen.GetContent(x, y)
	_, bg, _ := st.Decompose()
	return bg
}

var _ display.Display = (*Screen)(nil)

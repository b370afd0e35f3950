package render

import (
	"github.com/i474232898/weather-station/internal/display"
	"github.com/rs/zerolog/log"
)

// Screen layout. Text origins are baseline positions.
var (
	DateOrigin        = display.Point{X: 10, Y: 20}
	TimeOrigin        = display.Point{X: 10, Y: 40}
	CityOrigin        = display.Point{X: 10, Y: 60}
	TemperatureOrigin = display.Point{X: 10, Y: 90}
	DescriptionOrigin = display.Point{X: 10, Y: 120}
	WindOrigin        = display.Point{X: 10, Y: 150}
	HumidityOrigin    = display.Point{X: 10, Y: 180}
	IconOrigin        = display.Point{X: 160, Y: 70}

	// The weather block starts right below the time row's glyph cells.
	WeatherAreaOrigin = display.Point{X: 0, Y: TimeOrigin.Y + display.CellHeight - display.Ascent}
	WeatherAreaSize   = display.Size{W: display.Width, H: 190 - WeatherAreaOrigin.Y}

	EventAreaOrigin = display.Point{X: 0, Y: 210}
	EventAreaSize   = display.Size{W: display.Width, H: 80}
)

const (
	EventsTop    = 220
	EventsLeftX  = 10
	EventsRightX = 120
	EventsRowGap = 20
)

var (
	TextStyle = display.TextStyle{
		Font:       display.FontText,
		Foreground: display.White,
		Background: display.Black,
	}
	SymbolStyle = display.TextStyle{
		Font:        display.FontSymbol,
		Foreground:  display.Yellow,
		Transparent: true,
	}
)

// Engine draws States onto a display. It starts out needing a full redraw
// (clear, then everything); afterwards it only overwrites regions in place:
// date and time always, the weather block when it changed, and the movement
// events after erasing their area.
//
// The station requests a full redraw after every successful fetch, so there
// the weather block is only ever drawn on a cleared screen. The in-place
// weather erase serves callers that render a changed record without one.
type Engine struct {
	display   display.Display
	needsFull bool
}

func NewEngine(d display.Display) *Engine {
	return &Engine{
		display:   d,
		needsFull: true,
	}
}

// RequestFullRedraw makes the next Render clear the screen and draw everything.
func (e *Engine) RequestFullRedraw() {
	e.needsFull = true
}

// NeedsFullRedraw reports whether the next Render will clear the screen.
func (e *Engine) NeedsFullRedraw() bool {
	return e.needsFull
}

// Render draws next if it differs from prev, if forced, or if a full redraw
// is pending. It reports whether anything was drawn. Errors from single
// drawing primitives are logged and drawing continues.
func (e *Engine) Render(next, prev State, forced bool) bool {
	full := forced || e.needsFull
	if !full && next.Equal(prev) {
		return false
	}

	if full {
		e.check("clear", e.display.Clear(display.Black))
	}

	e.text(DateOrigin, next.Date)
	e.text(TimeOrigin, next.Time)

	if next.HasWeather() && (full || !next.weatherEqual(prev)) {
		if !full {
			e.check("erase weather", e.display.FillRect(WeatherAreaOrigin, WeatherAreaSize, display.Black))
		}
		e.drawWeather(next)
	}

	e.check("erase events", e.display.FillRect(EventAreaOrigin, EventAreaSize, display.Black))
	e.drawEvents(next.Events)

	e.needsFull = false
	return true
}

func (e *Engine) drawWeather(s State) {
	e.text(CityOrigin, s.City)
	e.text(TemperatureOrigin, s.Temperature)
	e.text(DescriptionOrigin, s.Description)
	e.text(WindOrigin, s.Wind)
	e.text(HumidityOrigin, s.Humidity)
	e.drawIcon(s.Icon)
}

func (e *Engine) drawIcon(code string) {
	if data, ok := IconBitmap(code); ok {
		pixels := DecodeBitmap(data, IconSize, IconSize, IconOrigin, IconColor(code))
		e.check("icon", e.display.DrawPixels(pixels))
		return
	}
	e.check("icon symbol", e.display.DrawText(IconOrigin, SymbolStyle, IconSymbol(code)))
}

// EventOrigin returns where the i-th movement event is drawn: two columns,
// left then right, moving down a row after each pair.
func EventOrigin(i int) display.Point {
	x := EventsLeftX
	if i%2 != 0 {
		x = EventsRightX
	}
	return display.Point{X: x, Y: EventsTop + (i/2)*EventsRowGap}
}

func (e *Engine) drawEvents(events []string) {
	for i, ev := range events {
		e.text(EventOrigin(i), ev)
	}
}

func (e *Engine) text(origin display.Point, s string) {
	e.check("text", e.display.DrawText(origin, TextStyle, s))
}

func (*Engine) check(op string, err error) {
	if err != nil {
		log.Warn().Err(err).Msgf("render: %s failed", op)
	}
}

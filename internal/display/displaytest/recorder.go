// Package displaytest provides a recording display.Display for tests.
package displaytest

import (
	"sync"

	"github.com/i474232898/weather-station/internal/display"
)

const (
	OpClear  = "clear"
	OpText   = "text"
	OpPixels = "pixels"
	OpFill   = "fill"
)

// Call is one recorded drawing operation.
type Call struct {
	Op     string
	Text   string
	Pixels []display.Pixel
	Origin display.Point
	Size   display.Size
	Style  display.TextStyle
	Color  display.Color
}

// Recorder records every call made to it. Errors in Fail are returned for
// the matching operation after the call is recorded.
type Recorder struct {
	Fail  map[string]error
	calls []Call
	mu    sync.Mutex
}

func New() *Recorder {
	return &Recorder{Fail: make(map[string]error)}
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.Fail[c.Op]
}

func (r *Recorder) Clear(c display.Color) error {
	return r.record(Call{Op: OpClear, Color: c})
}

func (r *Recorder) DrawText(origin display.Point, style display.TextStyle, text string) error {
	return r.record(Call{Op: OpText, Origin: origin, Style: style, Text: text, Color: style.Foreground})
}

func (r *Recorder) DrawPixels(pixels []display.Pixel) error {
	cp := make([]display.Pixel, len(pixels))
	copy(cp, pixels)
	return r.record(Call{Op: OpPixels, Pixels: cp})
}

func (r *Recorder) FillRect(origin display.Point, size display.Size, c display.Color) error {
	return r.record(Call{Op: OpFill, Origin: origin, Size: size, Color: c})
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Texts returns the strings of all recorded text calls in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Op == OpText {
			out = append(out, c.Text)
		}
	}
	return out
}

// TextAt returns the text drawn last at origin.
func (r *Recorder) TextAt(origin display.Point) (string, bool) {
	calls := r.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Op == OpText && calls[i].Origin == origin {
			return calls[i].Text, true
		}
	}
	return "", false
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

var _ display.Display = (*Recorder)(nil)

// Package st7789 drives a 240x320 ST7789 TFT panel over SPI.
package st7789

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/weather-station/internal/display"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

// Command bytes.
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVON   = 0x21
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A

	colmod16bit = 0x55
)

const (
	// ScratchRows is how many full-width rows the scratch buffer holds.
	ScratchRows = 10
	// ScratchSize is the recommended scratch buffer length in bytes.
	ScratchSize = display.Width * ScratchRows * 2

	// maxTx is the largest single SPI transfer; Linux spidev defaults to 4096.
	maxTx = 4096
)

// Reset timing.
const (
	resetLow  = 50 * time.Millisecond
	resetHigh = 200 * time.Millisecond
	swReset   = 150 * time.Millisecond
	sleepOut  = 10 * time.Millisecond
)

// Bus is a write-capable SPI connection.
type Bus interface {
	Tx(w, r []byte) error
}

// Pin is a digital output.
type Pin interface {
	Out(l gpio.Level) error
}

// BusError is a failed SPI or GPIO operation.
type BusError struct {
	Err error
	Op  string
}

func (e *BusError) Error() string {
	return fmt.Sprintf("st7789: %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// ErrScratchTooSmall is returned when the scratch buffer cannot hold one row.
var ErrScratchTooSmall = errors.New("st7789: scratch buffer smaller than one row")

// NewScratch allocates a scratch buffer of ScratchSize bytes.
func NewScratch() []byte {
	return make([]byte, ScratchSize)
}

// Device is an ST7789 panel. It is not safe for concurrent use; the station
// loop owns it.
type Device struct {
	bus     Bus
	dc      Pin
	rst     Pin
	clock   clockwork.Clock
	text    *rasterizer
	scratch []byte
}

// New wraps an SPI bus plus data/command and reset pins. scratch is used for
// all pixel transfers and must hold at least one full row (480 bytes).
func New(bus Bus, dc, rst Pin, clock clockwork.Clock, scratch []byte) (*Device, error) {
	if len(scratch) < display.Width*2 {
		return nil, ErrScratchTooSmall
	}
	return &Device{
		bus:     bus,
		dc:      dc,
		rst:     rst,
		clock:   clock,
		text:    newRasterizer(),
		scratch: scratch,
	}, nil
}

// Init runs the hardware reset and the panel power-up sequence.
func (d *Device) Init(ctx context.Context) error {
	if err := d.reset(ctx); err != nil {
		return err
	}

	steps := []struct {
		data  []byte
		delay time.Duration
		cmd   byte
	}{
		{cmd: cmdSWRESET, delay: swReset},
		{cmd: cmdSLPOUT, delay: sleepOut},
		{cmd: cmdCOLMOD, data: []byte{colmod16bit}},
		{cmd: cmdMADCTL, data: []byte{0x00}},
		{cmd: cmdINVON},
		{cmd: cmdNORON},
		{cmd: cmdDISPON},
	}
	for _, s := range steps {
		if err := d.command(s.cmd, s.data...); err != nil {
			return err
		}
		if s.delay > 0 {
			if err := d.sleep(ctx, s.delay); err != nil {
				return err
			}
		}
	}

	log.Info().Msg("st7789: panel initialized")
	return nil
}

func (d *Device) reset(ctx context.Context) error {
	if err := d.rst.Out(gpio.Low); err != nil {
		return &BusError{Op: "reset low", Err: err}
	}
	if err := d.sleep(ctx, resetLow); err != nil {
		return err
	}
	if err := d.rst.Out(gpio.High); err != nil {
		return &BusError{Op: "reset high", Err: err}
	}
	return d.sleep(ctx, resetHigh)
}

func (d *Device) sleep(ctx context.Context, dur time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.clock.After(dur):
		return nil
	}
}

func (d *Device) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return &BusError{Op: "dc low", Err: err}
	}
	if err := d.bus.Tx([]byte{cmd}, nil); err != nil {
		return &BusError{Op: fmt.Sprintf("command 0x%02X", cmd), Err: err}
	}
	if len(data) == 0 {
		return nil
	}
	return d.data(data)
}

func (d *Device) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return &BusError{Op: "dc high", Err: err}
	}
	for len(b) > 0 {
		n := min(len(b), maxTx)
		if err := d.bus.Tx(b[:n], nil); err != nil {
			return &BusError{Op: "write data", Err: err}
		}
		b = b[n:]
	}
	return nil
}

// window selects the inclusive rectangle (x0,y0)-(x1,y1) and starts a
// memory write.
func (d *Device) window(x0, y0, x1, y1 int) error {
	if err := d.command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.command(cmdRAMWR)
}

func (d *Device) Clear(c display.Color) error {
	return d.FillRect(display.Point{}, display.Size{W: display.Width, H: display.Height}, c)
}

func (d *Device) FillRect(origin display.Point, size display.Size, c display.Color) error {
	x0, y0, x1, y1, ok := clip(origin, size)
	if !ok {
		return nil
	}
	if err := d.window(x0, y0, x1, y1); err != nil {
		return err
	}

	hi, lo := byte(c>>8), byte(c)
	rowBytes := (x1 - x0 + 1) * 2
	rowsPerChunk := len(d.scratch) / rowBytes
	for i := 0; i < rowsPerChunk*rowBytes; i += 2 {
		d.scratch[i], d.scratch[i+1] = hi, lo
	}

	for rows := y1 - y0 + 1; rows > 0; rows -= rowsPerChunk {
		n := min(rows, rowsPerChunk)
		if err := d.data(d.scratch[:n*rowBytes]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) DrawPixels(pixels []display.Pixel) error {
	for _, p := range pixels {
		if !inBounds(p.Point) {
			continue
		}
		if err := d.window(p.Point.X, p.Point.Y, p.Point.X, p.Point.Y); err != nil {
			return err
		}
		d.scratch[0], d.scratch[1] = byte(p.Color>>8), byte(p.Color)
		if err := d.data(d.scratch[:2]); err != nil {
			return err
		}
	}
	return nil
}

// DrawText draws text with its baseline at origin. Opaque text is sent as one
// block through the scratch buffer; transparent text only sets the glyph
// pixels.
func (d *Device) DrawText(origin display.Point, style display.TextStyle, text string) error {
	mask := d.text.render(text)
	if mask == nil {
		return nil
	}
	top := display.Point{X: origin.X, Y: origin.Y - baseline}

	if style.Transparent {
		var pixels []display.Pixel
		b := mask.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if mask.AlphaAt(x, y).A >= 0x80 {
					pixels = append(pixels, display.Pixel{
						Point: display.Point{X: top.X + x, Y: top.Y + y},
						Color: style.Foreground,
					})
				}
			}
		}
		return d.DrawPixels(pixels)
	}

	b := mask.Bounds()
	x0, y0, x1, y1, ok := clip(top, display.Size{W: b.Dx(), H: b.Dy()})
	if !ok {
		return nil
	}
	if err := d.window(x0, y0, x1, y1); err != nil {
		return err
	}

	fg := [2]byte{byte(style.Foreground >> 8), byte(style.Foreground)}
	bg := [2]byte{byte(style.Background >> 8), byte(style.Background)}
	rowBytes := (x1 - x0 + 1) * 2
	rowsPerChunk := len(d.scratch) / rowBytes

	n := 0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c := bg
			if mask.AlphaAt(x-top.X, y-top.Y).A >= 0x80 {
				c = fg
			}
			d.scratch[n], d.scratch[n+1] = c[0], c[1]
			n += 2
		}
		if n == rowsPerChunk*rowBytes || y == y1 {
			if err := d.data(d.scratch[:n]); err != nil {
				return err
			}
			n = 0
		}
	}
	return nil
}

func inBounds(p display.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < display.Width && p.Y < display.Height
}

// clip returns the inclusive on-screen corners of a rectangle.
func clip(origin display.Point, size display.Size) (x0, y0, x1, y1 int, ok bool) {
	x0, y0 = max(origin.X, 0), max(origin.Y, 0)
	x1 = min(origin.X+size.W, display.Width) - 1
	y1 = min(origin.Y+size.H, display.Height) - 1
	return x0, y0, x1, y1, x0 <= x1 && y0 <= y1
}

var _ display.Display = (*Device)(nil)

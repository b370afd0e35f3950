package st7789

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Config names the host resources the panel is wired to.
type Config struct {
	// SPIPort is a periph port name such as "/dev/spidev0.0"; empty picks
	// the first port.
	SPIPort      string
	SpeedHz      int64
	DCPin        string
	ResetPin     string
	BacklightPin string
}

// Panel is an opened Device plus the host resources it holds.
type Panel struct {
	*Device
	port      spi.PortCloser
	backlight gpio.PinIO
}

// Open initializes the host drivers, claims the SPI port and pins, and runs
// the panel init sequence.
func Open(ctx context.Context, cfg Config, clock clockwork.Clock) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("st7789: host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("st7789: open spi port %q: %w", cfg.SPIPort, err)
	}

	p, err := open(ctx, cfg, clock, port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return p, nil
}

func open(ctx context.Context, cfg Config, clock clockwork.Clock, port spi.PortCloser) (*Panel, error) {
	conn, err := port.Connect(physic.Frequency(cfg.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st7789: connect spi: %w", err)
	}

	dc, err := pin(cfg.DCPin)
	if err != nil {
		return nil, err
	}
	rst, err := pin(cfg.ResetPin)
	if err != nil {
		return nil, err
	}

	dev, err := New(conn, dc, rst, clock, NewScratch())
	if err != nil {
		return nil, err
	}

	p := &Panel{Device: dev, port: port}
	if cfg.BacklightPin != "" {
		if p.backlight, err = pin(cfg.BacklightPin); err != nil {
			return nil, err
		}
		if err := p.backlight.Out(gpio.High); err != nil {
			return nil, &BusError{Op: "backlight on", Err: err}
		}
	}

	if err := dev.Init(ctx); err != nil {
		return nil, err
	}
	log.Info().Msgf("st7789: opened %s at %d Hz", port, cfg.SpeedHz)
	return p, nil
}

func pin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errors.New("st7789: pin name is empty")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("st7789: no such pin %q", name)
	}
	return p, nil
}

// Close turns the backlight off and releases the SPI port.
func (p *Panel) Close() error {
	if p.backlight != nil {
		if err := p.backlight.Out(gpio.Low); err != nil {
			log.Warn().Err(err).Msg("st7789: backlight off failed")
		}
	}
	return p.port.Close()
}

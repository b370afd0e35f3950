package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/weather-station/internal/bus"
	"github.com/i474232898/weather-station/internal/config"
	"github.com/i474232898/weather-station/internal/display"
	"github.com/i474232898/weather-station/internal/display/st7789"
	"github.com/i474232898/weather-station/internal/display/terminal"
	"github.com/i474232898/weather-station/internal/logging"
	"github.com/i474232898/weather-station/internal/meminfo"
	"github.com/i474232898/weather-station/internal/network"
	"github.com/i474232898/weather-station/internal/poll"
	"github.com/i474232898/weather-station/internal/render"
	"github.com/i474232898/weather-station/internal/scheduler"
	"github.com/i474232898/weather-station/internal/station"
	"github.com/i474232898/weather-station/internal/store"
	"github.com/i474232898/weather-station/internal/syncutil"
	"github.com/i474232898/weather-station/internal/timesync"
	"github.com/i474232898/weather-station/internal/weather"
	"github.com/i474232898/weather-station/internal/weather/providers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	path := os.Getenv("STATION_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}

	// run has closed the display by now, so the terminal is usable again.
	if err := run(afero.NewOsFs(), path, openDisplay); err != nil {
		fmt.Fprintf(os.Stderr, "weather-station: %v\n", err)
		os.Exit(1)
	}
}

type displayOpener func(ctx context.Context, cfg *config.AppConfig, clock clockwork.Clock, quit func()) (display.Display, func(), error)

func run(fsys afero.Fs, path string, open displayOpener) (err error) {
	cfg, err := config.Load(fsys, path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The terminal display owns the TTY; log to the file only.
	console := logging.Stderr
	if cfg.Display.Driver == "terminal" {
		console = nil
	}
	logCloser, err := logging.Setup(logging.Options{Config: cfg.Log, Console: console})
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logCloser.Close()
	defer func() {
		if err != nil {
			log.Error().Err(err).Msg("weather station stopped")
		}
	}()
	log.Debug().Bool("deadlock_detection", syncutil.DeadlockEnabled).Msg("weather station starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	err = timesync.Wait(ctx, clock, poll.Policy{
		Interval:    cfg.Station.TimeSyncInterval.Std(),
		MaxAttempts: cfg.Station.TimeSyncAttempts,
	})
	if err != nil {
		return fmt.Errorf("clock never synchronized: %w", err)
	}

	link := network.NewHostLink(clock, cfg.Wifi.Interface, poll.Policy{
		Interval:    cfg.Wifi.ConnectInterval.Std(),
		MaxAttempts: cfg.Wifi.ConnectAttempts,
	})
	if err := link.Connect(ctx); err != nil {
		// The station loop reconnects before every fetch.
		log.Warn().Err(err).Msg("network not up yet")
	}

	dsp, closeDisplay, err := open(ctx, cfg, clock, stop)
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	defer closeDisplay()

	// Shared state between the station loop and the movement listener.
	events := store.NewEventLog()
	cache := store.NewWeatherCache()

	var publisher weather.Publisher
	if cfg.MQTT.BrokerURL != "" {
		client := bus.NewClient(bus.Config{
			BrokerURL:     cfg.MQTT.BrokerURL,
			Username:      cfg.MQTT.Username,
			Password:      cfg.MQTT.Password,
			MovementTopic: cfg.MQTT.MovementTopic,
			ConnectPolicy: poll.Policy{
				Interval:    cfg.MQTT.ConnectInterval.Std(),
				MaxAttempts: cfg.MQTT.ConnectAttempts,
			},
			PublishTimeout: cfg.MQTT.PublishTimeout.Std(),
		}, clock)
		listener := bus.NewListener(client.MovementTopic(), events, clock)

		if err := client.Connect(ctx, listener); err != nil {
			return fmt.Errorf("connect to message broker: %w", err)
		}
		defer client.Close()

		go listener.Run(ctx)
		publisher = client
	} else {
		log.Info().Msg("no MQTT broker configured; movement events and publishing disabled")
	}

	// Shared HTTP client for the weather provider.
	httpClient := &http.Client{
		Timeout: cfg.OpenWeather.Timeout.Std(),
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeather.APIKey)
	if cfg.OpenWeather.BaseURL != "" {
		provider = provider.WithBaseURL(cfg.OpenWeather.BaseURL)
	}

	svc := weather.NewService(provider, cache, publisher, weather.Location{
		City: cfg.OpenWeather.City,
		Lang: weather.Language(cfg.OpenWeather.Lang),
	}, cfg.OpenWeather.RefreshInterval.Std())

	st := station.New(clock, link, svc, events, render.NewEngine(dsp), cfg.Station.TickInterval.Std())

	sched := scheduler.New(st, st.TickInterval()).
		WithReport(meminfo.NewReader().Log, cfg.Station.MemoryReportInterval.Std())
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	log.Info().Msgf("weather station running for %s", cfg.OpenWeather.City)
	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

// openDisplay opens the configured display. quit is called when the user
// asks the terminal simulator to exit.
func openDisplay(ctx context.Context, cfg *config.AppConfig, clock clockwork.Clock, quit func()) (display.Display, func(), error) {
	switch cfg.Display.Driver {
	case "st7789":
		panel, err := st7789.Open(ctx, st7789.Config{
			SPIPort:      cfg.Display.SPIPort,
			SpeedHz:      cfg.Display.SPISpeedHz,
			DCPin:        cfg.Display.DCPin,
			ResetPin:     cfg.Display.ResetPin,
			BacklightPin: cfg.Display.BacklightPin,
		}, clock)
		if err != nil {
			return nil, nil, err
		}
		return panel, closeWith(panel), nil
	default:
		scr, err := terminal.Open()
		if err != nil {
			return nil, nil, err
		}
		go scr.WaitQuit(quit)
		return scr, scr.Close, nil
	}
}

func closeWith(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close display")
		}
	}
}

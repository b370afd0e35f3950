// Package station runs the weather station's main loop: every tick it reads
// the clock, refreshes the weather when due and redraws what changed.
package station

import (
	"context"
	"time"

	"github.com/i474232898/weather-station/internal/localtime"
	"github.com/i474232898/weather-station/internal/network"
	"github.com/i474232898/weather-station/internal/render"
	"github.com/i474232898/weather-station/internal/weather"
	"github.com/i474232898/weather-station/internal/weather/providers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is the pause between two loop iterations.
const DefaultTickInterval = time.Second

// EventSource supplies the movement events to show, newest first.
type EventSource interface {
	Snapshot() []string
}

// Station owns the display engine and the network link; Tick must only be
// called from one goroutine at a time.
type Station struct {
	clock        clockwork.Clock
	link         network.Link
	weather      *weather.Service
	events       EventSource
	engine       *render.Engine
	prev         render.State
	lastSecond   int64
	tickInterval time.Duration
}

// New creates a Station. A nil link is treated as always connected.
func New(
	clock clockwork.Clock,
	link network.Link,
	svc *weather.Service,
	events EventSource,
	engine *render.Engine,
	tickInterval time.Duration,
) *Station {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Station{
		clock:        clock,
		link:         link,
		weather:      svc,
		events:       events,
		engine:       engine,
		lastSecond:   -1,
		tickInterval: tickInterval,
	}
}

// TickInterval is the configured pause between iterations.
func (s *Station) TickInterval() time.Duration {
	return s.tickInterval
}

// Tick runs one loop iteration and reports whether the screen was drawn.
func (s *Station) Tick(ctx context.Context) bool {
	now := s.clock.Now().Unix()
	local := localtime.ToLocal(now)

	if s.weather.Due(now) {
		s.refresh(ctx, now)
	}

	// Nothing visible changes within a second unless a redraw is pending
	// or a movement arrived; the next tick picks those up.
	if now == s.lastSecond && !s.engine.NeedsFullRedraw() {
		return false
	}
	s.lastSecond = now

	rec, ok := s.weather.Latest()
	state := render.Build(local, rec, ok, s.events.Snapshot())
	if !s.engine.Render(state, s.prev, false) {
		return false
	}
	s.prev = state
	return true
}

func (s *Station) refresh(ctx context.Context, now int64) {
	if s.link != nil && !s.link.IsConnected() {
		log.Warn().Msg("station: network down, reconnecting")
		if err := s.link.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("station: reconnect failed, retrying next tick")
			return
		}
	}

	if err := s.weather.Refresh(ctx, now); err != nil {
		logRefreshError(err)
		return
	}
	s.engine.RequestFullRedraw()
}

// refreshErrorLevel keeps the open breaker from logging a warning every tick.
func refreshErrorLevel(err error) zerolog.Level {
	switch {
	case providers.IsCircuitOpen(err):
		return zerolog.DebugLevel
	case providers.IsMalformed(err):
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

func logRefreshError(err error) {
	msg := "station: weather refresh failed, keeping cached data"
	if providers.IsCircuitOpen(err) {
		msg = "station: weather fetch skipped, provider circuit open"
	}
	log.WithLevel(refreshErrorLevel(err)).Err(err).Msg(msg)
}

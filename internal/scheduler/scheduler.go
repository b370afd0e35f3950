package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Ticker is one iteration of the station loop.
type Ticker interface {
	Tick(ctx context.Context) bool
}

// Scheduler drives the station loop and periodic housekeeping jobs. Every
// job runs in singleton mode, so a slow tick is never overlapped by the next.
type Scheduler struct {
	scheduler      *gocron.Scheduler
	ticker         Ticker
	report         func(context.Context)
	tickInterval   time.Duration
	reportInterval time.Duration
}

// New creates a new Scheduler.
func New(ticker Ticker, tickInterval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:    s,
		ticker:       ticker,
		tickInterval: tickInterval,
	}
}

// WithReport adds a job that runs fn every interval. A zero interval
// disables it.
func (s *Scheduler) WithReport(fn func(context.Context), interval time.Duration) *Scheduler {
	s.report = fn
	s.reportInterval = interval
	return s
}

// Start schedules the jobs and starts the underlying scheduler. Jobs receive
// ctx; cancel it and call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.ticker == nil {
		return errors.New("scheduler: nothing to tick")
	}

	interval := s.tickInterval
	if interval <= 0 {
		interval = time.Second
	}

	if _, err := s.scheduler.Every(interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		s.ticker.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}

	if s.report != nil && s.reportInterval > 0 {
		if _, err := s.scheduler.Every(s.reportInterval).Do(func() {
			s.report(ctx)
		}); err != nil {
			return fmt.Errorf("schedule report: %w", err)
		}
		log.Debug().Msgf("scheduler: report every %s", s.reportInterval)
	}

	s.scheduler.StartAsync()
	log.Info().Msgf("scheduler: ticking every %s", interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

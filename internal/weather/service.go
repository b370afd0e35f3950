package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRefreshInterval is how often the current weather is refetched.
const DefaultRefreshInterval = 15 * time.Minute

// ShouldRefresh reports whether a fetch is due. A zero lastFetch means no
// fetch has succeeded yet. All values are in seconds.
func ShouldRefresh(now, lastFetch, interval int64) bool {
	return lastFetch == 0 || now >= lastFetch+interval
}

// Topic returns the message-bus topic weather records for city are
// published under.
func Topic(city string) string {
	return "weather/" + city
}

// Service fetches the current weather on a fixed interval, keeps the last
// good record in the store and forwards it to the message bus.
type Service struct {
	provider  Provider
	store     Store
	publisher Publisher
	loc       Location
	interval  int64
	lastFetch int64
}

// NewService creates a new Service. A nil publisher disables publishing.
func NewService(provider Provider, store Store, publisher Publisher, loc Location, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Service{
		provider:  provider,
		store:     store,
		publisher: publisher,
		loc:       loc,
		interval:  int64(interval / time.Second),
	}
}

// Due reports whether a refresh should be attempted at now (epoch seconds).
func (s *Service) Due(now int64) bool {
	return ShouldRefresh(now, s.lastFetch, s.interval)
}

// LastFetch returns the epoch seconds of the last successful fetch, or 0.
func (s *Service) LastFetch() int64 {
	return s.lastFetch
}

// Refresh fetches the current weather and stores it. On failure the store is
// left untouched and the next call retries. Publish failures are logged only
// and never undo the store write.
func (s *Service) Refresh(ctx context.Context, now int64) error {
	if s.provider == nil {
		return errors.New("no weather provider configured")
	}

	rec, err := s.provider.Fetch(ctx, s.loc)
	if err != nil {
		return fmt.Errorf("fetch weather from %s for %s: %w", s.provider.Name(), s.loc.City, err)
	}

	s.store.Set(rec)
	s.lastFetch = now
	log.Info().Msgf("weather: received %s - %.1f°C %s", rec.City, rec.TemperatureC, rec.Description)

	s.publish(rec)
	return nil
}

// Latest returns the cached record, if any.
func (s *Service) Latest() (Record, bool) {
	return s.store.Get()
}

func (s *Service) publish(rec Record) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Msg("weather: failed to marshal record")
		return
	}

	topic := Topic(s.loc.City)
	if err := s.publisher.Publish(topic, payload); err != nil {
		log.Error().Err(err).Msgf("weather: failed to publish to %s", topic)
		return
	}
	log.Debug().Msgf("weather: published record to %s", topic)
}

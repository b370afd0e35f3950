package store

import (
	"github.com/i474232898/weather-station/internal/syncutil"
	"github.com/i474232898/weather-station/internal/weather"
)

// WeatherCache is a concurrency-safe single-slot holder for the latest
// weather record. It is either empty or holds one complete record.
type WeatherCache struct {
	mu syncutil.RWMutex

	rec weather.Record
	ok  bool
}

// NewWeatherCache creates an empty WeatherCache.
func NewWeatherCache() *WeatherCache {
	return &WeatherCache{}
}

// Set replaces the cached record.
func (c *WeatherCache) Set(rec weather.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rec = rec
	c.ok = true
}

// Get returns a copy of the cached record and whether one is present.
func (c *WeatherCache) Get() (weather.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.rec, c.ok
}

var _ weather.Store = (*WeatherCache)(nil)

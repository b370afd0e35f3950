// Package timesync waits for the wall clock to be set before the station
// starts drawing times.
package timesync

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-station/internal/poll"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MinValidYear is the earliest year accepted as a synchronized clock. A
// device that boots without a real-time clock starts at the epoch.
const MinValidYear = 2024

// Synced reports whether clock shows a plausible wall time.
func Synced(clock clockwork.Clock) bool {
	return clock.Now().UTC().Year() >= MinValidYear
}

// Wait blocks until clock is synchronized or the policy runs out.
func Wait(ctx context.Context, clock clockwork.Clock, p poll.Policy) error {
	if Synced(clock) {
		return nil
	}

	log.Info().Msg("timesync: waiting for wall clock")
	if err := poll.Until(ctx, clock, p, func() bool { return Synced(clock) }); err != nil {
		return fmt.Errorf("time sync: %w", err)
	}

	log.Info().Msgf("timesync: clock synchronized at %s", clock.Now().UTC().Format("2006-01-02T15:04:05Z"))
	return nil
}

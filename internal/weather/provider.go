package weather

import (
	"context"
)

// Provider abstracts the remote current-weather source (OpenWeatherMap).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Record, error)
}

// Store is the single-slot holder for the latest successfully fetched record.
type Store interface {
	Set(rec Record)
	Get() (Record, bool)
}

// Publisher forwards serialized records to the message bus.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

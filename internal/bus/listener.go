package bus

import (
	"context"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/i474232898/weather-station/internal/localtime"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MovementPayload is the message that signals detected motion.
const MovementPayload = "1"

const inboxSize = 16

// EventSink receives formatted movement times.
type EventSink interface {
	Push(formatted string)
}

// Listener turns movement notifications into event log entries. The paho
// callback only queues messages; Run handles them on its own goroutine.
type Listener struct {
	sink       EventSink
	clock      clockwork.Clock
	inbox      chan mqtt.Message
	topic      string
	subscribed atomic.Bool
}

func NewListener(topic string, sink EventSink, clock clockwork.Clock) *Listener {
	if topic == "" {
		topic = DefaultMovementTopic
	}
	return &Listener{
		sink:  sink,
		clock: clock,
		topic: topic,
		inbox: make(chan mqtt.Message, inboxSize),
	}
}

// OnConnect subscribes to the movement topic. It runs on every reconnect.
func (l *Listener) OnConnect(client mqtt.Client) {
	token := client.Subscribe(l.topic, qos, l.handleMessage)
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Msgf("mqtt listener: failed to subscribe to %s", l.topic)
		return
	}
	l.subscribed.Store(true)
	log.Info().Msgf("mqtt listener: subscribed to topic %s", l.topic)
}

// OnConnectionLost drops the subscription state until the next connect.
func (l *Listener) OnConnectionLost(_ mqtt.Client, _ error) {
	l.subscribed.Store(false)
}

func (l *Listener) Subscribed() bool {
	return l.subscribed.Load()
}

func (l *Listener) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	select {
	case l.inbox <- msg:
	default:
		log.Warn().Msgf("mqtt listener: inbox full, dropping message on %s", msg.Topic())
	}
}

// Run handles queued messages until ctx ends.
func (l *Listener) Run(ctx context.Context) {
	log.Debug().Msg("mqtt listener: started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("mqtt listener: stopped")
			return
		case msg := <-l.inbox:
			l.process(msg)
		}
	}
}

// process records a movement event and reports whether it did.
func (l *Listener) process(msg mqtt.Message) bool {
	if !l.subscribed.Load() {
		log.Debug().Msg("mqtt listener: ignoring message before subscription")
		return false
	}
	if msg.Topic() != l.topic {
		return false
	}
	if string(msg.Payload()) != MovementPayload {
		log.Debug().Msgf("mqtt listener: ignoring payload %q", msg.Payload())
		return false
	}

	at := localtime.ToLocal(l.clock.Now().Unix()).TimeString()
	l.sink.Push(at)
	log.Info().Msgf("mqtt listener: movement at %s", at)
	return true
}

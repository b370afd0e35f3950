package bus

import (
	"context"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/i474232898/weather-station/internal/poll"
	"github.com/i474232898/weather-station/internal/weather"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected   = errors.New("mqtt: not connected")
	ErrPublishTimeout = errors.New("mqtt: publish timed out")
)

// ClientFactory creates the underlying paho client.
type ClientFactory func(*mqtt.ClientOptions) mqtt.Client

// DefaultClientFactory creates real paho clients.
var DefaultClientFactory ClientFactory = mqtt.NewClient

// Client is the station's broker connection. Publish may be called from any
// goroutine; paho serializes it internally.
type Client struct {
	client        mqtt.Client
	clock         clockwork.Clock
	clientFactory ClientFactory
	cfg           Config
}

func NewClient(cfg Config, clock clockwork.Clock) *Client {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.MovementTopic == "" {
		cfg.MovementTopic = DefaultMovementTopic
	}
	return &Client{
		cfg:           cfg,
		clock:         clock,
		clientFactory: DefaultClientFactory,
	}
}

// WithClientFactory replaces the paho client constructor.
func (c *Client) WithClientFactory(f ClientFactory) *Client {
	c.clientFactory = f
	return c
}

// Connect dials the broker and waits for the connection using the configured
// poll policy. If l is not nil it is attached so that it subscribes on every
// (re)connect.
func (c *Client) Connect(ctx context.Context, l *Listener) error {
	opts := NewClientOptions(c.cfg)
	broker := ParseProtocol(c.cfg.BrokerURL).Remainder

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msgf("mqtt: connected to %s", broker)
		if l != nil {
			l.OnConnect(client)
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt: connection lost")
		if l != nil {
			l.OnConnectionLost(client, err)
		}
	})

	c.client = c.clientFactory(opts)
	token := c.client.Connect()

	err := poll.Until(ctx, c.clock, c.cfg.ConnectPolicy, func() bool {
		select {
		case <-token.Done():
			return true
		default:
			return false
		}
	})
	if err == nil {
		err = token.Error()
	}
	if err != nil {
		c.client.Disconnect(0)
		c.client = nil
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}

	log.Info().Msgf("mqtt: opened connection to %s", broker)
	return nil
}

// Publish sends payload to topic at QoS 1 and waits up to the publish
// timeout for the broker to acknowledge it.
func (c *Client) Publish(topic string, payload []byte) error {
	if c.client == nil {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}

	log.Debug().Msgf("mqtt: published %d bytes to %s", len(payload), topic)
	return nil
}

func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		log.Debug().Msg("mqtt: disconnecting")
		c.client.Disconnect(250)
	}
}

// MovementTopic is the topic listeners should subscribe to.
func (c *Client) MovementTopic() string {
	return c.cfg.MovementTopic
}

var _ weather.Publisher = (*Client)(nil)

// Package bus connects the station to an MQTT broker: weather records are
// published to it and movement notifications arrive from it.
package bus

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/i474232898/weather-station/internal/poll"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMovementTopic  = "Bewegung"
	DefaultClientIDPrefix = "weather-station-"
	DefaultPublishTimeout = 5 * time.Second

	// QoS 1, at-least-once delivery, for both directions.
	qos = 1
)

// Config describes the broker connection.
type Config struct {
	BrokerURL      string
	Username       string
	Password       string
	ClientIDPrefix string
	MovementTopic  string
	ConnectPolicy  poll.Policy
	PublishTimeout time.Duration
}

// ProtocolInfo is the transport part of a broker URL.
type ProtocolInfo struct {
	Protocol  string
	Scheme    string
	Remainder string
	UseTLS    bool
}

// ParseProtocol maps a broker URL onto the transport paho expects.
//
// Examples:
//   - "mqtts://broker:8883" -> {Protocol: "ssl", UseTLS: true, Scheme: "mqtts", Remainder: "broker:8883"}
//   - "mqtt://broker:1883" -> {Protocol: "tcp", Scheme: "mqtt", Remainder: "broker:1883"}
//   - "broker:1883" -> {Protocol: "tcp", Remainder: "broker:1883"}
func ParseProtocol(brokerURL string) ProtocolInfo {
	info := ProtocolInfo{
		Protocol:  "tcp",
		Remainder: brokerURL,
	}

	if scheme, rest, ok := strings.Cut(brokerURL, "://"); ok {
		info.Scheme = scheme
		info.Remainder = rest

		if scheme == "mqtts" || scheme == "ssl" {
			info.Protocol = "ssl"
			info.UseTLS = true
		}
	}

	return info
}

// NewClientOptions builds paho options for cfg. Connection handlers are left
// to the caller.
func NewClientOptions(cfg Config) *mqtt.ClientOptions {
	protocolInfo := ParseProtocol(cfg.BrokerURL)

	prefix := cfg.ClientIDPrefix
	if prefix == "" {
		prefix = DefaultClientIDPrefix
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s", protocolInfo.Protocol, protocolInfo.Remainder))
	opts.SetClientID(prefix + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
		log.Debug().Msgf("mqtt: using authentication for %s", protocolInfo.Remainder)
	}

	if protocolInfo.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
		log.Debug().Msgf("mqtt: using TLS for %s", protocolInfo.Remainder)
	}

	return opts
}

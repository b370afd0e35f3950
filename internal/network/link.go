// Package network tracks whether the station has a usable network link.
package network

import (
	"context"
	"fmt"
	"slices"

	"github.com/i474232898/weather-station/internal/poll"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	gnet "github.com/shirou/gopsutil/v4/net"
)

// Link is a network connection that may drop and be rejoined.
type Link interface {
	Connect(ctx context.Context) error
	IsConnected() bool
}

// InterfaceLister returns the host's network interfaces.
type InterfaceLister func(ctx context.Context) ([]gnet.InterfaceStat, error)

func listInterfaces(ctx context.Context) ([]gnet.InterfaceStat, error) {
	return gnet.InterfacesWithContext(ctx)
}

// HostLink considers the host connected once an interface that is up, not a
// loopback and has an address exists. If Interface is set only that
// interface counts (e.g. "wlan0").
type HostLink struct {
	clock     clockwork.Clock
	list      InterfaceLister
	Interface string
	policy    poll.Policy
}

func NewHostLink(clock clockwork.Clock, iface string, p poll.Policy) *HostLink {
	return &HostLink{
		clock:     clock,
		list:      listInterfaces,
		Interface: iface,
		policy:    p,
	}
}

// WithLister replaces the interface source.
func (l *HostLink) WithLister(list InterfaceLister) *HostLink {
	l.list = list
	return l
}

func (l *HostLink) IsConnected() bool {
	ifaces, err := l.list(context.Background())
	if err != nil {
		log.Debug().Err(err).Msg("network: listing interfaces failed")
		return false
	}
	for _, iface := range ifaces {
		if l.Interface != "" && iface.Name != l.Interface {
			continue
		}
		if usable(iface) {
			return true
		}
	}
	return false
}

// Connect waits for the link to come up.
func (l *HostLink) Connect(ctx context.Context) error {
	if l.IsConnected() {
		return nil
	}
	log.Info().Msgf("network: waiting for link (interface %q)", l.Interface)
	if err := poll.Until(ctx, l.clock, l.policy, l.IsConnected); err != nil {
		return fmt.Errorf("network connect: %w", err)
	}
	log.Info().Msg("network: link up")
	return nil
}

func usable(iface gnet.InterfaceStat) bool {
	if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
		return false
	}
	return len(iface.Addrs) > 0
}

var _ Link = (*HostLink)(nil)

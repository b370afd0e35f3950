package network

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-station/internal/poll"
	"github.com/jonboulle/clockwork"
	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	loopback = gnet.InterfaceStat{
		Name:  "lo",
		Flags: []string{"up", "loopback"},
		Addrs: gnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}},
	}
	wifiUp = gnet.InterfaceStat{
		Name:  "wlan0",
		Flags: []string{"up", "broadcast", "multicast"},
		Addrs: gnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}},
	}
	wifiNoAddr = gnet.InterfaceStat{
		Name:  "wlan0",
		Flags: []string{"up", "broadcast"},
	}
	ethDown = gnet.InterfaceStat{
		Name:  "eth0",
		Flags: []string{"broadcast"},
		Addrs: gnet.InterfaceAddrList{{Addr: "10.0.0.2/8"}},
	}
)

func static(ifaces ...gnet.InterfaceStat) InterfaceLister {
	return func(context.Context) ([]gnet.InterfaceStat, error) {
		return ifaces, nil
	}
}

func TestHostLinkIsConnected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		iface  string
		ifaces []gnet.InterfaceStat
		want   bool
	}{
		{name: "loopback only", ifaces: []gnet.InterfaceStat{loopback}, want: false},
		{name: "wifi up", ifaces: []gnet.InterfaceStat{loopback, wifiUp}, want: true},
		{name: "wifi without address", ifaces: []gnet.InterfaceStat{wifiNoAddr}, want: false},
		{name: "interface down", ifaces: []gnet.InterfaceStat{ethDown}, want: false},
		{name: "named interface up", iface: "wlan0", ifaces: []gnet.InterfaceStat{wifiUp}, want: true},
		{name: "named interface missing", iface: "wlan1", ifaces: []gnet.InterfaceStat{wifiUp}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := NewHostLink(clockwork.NewFakeClock(), tt.iface, poll.DefaultPolicy).WithLister(static(tt.ifaces...))
			assert.Equal(t, tt.want, l.IsConnected())
		})
	}
}

func TestHostLinkListError(t *testing.T) {
	t.Parallel()

	l := NewHostLink(clockwork.NewFakeClock(), "", poll.DefaultPolicy).WithLister(
		func(context.Context) ([]gnet.InterfaceStat, error) {
			return nil, errors.New("netlink: permission denied")
		})
	assert.False(t, l.IsConnected())
}

func TestHostLinkConnectWaitsForLink(t *testing.T) {
	t.Parallel()

	var up atomic.Bool
	clock := clockwork.NewFakeClock()
	l := NewHostLink(clock, "", poll.Policy{Interval: time.Second, MaxAttempts: 5}).WithLister(
		func(context.Context) ([]gnet.InterfaceStat, error) {
			if up.Load() {
				return []gnet.InterfaceStat{wifiUp}, nil
			}
			return []gnet.InterfaceStat{loopback}, nil
		})

	done := make(chan error, 1)
	go func() { done <- l.Connect(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	up.Store(true)
	clock.Advance(time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}
}

func TestHostLinkConnectTimeout(t *testing.T) {
	t.Parallel()

	l := NewHostLink(clockwork.NewFakeClock(), "", poll.Policy{Interval: time.Second, MaxAttempts: 1}).WithLister(static(loopback))
	err := l.Connect(context.Background())
	require.ErrorIs(t, err, poll.ErrTimeout)
}

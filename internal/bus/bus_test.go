package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-station/internal/poll"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sliceSink struct {
	events []string
	mu     sync.Mutex
}

func (s *sliceSink) Push(formatted string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]string{formatted}, s.events...)
}

func (s *sliceSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func testConfig() Config {
	return Config{
		BrokerURL:     "mqtt://broker.local:1883",
		ConnectPolicy: poll.Policy{Interval: time.Millisecond, MaxAttempts: 3},
	}
}

func TestParseProtocol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ProtocolInfo
	}{
		{in: "mqtts://broker:8883", want: ProtocolInfo{Protocol: "ssl", Scheme: "mqtts", Remainder: "broker:8883", UseTLS: true}},
		{in: "ssl://broker:8883", want: ProtocolInfo{Protocol: "ssl", Scheme: "ssl", Remainder: "broker:8883", UseTLS: true}},
		{in: "mqtt://broker:1883", want: ProtocolInfo{Protocol: "tcp", Scheme: "mqtt", Remainder: "broker:1883"}},
		{in: "tcp://broker:1883", want: ProtocolInfo{Protocol: "tcp", Scheme: "tcp", Remainder: "broker:1883"}},
		{in: "broker:1883", want: ProtocolInfo{Protocol: "tcp", Remainder: "broker:1883"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseProtocol(tt.in), tt.in)
	}
}

func TestNewClientOptions(t *testing.T) {
	t.Parallel()

	t.Run("plain", func(t *testing.T) {
		t.Parallel()
		opts := NewClientOptions(Config{BrokerURL: "mqtt://broker:1883"})

		require.Len(t, opts.Servers, 1)
		assert.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
		assert.Regexp(t, `^weather-station-[0-9a-f-]{8}$`, opts.ClientID)
		assert.True(t, opts.AutoReconnect)
		assert.Nil(t, opts.TLSConfig)
		assert.Empty(t, opts.Username)
	})

	t.Run("tls with credentials", func(t *testing.T) {
		t.Parallel()
		opts := NewClientOptions(Config{
			BrokerURL:      "mqtts://broker:8883",
			Username:       "station",
			Password:       "secret",
			ClientIDPrefix: "esp-",
		})

		assert.Equal(t, "ssl://broker:8883", opts.Servers[0].String())
		assert.Regexp(t, `^esp-`, opts.ClientID)
		require.NotNil(t, opts.TLSConfig)
		assert.Equal(t, "station", opts.Username)
		assert.Equal(t, "secret", opts.Password)
	})

	t.Run("unique client ids", func(t *testing.T) {
		t.Parallel()
		a := NewClientOptions(Config{BrokerURL: "broker:1883"})
		b := NewClientOptions(Config{BrokerURL: "broker:1883"})
		assert.NotEqual(t, a.ClientID, b.ClientID)
	})
}

func TestClientConnectAndPublish(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	c := NewClient(testConfig(), clockwork.NewFakeClock()).WithClientFactory(mock.factory)

	require.NoError(t, c.Connect(context.Background(), nil))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Publish("weather/Berlin", []byte(`{"name":"Berlin"}`)))

	msgs := mock.publishedMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "weather/Berlin", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.False(t, msgs[0].retained)
	assert.Equal(t, []byte(`{"name":"Berlin"}`), msgs[0].payload)

	c.Close()
	assert.False(t, c.IsConnected())
	assert.Equal(t, 1, mock.disconnects)
}

func TestClientConnectError(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	mock.connectError = errors.New("connection refused")
	c := NewClient(testConfig(), clockwork.NewFakeClock()).WithClientFactory(mock.factory)

	err := c.Connect(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "broker.local:1883")
	assert.Equal(t, 1, mock.disconnects, "client cleaned up after failure")
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish("t", nil), ErrNotConnected)
}

func TestClientConnectTimeout(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	mock.connectToken = &mockToken{complete: false}
	clock := clockwork.NewFakeClock()
	c := NewClient(testConfig(), clock).WithClientFactory(mock.factory)

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background(), nil) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for range 2 {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Millisecond)
	}

	select {
	case err := <-done:
		require.ErrorIs(t, err, poll.ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}
}

func TestClientPublishErrors(t *testing.T) {
	t.Parallel()

	t.Run("broker error", func(t *testing.T) {
		t.Parallel()
		mock := newMockMQTTClient()
		c := NewClient(testConfig(), clockwork.NewFakeClock()).WithClientFactory(mock.factory)
		require.NoError(t, c.Connect(context.Background(), nil))

		mock.publishError = errors.New("not authorized")
		err := c.Publish("weather/Berlin", []byte("{}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weather/Berlin")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		mock := newMockMQTTClient()
		c := NewClient(testConfig(), clockwork.NewFakeClock()).WithClientFactory(mock.factory)
		require.NoError(t, c.Connect(context.Background(), nil))

		mock.publishToken = &mockToken{complete: false}
		assert.ErrorIs(t, c.Publish("weather/Berlin", []byte("{}")), ErrPublishTimeout)
	})
}

func TestClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{BrokerURL: "broker:1883"}, clockwork.NewFakeClock())
	assert.Equal(t, DefaultMovementTopic, c.MovementTopic())
	assert.Equal(t, DefaultPublishTimeout, c.cfg.PublishTimeout)
}

func TestConnectAttachesListener(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	c := NewClient(testConfig(), clockwork.NewFakeClock()).WithClientFactory(mock.factory)
	l := NewListener(c.MovementTopic(), &sliceSink{}, clockwork.NewFakeClock())

	require.NoError(t, c.Connect(context.Background(), l))
	require.NotNil(t, mock.opts)

	// paho calls the handlers itself; invoke them as it would.
	mock.opts.OnConnect(mock)
	assert.True(t, l.Subscribed())
	assert.Equal(t, []string{DefaultMovementTopic}, mock.subscribedTo)

	mock.opts.OnConnectionLost(mock, errors.New("EOF"))
	assert.False(t, l.Subscribed())
}

func TestListenerRecordsMovement(t *testing.T) {
	t.Parallel()

	sink := &sliceSink{}
	// 2024-03-31T04:00:00Z is 06:00:00 CEST.
	clock := clockwork.NewFakeClockAt(time.Unix(1711857600, 0))
	l := NewListener("Bewegung", sink, clock)

	mock := newMockMQTTClient()
	l.OnConnect(mock)
	require.True(t, l.Subscribed())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	handler := mock.handler()
	require.NotNil(t, handler)
	handler(mock, &mockMessage{topic: "Bewegung", payload: []byte("1")})

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"06:00:00"}, sink.snapshot())

	cancel()
	<-done
}

func TestListenerProcess(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 7, 15, 12, 0, 5, 0, time.UTC))

	tests := []struct {
		name       string
		msg        *mockMessage
		subscribed bool
		want       bool
	}{
		{name: "movement", msg: &mockMessage{topic: "Bewegung", payload: []byte("1")}, subscribed: true, want: true},
		{name: "zero payload", msg: &mockMessage{topic: "Bewegung", payload: []byte("0")}, subscribed: true},
		{name: "padded payload", msg: &mockMessage{topic: "Bewegung", payload: []byte("1\n")}, subscribed: true},
		{name: "other topic", msg: &mockMessage{topic: "weather/Berlin", payload: []byte("1")}, subscribed: true},
		{name: "not subscribed", msg: &mockMessage{topic: "Bewegung", payload: []byte("1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sink := &sliceSink{}
			l := NewListener("Bewegung", sink, clock)
			l.subscribed.Store(tt.subscribed)

			assert.Equal(t, tt.want, l.process(tt.msg))
			if tt.want {
				assert.Equal(t, []string{"14:00:05"}, sink.snapshot())
			} else {
				assert.Empty(t, sink.snapshot())
			}
		})
	}
}

func TestListenerSubscribeFailure(t *testing.T) {
	t.Parallel()

	mock := newMockMQTTClient()
	mock.subscribeError = errors.New("not authorized")
	l := NewListener("", &sliceSink{}, clockwork.NewFakeClock())

	l.OnConnect(mock)
	assert.False(t, l.Subscribed())
}

func TestListenerInboxFullDrops(t *testing.T) {
	t.Parallel()

	l := NewListener("Bewegung", &sliceSink{}, clockwork.NewFakeClock())
	for range inboxSize + 3 {
		l.handleMessage(nil, &mockMessage{topic: "Bewegung", payload: []byte("1")})
	}
	assert.Len(t, l.inbox, inboxSize)
}

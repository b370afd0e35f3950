package bus

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockMQTTClient implements mqtt.Client for testing
type mockMQTTClient struct {
	connectError   error
	subscribeError error
	publishError   error
	connectToken   mqtt.Token
	publishToken   mqtt.Token
	messageHandler mqtt.MessageHandler
	opts           *mqtt.ClientOptions
	published      []publishedMessage
	subscribedTo   []string
	disconnects    int
	connected      bool
	mu             sync.Mutex
}

type publishedMessage struct {
	payload  any
	topic    string
	qos      byte
	retained bool
}

func newMockMQTTClient() *mockMQTTClient {
	return &mockMQTTClient{}
}

func (m *mockMQTTClient) factory(opts *mqtt.ClientOptions) mqtt.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
	return m
}

func (m *mockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTTClient) IsConnectionOpen() bool {
	return m.IsConnected()
}

func (m *mockMQTTClient) Connect() mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectToken != nil {
		return m.connectToken
	}
	if m.connectError != nil {
		return &mockToken{err: m.connectError, complete: true}
	}
	m.connected = true
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) Disconnect(_ uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
}

func (m *mockMQTTClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishToken != nil {
		return m.publishToken
	}
	if m.publishError != nil {
		return &mockToken{err: m.publishError, complete: true}
	}
	m.published = append(m.published, publishedMessage{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload,
	})
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscribeError != nil {
		return &mockToken{err: m.subscribeError, complete: true}
	}
	m.subscribedTo = append(m.subscribedTo, topic)
	m.messageHandler = callback
	return &mockToken{complete: true}
}

func (*mockMQTTClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return &mockToken{complete: true}
}

func (*mockMQTTClient) Unsubscribe(_ ...string) mqtt.Token {
	return &mockToken{complete: true}
}

func (m *mockMQTTClient) AddRoute(_ string, callback mqtt.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageHandler = callback
}

func (*mockMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (m *mockMQTTClient) handler() mqtt.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messageHandler
}

func (m *mockMQTTClient) publishedMessages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// mockToken implements mqtt.Token for testing
type mockToken struct {
	err      error
	complete bool
}

func (*mockToken) Wait() bool {
	return true
}

func (t *mockToken) WaitTimeout(_ time.Duration) bool {
	return t.complete
}

func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

func (t *mockToken) Error() error {
	return t.err
}

// mockMessage implements mqtt.Message for testing
type mockMessage struct {
	topic   string
	payload []byte
}

func (*mockMessage) Duplicate() bool            { return false }
func (*mockMessage) Qos() byte                  { return 1 }
func (*mockMessage) Retained() bool             { return false }
func (m *mockMessage) Topic() string            { return m.topic }
func (*mockMessage) MessageID() uint16          { return 0 }
func (m *mockMessage) Payload() []byte          { return m.payload }
func (*mockMessage) Ack()                       {}
func (m *mockMessage) AutoAckOff() mqtt.Message { return m }
func (m *mockMessage) AutoAckOn() mqtt.Message  { return m }

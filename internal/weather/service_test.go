package weather

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	err   error
	rec   Record
	calls int
}

func (*stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, _ Location) (Record, error) {
	p.calls++
	if p.err != nil {
		return Record{}, p.err
	}
	return p.rec, nil
}

type memStore struct {
	rec Record
	ok  bool
}

func (m *memStore) Set(rec Record)      { m.rec, m.ok = rec, true }
func (m *memStore) Get() (Record, bool) { return m.rec, m.ok }

type recordingPublisher struct {
	err      error
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(topic string, payload []byte) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.err
}

var berlin = Record{
	City:         "Berlin",
	Description:  "light rain",
	IconCode:     "10d",
	TemperatureC: 21.3,
	HumidityPct:  65,
	WindSpeedMS:  3.2,
}

func TestShouldRefresh(t *testing.T) {
	t.Parallel()

	const interval = 900
	now := int64(1711852800)

	assert.True(t, ShouldRefresh(now, 0, interval), "never fetched")
	assert.False(t, ShouldRefresh(now, now, interval), "just fetched")
	assert.False(t, ShouldRefresh(now+899, now, interval))
	assert.True(t, ShouldRefresh(now+900, now, interval))
	assert.True(t, ShouldRefresh(now+5000, now, interval))
}

func TestTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "weather/Berlin", Topic("Berlin"))
}

func TestIconPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10", IconPrefix("10d"))
	assert.Equal(t, "1", IconPrefix("1"))
	assert.Empty(t, IconPrefix(""))
}

func TestServiceRefreshSuccess(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{rec: berlin}
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := NewService(provider, store, pub, Location{City: "Berlin", Lang: LanguageEnglish}, 0)

	now := int64(1711852800)
	require.True(t, svc.Due(now))
	require.NoError(t, svc.Refresh(context.Background(), now))

	got, ok := svc.Latest()
	require.True(t, ok)
	assert.Equal(t, berlin, got)
	assert.Equal(t, now, svc.LastFetch())
	assert.False(t, svc.Due(now+1))
	assert.True(t, svc.Due(now+int64(DefaultRefreshInterval/time.Second)))

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "weather/Berlin", pub.topics[0])

	var published Record
	require.NoError(t, json.Unmarshal(pub.payloads[0], &published))
	assert.Equal(t, berlin, published)
}

func TestServiceRefreshFailureKeepsCache(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{rec: berlin}
	store := &memStore{}
	pub := &recordingPublisher{}
	svc := NewService(provider, store, pub, Location{City: "Berlin"}, time.Minute)

	require.NoError(t, svc.Refresh(context.Background(), 100))

	provider.err = errors.New("connection refused")
	err := svc.Refresh(context.Background(), 200)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, berlin, got)
	assert.Equal(t, int64(100), svc.LastFetch())
	assert.True(t, svc.Due(200))
	assert.Len(t, pub.topics, 1, "failed fetch must not publish")
}

func TestServiceRefreshPublishFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	pub := &recordingPublisher{err: errors.New("not connected")}
	svc := NewService(&stubProvider{rec: berlin}, store, pub, Location{City: "Berlin"}, 0)

	require.NoError(t, svc.Refresh(context.Background(), 42))

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, berlin, got)
	assert.Equal(t, int64(42), svc.LastFetch())
}

func TestServiceWithoutPublisher(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	svc := NewService(&stubProvider{rec: berlin}, store, nil, Location{City: "Berlin"}, 0)

	require.NoError(t, svc.Refresh(context.Background(), 42))
	assert.True(t, store.ok)
}

func TestServiceWithoutProvider(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &memStore{}, nil, Location{City: "Berlin"}, 0)

	require.Error(t, svc.Refresh(context.Background(), 42))
	assert.Zero(t, svc.LastFetch())
}

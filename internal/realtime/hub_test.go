package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(eventID uuid.UUID) *Client {
	return &Client{ID: uuid.New().String(), EventID: eventID, send: make(chan WSMessage, 8)}
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return WSMessage{}
	}
}

func TestHub_LocalBroadcastStaysInRoom(t *testing.T) {
	h := NewHub(nil, nil, nil)
	eventA, eventB := uuid.New(), uuid.New()
	a1, a2, b := testClient(eventA), testClient(eventA), testClient(eventB)
	h.Register(a1)
	h.Register(a2)
	h.Register(b)
	assert.Equal(t, 2, h.Watchers(eventA))

	h.NotifyEvent(eventA, "event_updated", map[string]string{"name": "Launch"})

	for _, c := range []*Client{a1, a2} {
		msg := receive(t, c)
		assert.Equal(t, "event_updated", msg.Event)
		assert.JSONEq(t, `{"name":"Launch"}`, string(msg.Data))
	}
	assert.Empty(t, b.send)

	h.Unregister(a1)
	h.Unregister(a2)
	assert.Zero(t, h.Watchers(eventA))
	h.NotifyEvent(eventA, "event_deleted", nil)
	assert.Empty(t, a1.send)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(nil, nil, nil)
	id := uuid.New()
	c := &Client{ID: "slow", EventID: id, send: make(chan WSMessage, 1)}
	h.Register(c)

	h.Broadcast(id, "event_updated", json.RawMessage(`{}`))
	h.Broadcast(id, "event_updated", json.RawMessage(`{}`))
	assert.Len(t, c.send, 1)
}

func TestHub_RedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	// two instances sharing one Redis
	ps := NewRedisPubSub(client, nil)
	here := NewHub(nil, ps, ps)
	there := NewHub(nil, ps, ps)

	id := uuid.New()
	watcher := testClient(id)
	// Register returns once the subscription is confirmed
	there.Register(watcher)
	require.Equal(t, 1, there.Watchers(id))

	here.NotifyEvent(id, "event_restored", map[string]string{"id": id.String()})

	msg := receive(t, watcher)
	assert.Equal(t, "event_restored", msg.Event)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(msg.Data))

	there.Unregister(watcher)
	assert.Zero(t, there.Watchers(id))
}

// flakySubscriber fails the first failures subscribe calls.
type flakySubscriber struct {
	mu       sync.Mutex
	failures int
	attempts int
	active   int
}

func (f *flakySubscriber) SubscribeEvent(uuid.UUID, func(string, []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return nil, errors.New("connection refused")
	}
	f.active++
	return func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}, nil
}

type nopPublisher struct{ published int }

func (p *nopPublisher) PublishEventUpdate(uuid.UUID, string, []byte) error {
	p.published++
	return nil
}

func TestHub_FailedSubscribeIsRetried(t *testing.T) {
	sub := &flakySubscriber{failures: 1}
	pub := &nopPublisher{}
	h := NewHub(nil, pub, sub)
	id := uuid.New()

	first := testClient(id)
	h.Register(first)
	assert.Equal(t, 1, sub.attempts)
	assert.Zero(t, sub.active)

	// no subscription feeds the room, so the update is delivered locally
	h.NotifyEvent(id, "event_updated", map[string]string{"name": "Launch"})
	assert.Equal(t, 1, pub.published)
	assert.Equal(t, "event_updated", receive(t, first).Event)

	second := testClient(id)
	h.Register(second)
	assert.Equal(t, 2, sub.attempts)
	assert.Equal(t, 1, sub.active)
	assert.Equal(t, 2, h.Watchers(id))

	// delivery now comes through the subscription only
	h.NotifyEvent(id, "event_updated", map[string]string{"name": "Launch"})
	assert.Empty(t, first.send)

	h.Unregister(first)
	h.Unregister(second)
	assert.Zero(t, sub.active)
}

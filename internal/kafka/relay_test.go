package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remix-go/internal/events"
)

type sentMessage struct {
	topic   string
	key     string
	payload []byte
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []sentMessage
	got  chan struct{}
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{got: make(chan struct{}, 16)}
}

func (f *fakeProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{topic: topic, key: string(key), payload: payload})
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

func (f *fakeProducer) Close() {}

func TestRelay_SendsEventsKeyedByRecipient(t *testing.T) {
	producer := newFakeProducer()
	relay := NewRelay(producer, "remix-events", 4, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)

	e, err := events.NewEvent(events.TopicMessageCreated, 7, map[string]string{"hello": "world"})
	require.NoError(t, err)
	require.NoError(t, relay.Publish(ctx, e))

	select {
	case <-producer.got:
	case <-time.After(time.Second):
		t.Fatal("event not sent")
	}

	producer.mu.Lock()
	defer producer.mu.Unlock()
	require.Len(t, producer.sent, 1)
	assert.Equal(t, "remix-events", producer.sent[0].topic)
	assert.Equal(t, "7", producer.sent[0].key)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(producer.sent[0].payload, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, events.TopicMessageCreated, decoded.Topic)
	assert.Equal(t, uint(7), decoded.UserID)
}

func TestRelay_FullQueueDrops(t *testing.T) {
	relay := NewRelay(newFakeProducer(), "t", 1, zap.NewNop())

	e1, _ := events.NewEvent(events.TopicFriendRequestCreated, 1, nil)
	e2, _ := events.NewEvent(events.TopicFriendRequestCreated, 1, nil)

	// Run 未启动，队列不会被消费
	require.NoError(t, relay.Publish(context.Background(), e1))
	assert.ErrorIs(t, relay.Publish(context.Background(), e2), ErrRelayQueueFull)
}

func TestRelay_DrainsOnShutdown(t *testing.T) {
	producer := newFakeProducer()
	relay := NewRelay(producer, "t", 4, zap.NewNop())

	e, _ := events.NewEvent(events.TopicFriendRequestCreated, 3, nil)
	require.NoError(t, relay.Publish(context.Background(), e))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Run(ctx)

	producer.mu.Lock()
	defer producer.mu.Unlock()
	assert.Len(t, producer.sent, 1)
}

func TestInstanceGroupID(t *testing.T) {
	a := InstanceGroupID("fanout")
	b := InstanceGroupID("fanout")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "fanout-")
	assert.Contains(t, InstanceGroupID(""), "remix-fanout-")
}

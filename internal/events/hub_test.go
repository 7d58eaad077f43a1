package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T, buffer int) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(buffer, zap.NewNop())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliversOnlyMatchingTopicAndUser(t *testing.T) {
	h := startHub(t, 8)
	ctx := context.Background()

	msgs2, err := h.Subscribe(ctx, TopicMessageCreated, 2)
	require.NoError(t, err)
	reqs2, err := h.Subscribe(ctx, TopicFriendRequestCreated, 2)
	require.NoError(t, err)
	msgs3, err := h.Subscribe(ctx, TopicMessageCreated, 3)
	require.NoError(t, err)

	e, err := NewEvent(TopicMessageCreated, 2, map[string]int{"id": 1})
	require.NoError(t, err)
	require.NoError(t, h.Publish(ctx, e))

	got := receive(t, msgs2)
	assert.Equal(t, e.ID, got.ID)

	var payload map[string]int
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, 1, payload["id"])

	assertNoEvent(t, reqs2)
	assertNoEvent(t, msgs3)
}

func TestHub_MultipleSubscribersForSameUser(t *testing.T) {
	h := startHub(t, 8)
	ctx := context.Background()

	a, err := h.Subscribe(ctx, TopicFriendRequestCreated, 5)
	require.NoError(t, err)
	b, err := h.Subscribe(ctx, TopicFriendRequestCreated, 5)
	require.NoError(t, err)

	e, _ := NewEvent(TopicFriendRequestCreated, 5, "x")
	require.NoError(t, h.Publish(ctx, e))

	assert.Equal(t, e.ID, receive(t, a).ID)
	assert.Equal(t, e.ID, receive(t, b).ID)
}

func TestHub_CancelClosesSubscription(t *testing.T) {
	h := startHub(t, 8)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := h.Subscribe(ctx, TopicMessageCreated, 1)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestHub_FullBufferDropsWithoutBlocking(t *testing.T) {
	h := startHub(t, 1)
	ctx := context.Background()

	slow, err := h.Subscribe(ctx, TopicMessageCreated, 1)
	require.NoError(t, err)
	other, err := h.Subscribe(ctx, TopicMessageCreated, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		e, _ := NewEvent(TopicMessageCreated, 1, i)
		require.NoError(t, h.Publish(ctx, e))
	}
	last, _ := NewEvent(TopicMessageCreated, 2, "after")
	require.NoError(t, h.Publish(ctx, last))

	// 其他订阅者不受慢订阅者影响
	assert.Equal(t, last.ID, receive(t, other).ID)

	first := receive(t, slow)
	var n int
	require.NoError(t, first.Decode(&n))
	assert.Equal(t, 0, n)
	assertNoEvent(t, slow)
}

func TestHub_ClosedHubRejects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(1, nil)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	ch, err := h.Subscribe(context.Background(), TopicMessageCreated, 1)
	require.NoError(t, err)

	cancel()
	<-stopped

	_, ok := <-ch
	assert.False(t, ok)

	_, err = h.Subscribe(context.Background(), TopicMessageCreated, 1)
	assert.ErrorIs(t, err, ErrHubClosed)

	e, _ := NewEvent(TopicMessageCreated, 1, nil)
	assert.ErrorIs(t, h.Publish(context.Background(), e), ErrHubClosed)
}

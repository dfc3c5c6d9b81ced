package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherSnapshotBeforeFirstCycle(t *testing.T) {
	pub := NewPublisher("r")
	assert.Nil(t, pub.Snapshot())
}

func TestPublisherStoresLatest(t *testing.T) {
	pub := NewPublisher("r")

	pub.Publish(&Snapshot{CycleCount: 1}, nil)
	pub.Publish(&Snapshot{CycleCount: 2}, nil)

	require.NotNil(t, pub.Snapshot())
	assert.Equal(t, 2, pub.Snapshot().CycleCount)
}

func TestPublisherSubscribeNonBlocking(t *testing.T) {
	pub := NewPublisher("r")
	ch := pub.Subscribe()

	// A subscriber that never drains must not block publishing.
	pub.Publish(&Snapshot{CycleCount: 1}, nil)
	done := make(chan struct{})
	go func() {
		pub.Publish(&Snapshot{CycleCount: 2}, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	event := <-ch
	assert.Equal(t, "r", event.Router)
	assert.Equal(t, 1, event.Snapshot.CycleCount)
}

func TestPublisherTransitionCallbacksPerChange(t *testing.T) {
	pub := NewPublisher("r")

	var calls []Transition
	pub.OnTransition(func(tr Transition) { calls = append(calls, tr) })

	pub.Publish(&Snapshot{}, []Transition{
		{ID: "a", WasOnline: false, IsOnline: true},
		{ID: "b", WasOnline: true, IsOnline: false},
	})
	pub.Publish(&Snapshot{}, nil)

	require.Len(t, calls, 2, "one callback per changed device, none on quiet cycles")
	assert.Equal(t, "a", calls[0].ID)
	assert.True(t, calls[0].IsOnline)
	assert.Equal(t, "b", calls[1].ID)
	assert.False(t, calls[1].IsOnline)
}

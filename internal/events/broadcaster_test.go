package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster[int](2)
	first := b.Subscribe()
	second := b.Subscribe()
	assert.Equal(t, 2, b.Len())

	b.Publish(1)
	assert.Equal(t, 1, <-first)
	assert.Equal(t, 1, <-second)

	b.Unsubscribe(first)
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, b.Len())

	b.Unsubscribe(first) // no-op
}

func TestBroadcaster_DropsForSlowReader(t *testing.T) {
	b := NewBroadcaster[string](1)
	sub := b.Subscribe()

	b.Publish("a")
	b.Publish("b") // buffer full, dropped

	require.Len(t, sub, 1)
	assert.Equal(t, "a", <-sub)
}

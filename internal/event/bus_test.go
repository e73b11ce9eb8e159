package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(New(TypePipelineStep, "42", map[string]string{"state": "Optimizing"}))

	got := <-events
	assert.Equal(t, TypePipelineStep, got.Type)
	assert.Equal(t, "42", got.ActorID)
	assert.NotEmpty(t, got.ID)
	assert.NotEmpty(t, got.Timestamp)
}

func TestInMemoryBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*2; i++ {
		bus.Publish(New(TypePipelineStep, "", i))
	}
}

func TestInMemoryBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	events, unsubscribe := bus.Subscribe()

	unsubscribe()
	unsubscribe()

	_, open := <-events
	require.False(t, open)
	bus.Publish(New(TypePipelineCompleted, "", nil))
}

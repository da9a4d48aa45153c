package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventWorkOrderStatusChanged, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.WorkOrderID)
		return boom
	})
	d.Subscribe(EventWorkOrderStatusChanged, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.WorkOrderID)
		return nil
	})
	d.Subscribe(EventWorkOrderCreated, func(context.Context, Event) error {
		calls = append(calls, "created")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventWorkOrderStatusChanged, WorkOrderID: "wo-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:wo-1", "second:wo-1"}, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventWorkOrderSLABreached}))
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventWorkOrderAssigned, func(context.Context, Event) error {
		panic("nil map")
	})
	d.Subscribe(EventWorkOrderAssigned, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventWorkOrderAssigned})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	assert.True(t, reached)
}

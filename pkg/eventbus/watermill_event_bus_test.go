package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/channels/gochannel"
	"github.com/chatforge/chatforge/pkg/eventbus"
	"github.com/chatforge/chatforge/pkg/events"
	"github.com/chatforge/chatforge/pkg/models"
)

func setupBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)

	err := bus.Handle(events.FlowCreatedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	flow := &models.Flow{ID: "flow-1", Name: "Bus Flow", Slug: "bus-flow"}

	err = bus.Publish(ctx, flow.ID, events.FlowCreated{
		BaseEvent: events.BaseEvent{
			ID:     "evt-1",
			Type:   events.FlowCreatedEvent,
			FlowID: flow.ID,
		},
		Flow: flow,
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		created, ok := event.(*events.FlowCreated)
		require.True(t, ok)
		assert.Equal(t, "evt-1", created.ID)
		assert.Equal(t, "bus-flow", created.Flow.Slug)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	t.Parallel()

	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)

	err := bus.Handle(events.NodeDeletedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// An event type without a handler must not block later deliveries.
	err = bus.Publish(ctx, "flow-1", events.FlowDeleted{
		BaseEvent: events.BaseEvent{Type: events.FlowDeletedEvent, FlowID: "flow-1"},
	})
	require.NoError(t, err)

	err = bus.Publish(ctx, "flow-1", events.NodeDeleted{
		BaseEvent:             events.BaseEvent{Type: events.NodeDeletedEvent, FlowID: "flow-1"},
		NodeID:                "n1",
		CascadedTransitionIDs: []string{"t1"},
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		deleted, ok := event.(*events.NodeDeleted)
		require.True(t, ok)
		assert.Equal(t, "n1", deleted.NodeID)
		assert.Equal(t, []string{"t1"}, deleted.CascadedTransitionIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := setupBus(t)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

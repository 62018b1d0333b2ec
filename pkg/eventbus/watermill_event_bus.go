package eventbus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chatforge/chatforge/pkg/events"
	"github.com/chatforge/chatforge/pkg/otelhelper"
)

var tracer = otel.Tracer("github.com/chatforge/chatforge/pkg/eventbus")

// WatermillEventBus publishes flow lifecycle events through any watermill
// publisher/subscriber pair (in-memory gochannel or kafka).
type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			msgCtx, span := otelhelper.StartSpan(ctx, tracer, "eventbus consume",
				attribute.String(otelhelper.EventIDKey, msg.UUID),
				attribute.String(otelhelper.FlowIDKey, msg.Metadata.Get(events.EventMetadataKey)),
				attribute.String("event.type", string(eventType)),
			)

			handler, exists := eb.subscriptions[eventType]
			if !exists {
				msg.Ack()
				span.End()

				continue
			}

			event := newEvent(eventType)
			if event == nil {
				otelhelper.SetError(span, errors.New("unknown event type"))
				msg.Nack()
				span.End()

				continue
			}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				otelhelper.SetError(span, err)
				msg.Nack()
				span.End()

				continue
			}

			err = handler(msgCtx, event)
			if err != nil {
				otelhelper.SetError(span, err)
				msg.Nack()
				span.End()

				continue
			}

			msg.Ack()
			span.End()
		}
	}()

	return nil
}

func newEvent(eventType events.EventType) any {
	switch eventType {
	case events.FlowCreatedEvent:
		return &events.FlowCreated{}
	case events.FlowUpdatedEvent:
		return &events.FlowUpdated{}
	case events.FlowDeletedEvent:
		return &events.FlowDeleted{}
	case events.NodeCreatedEvent:
		return &events.NodeCreated{}
	case events.NodeUpdatedEvent:
		return &events.NodeUpdated{}
	case events.NodeDeletedEvent:
		return &events.NodeDeleted{}
	case events.TransitionCreatedEvent:
		return &events.TransitionCreated{}
	case events.TransitionUpdatedEvent:
		return &events.TransitionUpdated{}
	case events.TransitionDeletedEvent:
		return &events.TransitionDeleted{}
	default:
		return nil
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

// Package eventBus provides a simple publish-subscribe mechanism for ledger
// notifications. Publishing never blocks the writer; a consumer with a full
// or nil channel simply misses the event.
package eventBus

import (
	"context"

	"github.com/google/uuid"
	"github.com/lumen-labs/yield-ledger/pkg/eventBus/eventBusTypes"
	"go.uber.org/zap"
)

type EventBus struct {
	consumers *eventBusTypes.ConsumerList
	logger    *zap.Logger
}

func NewEventBus(l *zap.Logger) *EventBus {
	return &EventBus{
		consumers: eventBusTypes.NewConsumerList(),
		logger:    l,
	}
}

// NewConsumer returns a consumer with a generated id and a buffered channel,
// ready to pass to Subscribe.
func NewConsumer(ctx context.Context, buffer int) *eventBusTypes.Consumer {
	return &eventBusTypes.Consumer{
		Id:      eventBusTypes.ConsumerId(uuid.New().String()),
		Context: ctx,
		Channel: make(chan *eventBusTypes.Event, buffer),
	}
}

func (eb *EventBus) Subscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Add(consumer)
}

func (eb *EventBus) Unsubscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Remove(consumer)
	eb.logger.Sugar().Infow("Unsubscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

func (eb *EventBus) Publish(event *eventBusTypes.Event) {
	eb.logger.Sugar().Debugw("Publishing event", zap.String("eventName", string(event.Name)))
	for _, consumer := range eb.consumers.GetAll() {
		if consumer.Channel == nil {
			eb.logger.Sugar().Debugw("Consumer channel is nil", zap.String("consumerId", string(consumer.Id)))
			continue
		}
		select {
		case consumer.Channel <- event:
		default:
			eb.logger.Sugar().Debugw("No receiver available, or channel is full",
				zap.String("consumerId", string(consumer.Id)),
				zap.String("eventName", event.Name.String()),
			)
		}
	}
}

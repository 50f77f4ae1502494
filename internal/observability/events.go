package observability

import (
	"context"
	"fmt"
)

// EventEnvelope wraps operational events published to the message broker.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Payload   any    `json:"payload"`
}

// Describe summarizes the envelope for log-only publishers.
func (e EventEnvelope) Describe() string {
	return fmt.Sprintf("event_type=%s event_name=%s request_id=%s", e.EventType, e.EventName, e.RequestID)
}

// Publisher is the subset of the broker client used for operational events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends event through the configured publisher, if any.
func PublishEvent(ctx context.Context, routingKey string, event EventEnvelope) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, event)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

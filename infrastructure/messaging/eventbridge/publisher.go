// Package eventbridge publishes domain events to an EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"molstack/application/ports"
	"molstack/domain/events"
)

const eventSource = "molstack"

// Publisher implements ports.EventPublisher over EventBridge
type Publisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, busName: busName, logger: logger}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish sends a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends multiple events. EventBridge caps PutEvents at ten
// entries per call.
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event %s: %w", event.GetEventType(), err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
		})
	}

	for i := 0; i < len(entries); i += 10 {
		end := i + 10
		if end > len(entries) {
			end = len(entries)
		}
		out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
			Entries: entries[i:end],
		})
		if err != nil {
			return fmt.Errorf("putting events: %w", err)
		}
		if out.FailedEntryCount > 0 {
			for _, entry := range out.Entries {
				if entry.ErrorCode != nil {
					p.logger.Warn("EventBridge rejected event",
						zap.String("code", aws.ToString(entry.ErrorCode)),
						zap.String("message", aws.ToString(entry.ErrorMessage)),
					)
				}
			}
			return fmt.Errorf("eventbridge rejected %d of %d events",
				out.FailedEntryCount, end-i)
		}
	}
	return nil
}

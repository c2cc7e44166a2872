// Package logpublisher is the default event publisher: it writes domain
// events to the structured log. Deployments without a broker keep full event
// visibility this way.
package logpublisher

import (
	"context"

	"go.uber.org/zap"

	"molstack/application/ports"
	"molstack/domain/events"
)

// Publisher implements ports.EventPublisher over the zap logger
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a log-backed publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish sends a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Domain event",
		zap.String("event_type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Int("version", event.GetVersion()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

// PublishBatch sends multiple events
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

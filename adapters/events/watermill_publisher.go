package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/vigil/ports"
)

// AuthEvent is the payload published for auth lifecycle events
type AuthEvent struct {
	Kind       string `json:"kind"`
	Username   string `json:"username"`
	OccurredAt int64  `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "vigil.auth",
	}
}

// PublishAuthEvent publishes an auth lifecycle event
func (p *WatermillPublisher) PublishAuthEvent(ctx context.Context, kind, username string) error {
	event := AuthEvent{
		Kind:       kind,
		Username:   username,
		OccurredAt: time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Package events publishes authentication lifecycle events so the rest of
// the smart-home app (notifications, automations) can react to them.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Topic is where auth events are published.
const Topic = "faceauth.events"

// Publisher emits auth events over a Watermill publisher.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher wraps a Watermill publisher.
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{
		publisher: publisher,
		topic:     Topic,
	}
}

// Publish sends one auth event. The message UUID doubles as the event ID.
func (p *Publisher) Publish(event models.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("kind", event.Kind)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/ports"
)

// LoginEvent notifies other instances that a name authenticated
type LoginEvent struct {
	UserID  string `json:"user_id"`
	EnsName string `json:"ens_name"`
	Address string `json:"address"`
	Rebound bool   `json:"rebound"` // true when the owning address changed
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
		topic:     "ensgate.login",
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, user *core.User, rebound bool) error {
	event := LoginEvent{
		UserID:  user.ID,
		EnsName: user.EnsName,
		Address: user.Address,
		Rebound: rebound,
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

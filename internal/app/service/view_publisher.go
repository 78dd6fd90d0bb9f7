package service

import (
	"encoding/json"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ViewPublisher publishes granted-read events to NATS JetStream
type ViewPublisher struct {
	js nats.JetStreamContext
}

// NewViewPublisher creates a new view event publisher
func NewViewPublisher(js nats.JetStreamContext) *ViewPublisher {
	return &ViewPublisher{js: js}
}

// Publish publishes a view event to the stream
func (p *ViewPublisher) Publish(roomID, ip, userAgent string) error {
	event := model.ViewEvent{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ViewStreamSubject, data)
	return err
}

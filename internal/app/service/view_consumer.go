package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/model"
	apprepository "github.com/Ayesha-Taranum/SourceVoid/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ViewConsumer consumes view events from NATS JetStream and persists
// them as the room's audit trail.
type ViewConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.ViewEventRepository
}

// NewViewConsumer creates a new view event consumer
func NewViewConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ViewEventRepository) *ViewConsumer {
	return &ViewConsumer{js: js, logger: logger, repo: repo}
}

// Start begins consuming view events
func (c *ViewConsumer) Start() error {
	// Create stream if not exists
	_, err := c.js.StreamInfo(model.ViewStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ViewStreamName,
			Subjects: []string{model.ViewStreamSubject},
			MaxBytes: model.ViewStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	// Create consumer if not exists
	_, err = c.js.ConsumerInfo(model.ViewStreamName, model.ViewConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ViewStreamName, &nats.ConsumerConfig{
			Durable:   model.ViewConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ViewStreamSubject, model.ViewConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ViewConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ViewEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal view event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.repo.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store view event",
					zap.String("id", event.ID),
					zap.String("room_id", event.RoomID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("view event stored",
				zap.String("id", event.ID),
				zap.String("room_id", event.RoomID),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}

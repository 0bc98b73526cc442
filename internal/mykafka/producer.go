package mykafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 5 * time.Second

// Publisher is what handlers need to emit domain events.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
}

// NewProducer returns a no-op publisher when no brokers are configured.
func NewProducer(brokers []string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) PublishEvent(context.Context, string, string, any) error { return nil }

func (Noop) Close() error { return nil }

// Event is the envelope of every user event.
type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	DeviceID string    `json:"deviceId,omitempty"`
	Email    string    `json:"email,omitempty"`
	At       time.Time `json:"at"`
}

const (
	EventUserRegistered = "user_registered"
	EventUserSignedIn   = "user_signed_in"
	EventUserSignedOut  = "user_signed_out"
	EventUserRemoved    = "user_removed"
)

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
)

type Config struct {
	Brokers      []string
	Topic        string
	GroupID      string
	WriteTimeout time.Duration
}

// RideProducer publishes lifecycle events keyed by ride id, so one ride
// always lands on one partition and keeps its order.
type RideProducer struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewRideProducer(cfg Config) *RideProducer {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &RideProducer{writer: w, timeout: timeout}
}

func (p *RideProducer) PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error {
	ctx = wrap.WithAction(ctx, "kafka_publish_ride_event")

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RideID),
		Value: body,
		Time:  msg.Timestamp,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(msg.Event.String())},
			{Key: "correlation_id", Value: []byte(msg.CorrelationID)},
		},
	})
	metrics.RecordPublish(string(types.RideService), "kafka", err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %v", types.ErrPublishFailed, err))
	}
	return nil
}

func (p *RideProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

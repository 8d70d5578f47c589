package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
	"github.com/Temutjin2k/ride-lifecycle/pkg/rabbit"
)

const (
	RideExchange = "ride_topic"

	// RideStatusBinding matches every lifecycle event.
	RideStatusBinding = "ride.status.*"
)

type RideBroker struct {
	client       *rabbit.RabbitMQ
	RideExchange string
	attempts     int
	backoff      time.Duration

	l logger.Logger
}

func NewRideBroker(client *rabbit.RabbitMQ, log logger.Logger) *RideBroker {
	return &RideBroker{
		client:       client,
		RideExchange: RideExchange,
		attempts:     5,
		backoff:      time.Second,

		l: log,
	}
}

// DeclareTopology makes sure the ride exchange exists.
func (r *RideBroker) DeclareTopology(ctx context.Context) error {
	if err := r.client.EnsureConnection(ctx); err != nil {
		return err
	}
	ch := r.client.Chan()
	if ch == nil {
		return errors.New("rabbit channel is closed")
	}
	return ch.ExchangeDeclare(r.RideExchange, "topic", true, false, false, false, nil)
}

// PublishRideEvent sends a committed transition to 'ride_topic' with the key 'ride.status.{status}'.
func (r *RideBroker) PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_ride_event")

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := fmt.Sprintf("ride.status.%s", msg.Status)

	if err := retry(r.attempts, r.backoff, func() error {
		if err := r.client.EnsureConnection(ctx); err != nil {
			return err
		}
		ch := r.client.Chan()
		if ch == nil {
			return errors.New("rabbit channel is closed")
		}
		if err := ch.PublishWithContext(
			ctx,
			r.RideExchange, // exchange
			key,            // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp091.Persistent,
				CorrelationId: msg.CorrelationID,
				MessageId:     fmt.Sprintf("%s:%d", msg.RideID, msg.Version),
				Body:          body,
				Timestamp:     msg.Timestamp,
			},
		); err != nil {
			return fmt.Errorf("failed to publish with context: %w", err)
		}

		return nil
	}); err != nil {
		metrics.RecordPublish(string(types.RideService), "rabbitmq", err)
		return wrap.Error(ctx, fmt.Errorf("%w: %v", types.ErrPublishFailed, err))
	}

	metrics.RecordPublish(string(types.RideService), "rabbitmq", nil)
	return nil
}

package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
	"github.com/Temutjin2k/ride-lifecycle/pkg/rabbit"
)

type RideEventHandler func(ctx context.Context, msg models.RideEventMessage) error

// RideEventConsumer reads lifecycle events back from the ride exchange.
type RideEventConsumer struct {
	client  *rabbit.RabbitMQ
	queue   string
	service string
	l       logger.Logger
}

// NewRideEventConsumer reads from queue. An empty queue name declares an
// exclusive server-named queue, so every instance sees every event.
func NewRideEventConsumer(client *rabbit.RabbitMQ, queue, service string, l logger.Logger) *RideEventConsumer {
	return &RideEventConsumer{client: client, queue: queue, service: service, l: l}
}

// declareAndBindQueue declares the queue and binds it to the exchange.
func (r *RideEventConsumer) declareAndBindQueue(ctx context.Context, ch *amqp.Channel, bindingKey, exchangeName string) (amqp.Queue, error) {
	const op = "RideEventConsumer.declareAndBindQueue"

	durable, exclusive := true, false
	if r.queue == "" {
		durable, exclusive = false, true
	}

	q, err := ch.QueueDeclare(r.queue, durable, !durable, exclusive, false, nil)
	if err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	if err := ch.QueueBind(q.Name, bindingKey, exchangeName, false, nil); err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: bind queue failed: %w", op, err))
	}

	return q, nil
}

func (r *RideEventConsumer) handleMessage(ctx context.Context, fn RideEventHandler, msg amqp.Delivery) {
	const op = "RideEventConsumer.handleMessage"

	var event models.RideEventMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		r.l.Error(ctx, "decode failed", err, "op", op)
		_ = msg.Nack(false, false)
		return
	}

	ctx = wrap.WithRequestID(wrap.WithRideID(ctx, event.RideID), msg.CorrelationId)

	err := fn(ctx, event)
	metrics.RecordConsume(r.service, "rabbitmq", err)
	if err != nil {
		r.l.Error(wrap.ErrorCtx(ctx, err), "handler failed", err, "op", op)
		_ = msg.Nack(false, isRecoverableError(err))
		return
	}

	if err := msg.Ack(false); err != nil {
		r.l.Warn(ctx, "ack failed", "op", op, "error", err.Error())
	}
}

// Consume delivers every ride event to fn in arrival order until ctx is done.
// A closed delivery channel triggers a reconnect.
func (r *RideEventConsumer) Consume(ctx context.Context, fn RideEventHandler) error {
	const op = "RideEventConsumer.Consume"
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_ride_events")

	for {
		if ctx.Err() != nil {
			r.l.Debug(ctx, "consume ride events stopped by context")
			return nil
		}

		if err := r.client.EnsureConnection(ctx); err != nil {
			r.l.Error(ctx, "ensure connection failed", err, "op", op)
			sleep(ctx, 2*time.Second)
			continue
		}

		ch := r.client.Chan()
		if ch == nil {
			sleep(ctx, 2*time.Second)
			continue
		}

		if err := ch.ExchangeDeclare(RideExchange, "topic", true, false, false, false, nil); err != nil {
			r.l.Error(ctx, "declare exchange failed", err, "op", op)
			sleep(ctx, 3*time.Second)
			continue
		}

		q, err := r.declareAndBindQueue(ctx, ch, RideStatusBinding, RideExchange)
		if err != nil {
			r.l.Error(ctx, "declare queue failed", err, "op", op)
			sleep(ctx, 2*time.Second)
			continue
		}

		msgs, err := ch.Consume(q.Name, "", false, q.Name != r.queue, false, false, nil)
		if err != nil {
			r.l.Error(ctx, "consume failed", err, "op", op)
			sleep(ctx, 2*time.Second)
			continue
		}

		r.l.Info(ctx, "start consuming ride events", "queue", q.Name)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				r.l.Info(ctx, "ride event consumer shutting down", "op", op)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					r.l.Warn(ctx, "message channel closed, reconnecting...", "op", op)
					sleep(ctx, 2*time.Second)
					break consumeLoop
				}

				// sequential handling keeps per-ride order
				r.handleMessage(ctx, fn, msg)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

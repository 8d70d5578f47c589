package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
)

type RideEventHandler func(ctx context.Context, msg models.RideEventMessage) error

// RideConsumer reads lifecycle events with a consumer group. Offsets are
// committed after the handler succeeds.
type RideConsumer struct {
	reader  *kafka.Reader
	service string
	l       logger.Logger
}

func NewRideConsumer(cfg Config, service string, l logger.Logger) *RideConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &RideConsumer{reader: r, service: service, l: l}
}

func (c *RideConsumer) Consume(ctx context.Context, fn RideEventHandler) error {
	ctx = wrap.WithAction(ctx, "kafka_consume_ride_events")

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.l.Info(ctx, "ride event consumer shutting down")
				return nil
			}
			c.l.Warn(ctx, "kafka read failed", "error", err.Error(), "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		var msg models.RideEventMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.l.Warn(ctx, "skipping malformed ride event", "offset", m.Offset, "error", err.Error())
			c.commit(ctx, m)
			continue
		}

		mctx := wrap.WithRequestID(wrap.WithRideID(ctx, msg.RideID), msg.CorrelationID)
		err = fn(mctx, msg)
		metrics.RecordConsume(c.service, "kafka", err)
		if err != nil {
			c.l.Error(wrap.ErrorCtx(mctx, err), "handler failed", err)
			if errors.Is(err, types.ErrTransient) {
				// leave uncommitted, the group redelivers after a rebalance
				continue
			}
		}
		c.commit(ctx, m)
	}
}

func (c *RideConsumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.l.Warn(ctx, "commit failed", "offset", m.Offset, "error", err.Error())
	}
}

func (c *RideConsumer) Close() error {
	return c.reader.Close()
}

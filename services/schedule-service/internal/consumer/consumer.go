// Package consumer subscribes to roster events so the schedule service drops
// its cached staff roster when the roster service announces a change.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkondo/clinicdesk/libs/kafkax"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/inbox"
)

const EventStaffUpdated = "roster.staff.updated.v1"

// Invalidator is the roster cache side; satisfied by roster.CachedProvider.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
	inbox  *inbox.Repository
	cache  Invalidator
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inboxRepo *inbox.Repository, cache Invalidator, cfg Config) *Consumer {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader: reader,
		logger: logger,
		inbox:  inboxRepo,
		cache:  cache,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
		ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)

		meta := kafkax.ExtractEventMeta(msg)

		ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox record failed", "err", err)
			span.RecordError(err)
			span.End()
			continue
		}
		if !ok {
			c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			span.End()
			continue
		}

		if err := c.handle(ctxSpan, meta, msg); err != nil {
			c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
		}
		span.End()
	}
}

func (c *Consumer) handle(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
	if meta.EventType != EventStaffUpdated {
		c.logger.Debug("ignoring event", "event_type", meta.EventType)
		return nil
	}

	var payload struct {
		StaffID string `json:"staff_id"`
	}
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		c.logger.Warn("malformed staff event payload", "err", err)
		// Invalidate anyway; a stale roster is worse than an extra read.
	}

	if err := c.cache.Invalidate(ctx); err != nil {
		return err
	}
	c.logger.Info("roster cache invalidated", "staff_id", payload.StaffID)
	return nil
}

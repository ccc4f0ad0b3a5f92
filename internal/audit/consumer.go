package audit

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/idempotency"
	"github.com/casesync/casesync-backend/pkg/outbox/payloads"
)

const custodyAuditConsumer = "custody-audit"

type exporter interface {
	Export(ctx context.Context, envelope outbox.PayloadEnvelope, event payloads.CustodyRecordedEvent) error
}

// Consumer mirrors custody chain events into the audit dataset.
type Consumer struct {
	exporter     exporter
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a custody audit consumer.
func NewConsumer(exp exporter, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if exp == nil {
		return nil, fmt.Errorf("audit exporter required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("custody subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		exporter:     exp,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	// The custody topic carries lifecycle events too; only chain links
	// land in the audit table.
	if eventType != string(enums.EventCustodyRecorded) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, custodyAuditConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already exported")
		return processResult{ack: true}
	}

	var event payloads.CustodyRecordedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to parse custody payload", err)
		_ = c.idempotency.Delete(ctx, custodyAuditConsumer, eventID)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"evidence_id": event.EvidenceID.String(),
		"sequence":    event.Sequence,
	})

	if err := c.exporter.Export(ctx, envelope, event); err != nil {
		c.logg.Error(logCtx, "custody audit export failed", err)
		_ = c.idempotency.Delete(ctx, custodyAuditConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "custody entry exported")
	return processResult{ack: true}
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/outbox/idempotency"
)

const completionConsumer = "job-completions"

// CompletionMessage is the wire shape processing engines publish when a
// job finishes. EventID is optional; without it the job id dedupes
// redeliveries, which is safe because completion is terminal.
type CompletionMessage struct {
	EventID     uuid.UUID `json:"eventId,omitempty"`
	JobID       uuid.UUID `json:"jobId"`
	Success     bool      `json:"success"`
	ResultRef   string    `json:"resultRef,omitempty"`
	ErrorDetail string    `json:"errorDetail,omitempty"`
}

// Consumer applies engine completion reports to the job table.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a completion consumer.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("job service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("completion subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
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
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var report CompletionMessage
	if err := json.Unmarshal(msg.Data, &report); err != nil {
		c.logg.Error(logCtx, "failed to decode completion report", err)
		return processResult{ack: true}
	}
	if report.JobID == uuid.Nil {
		c.logg.Warn(c.logg.WithField(logCtx, "reason", "missing job id"), "dropping malformed completion report")
		return processResult{ack: true}
	}

	dedupeID := report.EventID
	if dedupeID == uuid.Nil {
		dedupeID = report.JobID
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, completionConsumer, dedupeID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "completion report already applied")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithJobID(logCtx, report.JobID.String())
	_, err = c.svc.OnCompletion(ctx, report.JobID, Outcome{
		Success:     report.Success,
		ResultRef:   report.ResultRef,
		ErrorDetail: report.ErrorDetail,
	})
	if err != nil {
		_ = c.idempotency.Delete(ctx, completionConsumer, dedupeID)
		if appErr := apperrors.As(err); appErr != nil && !apperrors.MetadataFor(appErr.Code()).Retryable {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "completion report rejected")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "completion handling failed", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "completion report applied")
	return processResult{ack: true}
}

package funding

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
)

type processor interface {
	Process(ctx context.Context, event Event) (*Result, error)
}

// Consumer reads funding events from Pub/Sub. Retryable failures are nacked
// for redelivery; malformed or rejected events are acked and logged.
type Consumer struct {
	svc          processor
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewConsumer(svc processor, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("funding service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("funding subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{svc: svc, subscription: subscription, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether the message should be acked.
func (c *Consumer) handle(ctx context.Context, messageID string, data []byte) bool {
	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode funding event", err)
		return true
	}

	result, err := c.svc.Process(logCtx, event)
	if err != nil {
		if pkgerrors.IsRetryable(err) {
			c.logg.Error(logCtx, "funding event will be redelivered", err)
			return false
		}
		c.logg.Error(logCtx, "funding event rejected", err)
		return true
	}
	if result != nil && result.ReferralPending {
		c.logg.Warn(logCtx, "referral bonus pending; funding event will be redelivered")
		return false
	}
	if result != nil && result.Replayed {
		c.logg.Info(logCtx, "duplicate funding event acknowledged")
	}
	return true
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// BatchExpirer marks past-expiry batches; the gateway implements it.
type BatchExpirer interface {
	MarkExpiredBatches(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweepHandler builds the Asynq handler for the nightly sweep.
// metrics may be nil.
func ExpirySweepHandler(expirer BatchExpirer, metrics *Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExpirySweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskExpirySweep)
		expired, err := expirer.MarkExpiredBatches(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("expiry sweep failed", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddExpiredBatches(expired)
		if expired > 0 {
			logger.Info("expiry sweep", slog.Int64("batches_expired", expired))
		}
		return tracker.End(nil)
	}
}

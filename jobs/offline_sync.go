package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/offline"
)

// SyncHandler builds the Asynq handler that drains the offline queue.
// metrics may be nil.
func SyncHandler(queue *offline.Queue, applier offline.Applier, metrics *Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OfflineSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskOfflineSync)
		report, err := queue.Sync(ctx, applier)
		if err != nil {
			logger.Error("offline sync pass failed", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddSyncedActions(report.Completed, report.Failed)
		if report.Attempted > 0 {
			logger.Info("offline sync pass",
				slog.Int("attempted", report.Attempted),
				slog.Int("completed", report.Completed),
				slog.Int("failed", report.Failed))
		}
		return tracker.End(nil)
	}
}

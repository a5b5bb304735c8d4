package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOfflineSync replays pending offline actions against the remote store.
	TaskOfflineSync = "offline:sync"
	// TaskExpirySweep flips past-expiry active batches to expired.
	TaskExpirySweep = "inventory:expiry_sweep"
)

// OfflineSyncPayload carries scheduling metadata for a sync pass.
type OfflineSyncPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewOfflineSyncTask constructs an Asynq task for an offline sync pass.
func NewOfflineSyncTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(OfflineSyncPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOfflineSync, body, asynq.Queue(QueueDefault)), nil
}

// ExpirySweepPayload carries scheduling metadata for an expiry sweep.
type ExpirySweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewExpirySweepTask constructs an Asynq task for the nightly expiry sweep.
func NewExpirySweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ExpirySweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirySweep, body, asynq.Queue(QueueDefault)), nil
}

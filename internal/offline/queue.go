// Package offline keeps a durable, ordered log of mutations recorded while
// the remote store is unreachable, and replays them on demand. Replay is
// at-least-once; dedup happens store-side via each action's idempotency key.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Status enumerates offline action states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Action is one queued mutation.
type Action struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         Status          `json:"status"`
	Error          string          `json:"error,omitempty"`
	SyncedAt       time.Time       `json:"synced_at,omitempty"`
}

const (
	queueKey        = "meridian:offline:queue"
	actionKeyPrefix = "meridian:offline:action:"
)

// ErrActionNotFound indicates an unknown action id.
var ErrActionNotFound = errors.New("offline: action not found")

// Applier replays one action against the remote store.
type Applier func(ctx context.Context, action Action) error

// SyncReport summarises one replay pass.
type SyncReport struct {
	Attempted int `json:"attempted"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Queue is the Redis-backed offline action log. Enqueue order is replay
// order: later actions may depend on earlier ones.
type Queue struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewQueue constructs the queue.
func NewQueue(client *redis.Client, logger *slog.Logger) *Queue {
	return &Queue{client: client, logger: logger, now: time.Now}
}

// WithNow overrides the queue clock for testing.
func (q *Queue) WithNow(fn func() time.Time) {
	if fn != nil {
		q.now = fn
	}
}

// Enqueue appends a pending action with a generated id, timestamp and
// idempotency key.
func (q *Queue) Enqueue(ctx context.Context, actionType string, payload any) (Action, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Action{}, fmt.Errorf("offline: marshal payload: %w", err)
	}
	action := Action{
		ID:             uuid.NewString(),
		Type:           actionType,
		Payload:        raw,
		IdempotencyKey: uuid.NewString(),
		CreatedAt:      q.now().UTC(),
		Status:         StatusPending,
	}
	if err := q.save(ctx, action); err != nil {
		return Action{}, err
	}
	if err := q.client.RPush(ctx, queueKey, action.ID).Err(); err != nil {
		return Action{}, fmt.Errorf("offline: append queue: %w", err)
	}
	if q.logger != nil {
		q.logger.Info("offline action enqueued",
			slog.String("id", action.ID),
			slog.String("type", actionType))
	}
	return action, nil
}

// List returns every action in enqueue order.
func (q *Queue) List(ctx context.Context) ([]Action, error) {
	ids, err := q.client.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("offline: read queue: %w", err)
	}
	actions := make([]Action, 0, len(ids))
	for _, id := range ids {
		action, err := q.load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrActionNotFound) {
				continue
			}
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// ListPending returns pending actions in enqueue order.
func (q *Queue) ListPending(ctx context.Context) ([]Action, error) {
	all, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, a := range all {
		if a.Status == StatusPending {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// Get loads a single action.
func (q *Queue) Get(ctx context.Context, id string) (Action, error) {
	return q.load(ctx, id)
}

// Sync replays every pending action in enqueue order. A failed action is
// marked failed with the captured error and retained for inspection; it does
// not block the actions behind it, and it is not retried automatically.
func (q *Queue) Sync(ctx context.Context, apply Applier) (SyncReport, error) {
	pending, err := q.ListPending(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	var report SyncReport
	for _, action := range pending {
		report.Attempted++
		if err := apply(ctx, action); err != nil {
			action.Status = StatusFailed
			action.Error = err.Error()
			report.Failed++
			if q.logger != nil {
				q.logger.Warn("offline action failed",
					slog.String("id", action.ID),
					slog.String("type", action.Type),
					slog.Any("error", err))
			}
		} else {
			action.Status = StatusCompleted
			action.Error = ""
			action.SyncedAt = q.now().UTC()
			report.Completed++
		}
		if err := q.save(ctx, action); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Requeue resets a failed action to pending so the next sync retries it.
func (q *Queue) Requeue(ctx context.Context, id string) (Action, error) {
	action, err := q.load(ctx, id)
	if err != nil {
		return Action{}, err
	}
	if action.Status != StatusFailed {
		return Action{}, fmt.Errorf("offline: action %s is %s, only failed actions can be requeued", id, action.Status)
	}
	action.Status = StatusPending
	action.Error = ""
	if err := q.save(ctx, action); err != nil {
		return Action{}, err
	}
	return action, nil
}

// ClearCompleted prunes completed actions from the log.
func (q *Queue) ClearCompleted(ctx context.Context) (int, error) {
	all, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, a := range all {
		if a.Status != StatusCompleted {
			continue
		}
		if err := q.client.LRem(ctx, queueKey, 1, a.ID).Err(); err != nil {
			return removed, fmt.Errorf("offline: prune queue: %w", err)
		}
		if err := q.client.Del(ctx, actionKeyPrefix+a.ID).Err(); err != nil {
			return removed, fmt.Errorf("offline: prune action: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (q *Queue) save(ctx context.Context, action Action) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("offline: marshal action: %w", err)
	}
	if err := q.client.Set(ctx, actionKeyPrefix+action.ID, raw, 0).Err(); err != nil {
		return fmt.Errorf("offline: persist action: %w", err)
	}
	return nil
}

func (q *Queue) load(ctx context.Context, id string) (Action, error) {
	raw, err := q.client.Get(ctx, actionKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Action{}, ErrActionNotFound
		}
		return Action{}, fmt.Errorf("offline: load action: %w", err)
	}
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return Action{}, fmt.Errorf("offline: decode action: %w", err)
	}
	return action, nil
}

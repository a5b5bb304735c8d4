package offline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewQueue(client, nil)
	q.WithNow(func() time.Time {
		return time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	})
	return q
}

type salePayload struct {
	Code string  `json:"code"`
	Qty  float64 `json:"qty"`
}

func TestEnqueuePreservesOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "A", Qty: 1})
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "movement.create", salePayload{Code: "B", Qty: 2})
	require.NoError(t, err)

	require.NotEmpty(t, first.ID)
	require.NotEmpty(t, first.IdempotencyKey)
	require.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
	require.Equal(t, StatusPending, first.Status)

	actions, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	require.Equal(t, first.ID, actions[0].ID)
	require.Equal(t, second.ID, actions[1].ID)
}

func TestSyncReplaysInEnqueueOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	for _, code := range []string{"A", "B", "C"} {
		_, err := q.Enqueue(ctx, "batch.create", salePayload{Code: code})
		require.NoError(t, err)
	}

	var seen []string
	report, err := q.Sync(ctx, func(ctx context.Context, action Action) error {
		var p salePayload
		require.NoError(t, json.Unmarshal(action.Payload, &p))
		seen = append(seen, p.Code)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 3, Completed: 3}, report)
	require.Equal(t, []string{"A", "B", "C"}, seen)

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSyncFailureDoesNotBlockLaterActions(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	a1, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "A"})
	require.NoError(t, err)
	a2, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "B"})
	require.NoError(t, err)
	a3, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "C"})
	require.NoError(t, err)

	report, err := q.Sync(ctx, func(ctx context.Context, action Action) error {
		if action.ID == a2.ID {
			return errors.New("validation rejected")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 3, Completed: 2, Failed: 1}, report)

	got1, err := q.Get(ctx, a1.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got1.Status)
	require.False(t, got1.SyncedAt.IsZero())

	got2, err := q.Get(ctx, a2.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got2.Status)
	require.Equal(t, "validation rejected", got2.Error)

	got3, err := q.Get(ctx, a3.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got3.Status)
}

func TestSyncDoesNotRetryFailedActions(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "A"})
	require.NoError(t, err)

	_, err = q.Sync(ctx, func(ctx context.Context, action Action) error {
		return errors.New("down")
	})
	require.NoError(t, err)

	report, err := q.Sync(ctx, func(ctx context.Context, action Action) error {
		t.Fatal("failed action must not be retried without requeue")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, SyncReport{}, report)
}

func TestRequeueResetsFailedAction(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	action, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "A"})
	require.NoError(t, err)

	_, err = q.Sync(ctx, func(ctx context.Context, a Action) error {
		return errors.New("down")
	})
	require.NoError(t, err)

	requeued, err := q.Requeue(ctx, action.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, requeued.Status)
	require.Empty(t, requeued.Error)

	report, err := q.Sync(ctx, func(ctx context.Context, a Action) error { return nil })
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 1, Completed: 1}, report)
}

func TestRequeueRejectsNonFailedStates(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	action, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "A"})
	require.NoError(t, err)

	_, err = q.Requeue(ctx, action.ID)
	require.Error(t, err)

	_, err = q.Requeue(ctx, "no-such-id")
	require.ErrorIs(t, err, ErrActionNotFound)
}

func TestClearCompletedKeepsPendingAndFailed(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	done, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "A"})
	require.NoError(t, err)
	failed, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "B"})
	require.NoError(t, err)

	_, err = q.Sync(ctx, func(ctx context.Context, a Action) error {
		if a.ID == failed.ID {
			return errors.New("down")
		}
		return nil
	})
	require.NoError(t, err)

	waiting, err := q.Enqueue(ctx, "batch.create", salePayload{Code: "C"})
	require.NoError(t, err)

	removed, err := q.ClearCompleted(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	actions, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	require.Equal(t, failed.ID, actions[0].ID)
	require.Equal(t, waiting.ID, actions[1].ID)

	_, err = q.Get(ctx, done.ID)
	require.ErrorIs(t, err, ErrActionNotFound)
}

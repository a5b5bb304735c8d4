package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryBatchReader struct {
	batches []Batch
	err     error
}

func (r *memoryBatchReader) GetBatchesByProduct(ctx context.Context, productID int64, forceRefresh bool) ([]Batch, error) {
	if r.err != nil {
		return nil, r.err
	}
	var result []Batch
	for _, b := range r.batches {
		if b.ProductID == productID {
			result = append(result, b)
		}
	}
	return result, nil
}

func TestExpirySummaryBuckets(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	reader := &memoryBatchReader{batches: []Batch{
		// Fresh: expires in 90 days.
		{ID: 1, ProductID: 7, Quantity: 10, Status: BatchStatusActive,
			ReceivedAt: now.AddDate(0, 0, -10), ExpiresAt: now.AddDate(0, 0, 90)},
		// Expiring soon: 5 days out.
		{ID: 2, ProductID: 7, Quantity: 4, Status: BatchStatusActive,
			ReceivedAt: now.AddDate(0, 0, -20), ExpiresAt: now.AddDate(0, 0, 5)},
		// Marked expired by the sweep.
		{ID: 3, ProductID: 7, Quantity: 2, Status: BatchStatusExpired,
			ReceivedAt: now.AddDate(0, 0, -60), ExpiresAt: now.AddDate(0, 0, -1)},
		// Depleted batches never count.
		{ID: 4, ProductID: 7, Quantity: 0, Status: BatchStatusDepleted,
			ReceivedAt: now.AddDate(0, 0, -5)},
		// Other product.
		{ID: 5, ProductID: 8, Quantity: 99, Status: BatchStatusActive,
			ReceivedAt: now.AddDate(0, 0, -1)},
	}}

	tracker := NewExpiryTracker(reader)
	tracker.WithNow(func() time.Time { return now })

	summary, err := tracker.Summary(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), summary.ProductID)
	require.InDelta(t, 14, summary.TotalStock, 1e-9)
	require.Equal(t, 2, summary.ActiveBatches)
	require.Equal(t, 1, summary.ExpiredBatches)
	require.Equal(t, 1, summary.ExpiringSoon)
	require.Equal(t, now.AddDate(0, 0, -20), summary.EarliestReceived)
	require.Equal(t, now.AddDate(0, 0, -10), summary.LatestReceived)
	require.InDelta(t, 15, summary.AverageBatchAge, 1e-9)
}

func TestExpirySummaryCountsOverdueActiveAsExpired(t *testing.T) {
	// A batch past its expiry date that the nightly sweep has not flipped yet
	// still reports as expired and contributes no stock.
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	reader := &memoryBatchReader{batches: []Batch{
		{ID: 1, ProductID: 7, Quantity: 6, Status: BatchStatusActive,
			ReceivedAt: now.AddDate(0, 0, -40), ExpiresAt: now.AddDate(0, 0, -2)},
	}}

	tracker := NewExpiryTracker(reader)
	tracker.WithNow(func() time.Time { return now })

	summary, err := tracker.Summary(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 0, summary.ActiveBatches)
	require.Equal(t, 1, summary.ExpiredBatches)
	require.InDelta(t, 0, summary.TotalStock, 1e-9)
	require.InDelta(t, 0, summary.AverageBatchAge, 1e-9)
}

func TestExpirySummaryNoExpiryDate(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	reader := &memoryBatchReader{batches: []Batch{
		{ID: 1, ProductID: 7, Quantity: 3, Status: BatchStatusActive,
			ReceivedAt: now.AddDate(0, 0, -3)},
	}}

	tracker := NewExpiryTracker(reader)
	tracker.WithNow(func() time.Time { return now })

	summary, err := tracker.Summary(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, summary.ActiveBatches)
	require.Equal(t, 0, summary.ExpiringSoon)
	require.InDelta(t, 3, summary.TotalStock, 1e-9)
}

func TestExpirySummaryEmptyProduct(t *testing.T) {
	tracker := NewExpiryTracker(&memoryBatchReader{})

	summary, err := tracker.Summary(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), summary.ProductID)
	require.Equal(t, 0, summary.ActiveBatches)
	require.InDelta(t, 0, summary.TotalStock, 1e-9)
	require.True(t, summary.EarliestReceived.IsZero())
}

func TestExpirySummaryPropagatesReadError(t *testing.T) {
	readErr := errors.New("substrate down")
	tracker := NewExpiryTracker(&memoryBatchReader{err: readErr})

	_, err := tracker.Summary(context.Background(), 7)
	require.ErrorIs(t, err, readErr)
}

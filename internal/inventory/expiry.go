package inventory

import (
	"context"
	"time"
)

// BatchReader is the read-side port the tracker consumes.
type BatchReader interface {
	GetBatchesByProduct(ctx context.Context, productID int64, forceRefresh bool) ([]Batch, error)
}

// expiringSoonWindow classifies batches within 30 days of expiry.
const expiringSoonWindow = 30 * 24 * time.Hour

// ExpiryTracker derives per-product batch summaries. It is a pure consumer
// of the data access layer and never caches on its own; the summary is a
// snapshot relative to "now" at call time.
type ExpiryTracker struct {
	batches BatchReader
	now     func() time.Time
}

// NewExpiryTracker constructs the tracker.
func NewExpiryTracker(batches BatchReader) *ExpiryTracker {
	return &ExpiryTracker{batches: batches, now: time.Now}
}

// WithNow overrides the tracker clock for testing.
func (t *ExpiryTracker) WithNow(fn func() time.Time) {
	if fn != nil {
		t.now = fn
	}
}

// Summary aggregates the product's batches: remaining stock, expiry buckets
// and average batch age in days over active batches.
func (t *ExpiryTracker) Summary(ctx context.Context, productID int64) (ExpirySummary, error) {
	batches, err := t.batches.GetBatchesByProduct(ctx, productID, false)
	if err != nil {
		return ExpirySummary{}, err
	}

	now := t.now()
	summary := ExpirySummary{ProductID: productID}
	var ageSum float64
	var activeCount int
	for _, b := range batches {
		switch b.Status {
		case BatchStatusActive:
			if !b.ExpiresAt.IsZero() && !b.ExpiresAt.After(now) {
				summary.ExpiredBatches++
				continue
			}
			summary.ActiveBatches++
			summary.TotalStock += b.Quantity
			if !b.ExpiresAt.IsZero() && b.ExpiresAt.Sub(now) <= expiringSoonWindow {
				summary.ExpiringSoon++
			}
			if summary.EarliestReceived.IsZero() || b.ReceivedAt.Before(summary.EarliestReceived) {
				summary.EarliestReceived = b.ReceivedAt
			}
			if b.ReceivedAt.After(summary.LatestReceived) {
				summary.LatestReceived = b.ReceivedAt
			}
			ageSum += now.Sub(b.ReceivedAt).Hours() / 24
			activeCount++
		case BatchStatusExpired:
			summary.ExpiredBatches++
		}
	}
	if activeCount > 0 {
		summary.AverageBatchAge = ageSum / float64(activeCount)
	}
	return summary, nil
}

// Package storage persists data points, batches, and subscriptions.
//
// Two implementations are provided: a NATS JetStream key/value store for
// deployments and an in-memory store for tests and single-process use. Both
// satisfy Store; callers depend only on the interface.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/gapilongo/OPiN/types"
)

// Store is the persistence surface used by the pipeline, the notification
// dispatcher, and the HTTP gateway.
type Store interface {
	// CreatePoint persists a processed data point.
	CreatePoint(ctx context.Context, point *types.DataPoint) error

	// GetPoint fetches a point by identifier, or ErrNotFound.
	GetPoint(ctx context.Context, id uuid.UUID) (*types.DataPoint, error)

	// QueryPoints returns points matching the query, newest first.
	QueryPoints(ctx context.Context, query *types.DataQuery) ([]*types.DataPoint, error)

	// CreateBatch persists a batch record.
	CreateBatch(ctx context.Context, batch *types.DataBatch) error

	// UpdateBatch replaces a previously stored batch record.
	UpdateBatch(ctx context.Context, batch *types.DataBatch) error

	// GetBatch fetches a batch by identifier, or ErrNotFound.
	GetBatch(ctx context.Context, id uuid.UUID) (*types.DataBatch, error)

	// CreateSubscription persists a subscription.
	CreateSubscription(ctx context.Context, sub *types.Subscription) error

	// UpdateSubscription replaces a previously stored subscription.
	UpdateSubscription(ctx context.Context, sub *types.Subscription) error

	// GetActiveSubscriptions returns every active subscription.
	GetActiveSubscriptions(ctx context.Context) ([]*types.Subscription, error)

	// Close releases underlying resources.
	Close() error
}

// matchesQuery applies the filterable fields of a query to a point. Both
// implementations share this so query semantics cannot drift between them.
func matchesQuery(point *types.DataPoint, query *types.DataQuery) bool {
	if query.Category != nil && point.Category != *query.Category {
		return false
	}
	if !query.StartTime.IsZero() && point.Timestamp.Before(query.StartTime) {
		return false
	}
	if !query.EndTime.IsZero() && point.Timestamp.After(query.EndTime) {
		return false
	}
	if query.QualityThreshold != nil && qualityRank(point.Quality) < qualityRank(*query.QualityThreshold) {
		return false
	}
	if query.PrivacyLevel != nil && point.PrivacyLevel != *query.PrivacyLevel {
		return false
	}
	for key, want := range query.Filters {
		if point.Metadata == nil || point.Metadata[key] != want {
			return false
		}
	}
	return true
}

// qualityRank orders qualities for threshold comparison.
func qualityRank(q types.Quality) int {
	switch q {
	case types.QualityHigh:
		return 3
	case types.QualityMedium:
		return 2
	case types.QualityLow:
		return 1
	default:
		return 0
	}
}

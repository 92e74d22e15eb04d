package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

func TestMemoryStorePointLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	point := types.NewDataPoint(types.CategorySensor, types.NumericValue(1.5), time.Now().UTC())
	require.NoError(t, store.CreatePoint(ctx, point))

	got, err := store.GetPoint(ctx, point.ID)
	require.NoError(t, err)
	assert.Equal(t, point.ID, got.ID)

	_, err = store.GetPoint(ctx, uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMemoryStoreQueryPoints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	old := types.NewDataPoint(types.CategorySensor, types.NumericValue(1), now.Add(-2*time.Hour))
	old.Quality = types.QualityLow
	recent := types.NewDataPoint(types.CategorySensor, types.NumericValue(2), now)
	recent.Quality = types.QualityHigh
	other := types.NewDataPoint(types.CategoryMarket, types.NumericValue(3), now)
	other.Quality = types.QualityHigh

	for _, p := range []*types.DataPoint{old, recent, other} {
		require.NoError(t, store.CreatePoint(ctx, p))
	}

	cat := types.CategorySensor
	points, err := store.QueryPoints(ctx, &types.DataQuery{Category: &cat})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, recent.ID, points[0].ID, "newest first")

	threshold := types.QualityMedium
	points, err = store.QueryPoints(ctx, &types.DataQuery{Category: &cat, QualityThreshold: &threshold})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, recent.ID, points[0].ID)

	points, err = store.QueryPoints(ctx, &types.DataQuery{
		Category:  &cat,
		StartTime: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
}

func TestMemoryStoreBatchUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	batch := types.NewDataBatch(nil)
	require.NoError(t, store.CreateBatch(ctx, batch))

	batch.MarkProcessed(types.VerificationCompleted)
	require.NoError(t, store.UpdateBatch(ctx, batch))

	got, err := store.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)

	missing := types.NewDataBatch(nil)
	assert.ErrorIs(t, store.UpdateBatch(ctx, missing), errors.ErrNotFound)
}

func TestMemoryStoreActiveSubscriptions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	active := types.NewSubscription(uuid.New(), types.CategorySensor)
	inactive := types.NewSubscription(uuid.New(), types.CategorySensor)
	inactive.Active = false

	require.NoError(t, store.CreateSubscription(ctx, active))
	require.NoError(t, store.CreateSubscription(ctx, inactive))

	subs, err := store.GetActiveSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, active.ID, subs[0].ID)

	active.Active = false
	require.NoError(t, store.UpdateSubscription(ctx, active))
	subs, err = store.GetActiveSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

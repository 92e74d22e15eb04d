package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/processor"
	"github.com/gapilongo/OPiN/proof"
	"github.com/gapilongo/OPiN/storage"
	"github.com/gapilongo/OPiN/types"
)

func newTestPipeline(store storage.Store, opts ...Option) *Pipeline {
	return New(
		processor.NewDefaultRegistry(nil, nil),
		proof.NewDefaultService(nil, nil),
		store,
		nil,
		opts...,
	)
}

// failingStore wraps a MemoryStore and fails point writes on demand.
type failingStore struct {
	*storage.MemoryStore
	failCreatePoint bool
}

func (s *failingStore) CreatePoint(ctx context.Context, point *types.DataPoint) error {
	if s.failCreatePoint {
		return errors.ErrStorageUnavailable
	}
	return s.MemoryStore.CreatePoint(ctx, point)
}

// recordingNotifier captures notified point IDs.
type recordingNotifier struct {
	mu     sync.Mutex
	points []*types.DataPoint
}

func (n *recordingNotifier) NotifyPoint(_ context.Context, point *types.DataPoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.points = append(n.points, point)
}

func TestProcessBatchPreservesOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	pl := newTestPipeline(store, WithConcurrency(4))

	readings := []float64{0.1, 5.0, -1.2, 3.5, 2.0, -4.0, 0.0, 1.9}
	points := make([]*types.DataPoint, len(readings))
	for i, r := range readings {
		points[i] = types.NewDataPoint(types.CategorySensor, types.NumericValue(r), time.Now().UTC())
	}
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID.String()
	}

	batch := types.NewDataBatch(points)
	require.NoError(t, pl.ProcessBatch(context.Background(), batch))

	require.Len(t, batch.Points, len(readings))
	for i, p := range batch.Points {
		assert.Equal(t, ids[i], p.ID.String(), "index %d", i)
	}

	// Quality follows the reading at the same index.
	assert.Equal(t, types.QualityHigh, batch.Points[0].Quality)
	assert.Equal(t, types.QualityLow, batch.Points[1].Quality)
	assert.Equal(t, types.QualityLow, batch.Points[5].Quality)
	assert.True(t, batch.Processed)
	assert.Equal(t, types.VerificationCompleted, batch.VerificationStatus)
}

func TestProcessBatchRejectsReprocessing(t *testing.T) {
	pl := newTestPipeline(storage.NewMemoryStore())

	batch := types.NewDataBatch(nil)
	require.NoError(t, pl.ProcessBatch(context.Background(), batch))

	err := pl.ProcessBatch(context.Background(), batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBatchAlreadyDone)
}

func TestProcessBatchProofGating(t *testing.T) {
	store := storage.NewMemoryStore()
	pl := newTestPipeline(store)

	public := types.NewDataPoint(types.CategorySensor, types.NumericValue(1), time.Now().UTC())
	public.PrivacyLevel = types.PrivacyPublic
	public.Location = &types.Location{Latitude: 40, Longitude: -70, Accuracy: 50, Timestamp: time.Now().UTC()}

	private := types.NewDataPoint(types.CategorySensor, types.NumericValue(1), time.Now().UTC())
	private.PrivacyLevel = types.PrivacyPrivate
	private.Location = &types.Location{Latitude: 40, Longitude: -70, Accuracy: 50, Timestamp: time.Now().UTC()}

	batch := types.NewDataBatch([]*types.DataPoint{public, private})
	require.NoError(t, pl.ProcessBatch(context.Background(), batch))

	assert.Empty(t, public.Proof)
	require.NotEmpty(t, private.Proof)
	assert.True(t, proof.Verify(private.Proof))
}

func TestProcessBatchProofFailureIsNotFatal(t *testing.T) {
	store := storage.NewMemoryStore()
	pl := newTestPipeline(store)

	// Private sensor point with no location: the location circuit cannot
	// prove it, but the point still lands.
	p := types.NewDataPoint(types.CategorySensor, types.NumericValue(1), time.Now().UTC())
	p.PrivacyLevel = types.PrivacySensitive

	batch := types.NewDataBatch([]*types.DataPoint{p})
	require.NoError(t, pl.ProcessBatch(context.Background(), batch))

	assert.Empty(t, p.Proof)
	assert.Equal(t, types.QualityHigh, p.Quality)

	stored, err := store.GetPoint(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Proof)
}

func TestProcessBatchInvalidPointDegradesNotFails(t *testing.T) {
	store := storage.NewMemoryStore()
	pl := newTestPipeline(store)

	good := types.NewDataPoint(types.CategorySensor, types.NumericValue(1), time.Now().UTC())
	bad := types.NewDataPoint(types.CategorySensor, types.TextValue("not numeric"), time.Now().UTC())

	batch := types.NewDataBatch([]*types.DataPoint{good, bad})
	require.NoError(t, pl.ProcessBatch(context.Background(), batch))

	assert.Equal(t, types.QualityHigh, good.Quality)
	assert.Equal(t, types.QualityLow, bad.Quality)
	assert.Equal(t, types.VerificationCompleted, batch.VerificationStatus)

	// The degraded point is otherwise unchanged.
	text, _ := bad.Value.Text()
	assert.Equal(t, "not numeric", text)
	assert.NotContains(t, bad.Metadata, "processed_at")
}

func TestProcessPointInvalidDegradesAndStores(t *testing.T) {
	store := storage.NewMemoryStore()
	pl := newTestPipeline(store)

	p := types.NewDataPoint(types.CategorySensor, types.TextValue("not numeric"), time.Now().UTC())
	require.NoError(t, pl.ProcessPoint(context.Background(), p))

	stored, err := store.GetPoint(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.QualityLow, stored.Quality)
}

func TestProcessBatchStorageFailureFailsBatch(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failCreatePoint: true}
	pl := newTestPipeline(store)

	batch := types.NewDataBatch([]*types.DataPoint{
		types.NewDataPoint(types.CategorySensor, types.NumericValue(1), time.Now().UTC()),
	})

	err := pl.ProcessBatch(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.True(t, batch.Processed)
	assert.Equal(t, types.VerificationFailed, batch.VerificationStatus)
}

func TestProcessBatchNotifiesAfterCompletion(t *testing.T) {
	notifier := &recordingNotifier{}
	pl := newTestPipeline(storage.NewMemoryStore(), WithNotifier(notifier))

	batch := types.NewDataBatch([]*types.DataPoint{
		types.NewDataPoint(types.CategorySensor, types.NumericValue(1), time.Now().UTC()),
		types.NewDataPoint(types.CategorySensor, types.NumericValue(2), time.Now().UTC()),
	})
	require.NoError(t, pl.ProcessBatch(context.Background(), batch))

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Len(t, notifier.points, 2)
}

func TestProcessPointSingle(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	pl := newTestPipeline(store, WithNotifier(notifier))

	p := types.NewDataPoint(types.CategorySensor, types.NumericValue(2.5), time.Now().UTC())
	require.NoError(t, pl.ProcessPoint(context.Background(), p))

	assert.Equal(t, types.QualityHigh, p.Quality)
	_, err := store.GetPoint(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, notifier.points, 1)
}

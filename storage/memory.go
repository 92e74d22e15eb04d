package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
// Safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	points        map[uuid.UUID]*types.DataPoint
	batches       map[uuid.UUID]*types.DataBatch
	subscriptions map[uuid.UUID]*types.Subscription
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		points:        make(map[uuid.UUID]*types.DataPoint),
		batches:       make(map[uuid.UUID]*types.DataBatch),
		subscriptions: make(map[uuid.UUID]*types.Subscription),
	}
}

// CreatePoint implements Store.
func (s *MemoryStore) CreatePoint(_ context.Context, point *types.DataPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[point.ID] = point
	return nil
}

// GetPoint implements Store.
func (s *MemoryStore) GetPoint(_ context.Context, id uuid.UUID) (*types.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	point, ok := s.points[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return point, nil
}

// QueryPoints implements Store.
func (s *MemoryStore) QueryPoints(_ context.Context, query *types.DataQuery) ([]*types.DataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.DataPoint
	for _, point := range s.points {
		if matchesQuery(point, query) {
			out = append(out, point)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// CreateBatch implements Store.
func (s *MemoryStore) CreateBatch(_ context.Context, batch *types.DataBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
	return nil
}

// UpdateBatch implements Store.
func (s *MemoryStore) UpdateBatch(_ context.Context, batch *types.DataBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batch.ID]; !ok {
		return errors.ErrNotFound
	}
	s.batches[batch.ID] = batch
	return nil
}

// GetBatch implements Store.
func (s *MemoryStore) GetBatch(_ context.Context, id uuid.UUID) (*types.DataBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return batch, nil
}

// CreateSubscription implements Store.
func (s *MemoryStore) CreateSubscription(_ context.Context, sub *types.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
	return nil
}

// UpdateSubscription implements Store.
func (s *MemoryStore) UpdateSubscription(_ context.Context, sub *types.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[sub.ID]; !ok {
		return errors.ErrNotFound
	}
	s.subscriptions[sub.ID] = sub
	return nil
}

// GetActiveSubscriptions implements Store.
func (s *MemoryStore) GetActiveSubscriptions(_ context.Context) ([]*types.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Subscription
	for _, sub := range s.subscriptions {
		if sub.Active {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

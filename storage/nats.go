package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/pkg/retry"
	"github.com/gapilongo/OPiN/types"
)

// Bucket names used by the JetStream store.
const (
	pointsBucket        = "opin_points"
	batchesBucket       = "opin_batches"
	subscriptionsBucket = "opin_subscriptions"
)

// NATSStore persists records as JSON values in JetStream key/value buckets,
// keyed by record identifier.
type NATSStore struct {
	conn          *nats.Conn
	points        jetstream.KeyValue
	batches       jetstream.KeyValue
	subscriptions jetstream.KeyValue
}

// NewNATSStore connects to the server and creates or opens the three
// buckets. The store owns the connection and closes it on Close.
// Connection attempts are retried briefly so a store starting alongside
// its NATS server does not fail on the first dial.
func NewNATSStore(ctx context.Context, url string, opts ...nats.Option) (*NATSStore, error) {
	conn, err := retry.DoWithResult(ctx, retry.Quick(), func() (*nats.Conn, error) {
		return nats.Connect(url, opts...)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "nats_store", "New", "connecting to "+url)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, "nats_store", "New", "creating jetstream context")
	}

	store := &NATSStore{conn: conn}
	for _, b := range []struct {
		name   string
		target *jetstream.KeyValue
	}{
		{pointsBucket, &store.points},
		{batchesBucket, &store.batches},
		{subscriptionsBucket, &store.subscriptions},
	} {
		bucket, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:  b.name,
			Storage: jetstream.FileStorage,
		})
		if err != nil {
			conn.Close()
			return nil, errors.WrapTransient(err, "nats_store", "New", "creating bucket "+b.name)
		}
		*b.target = bucket
	}
	return store, nil
}

func putJSON(ctx context.Context, bucket jetstream.KeyValue, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapInvalid(err, "nats_store", "put", "encoding "+key)
	}
	if _, err := bucket.Put(ctx, key, data); err != nil {
		return errors.WrapTransient(errors.ErrStorageUnavailable, "nats_store", "put", "writing "+key+": "+err.Error())
	}
	return nil
}

func getJSON(ctx context.Context, bucket jetstream.KeyValue, key string, v any) error {
	entry, err := bucket.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		return errors.WrapTransient(err, "nats_store", "get", "reading "+key)
	}
	if err := json.Unmarshal(entry.Value(), v); err != nil {
		return errors.WrapInvalid(err, "nats_store", "get", "decoding "+key)
	}
	return nil
}

// CreatePoint implements Store.
func (s *NATSStore) CreatePoint(ctx context.Context, point *types.DataPoint) error {
	return putJSON(ctx, s.points, point.ID.String(), point)
}

// GetPoint implements Store.
func (s *NATSStore) GetPoint(ctx context.Context, id uuid.UUID) (*types.DataPoint, error) {
	var point types.DataPoint
	if err := getJSON(ctx, s.points, id.String(), &point); err != nil {
		return nil, err
	}
	return &point, nil
}

// QueryPoints implements Store. The bucket is scanned and filtered in
// process; point volumes here are bounded by bucket retention, not history.
func (s *NATSStore) QueryPoints(ctx context.Context, query *types.DataQuery) ([]*types.DataPoint, error) {
	keys, err := s.listKeys(ctx, s.points)
	if err != nil {
		return nil, err
	}

	var out []*types.DataPoint
	for _, key := range keys {
		var point types.DataPoint
		if err := getJSON(ctx, s.points, key, &point); err != nil {
			if stderrors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if matchesQuery(&point, query) {
			out = append(out, &point)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// CreateBatch implements Store.
func (s *NATSStore) CreateBatch(ctx context.Context, batch *types.DataBatch) error {
	return putJSON(ctx, s.batches, batch.ID.String(), batch)
}

// UpdateBatch implements Store.
func (s *NATSStore) UpdateBatch(ctx context.Context, batch *types.DataBatch) error {
	return putJSON(ctx, s.batches, batch.ID.String(), batch)
}

// GetBatch implements Store.
func (s *NATSStore) GetBatch(ctx context.Context, id uuid.UUID) (*types.DataBatch, error) {
	var batch types.DataBatch
	if err := getJSON(ctx, s.batches, id.String(), &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// CreateSubscription implements Store.
func (s *NATSStore) CreateSubscription(ctx context.Context, sub *types.Subscription) error {
	return putJSON(ctx, s.subscriptions, sub.ID.String(), sub)
}

// UpdateSubscription implements Store.
func (s *NATSStore) UpdateSubscription(ctx context.Context, sub *types.Subscription) error {
	return putJSON(ctx, s.subscriptions, sub.ID.String(), sub)
}

// GetActiveSubscriptions implements Store.
func (s *NATSStore) GetActiveSubscriptions(ctx context.Context) ([]*types.Subscription, error) {
	keys, err := s.listKeys(ctx, s.subscriptions)
	if err != nil {
		return nil, err
	}

	var out []*types.Subscription
	for _, key := range keys {
		var sub types.Subscription
		if err := getJSON(ctx, s.subscriptions, key, &sub); err != nil {
			if stderrors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if sub.Active {
			out = append(out, &sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *NATSStore) listKeys(ctx context.Context, bucket jetstream.KeyValue) ([]string, error) {
	lister, err := bucket.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "nats_store", "listKeys", "listing bucket")
	}
	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

// Close implements Store.
func (s *NATSStore) Close() error {
	s.conn.Close()
	return nil
}

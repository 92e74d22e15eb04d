// Package opin is an open platform for ingesting, scoring, and distributing
// categorized data points with privacy-preserving verification.
//
// # Overview
//
// OPiN accepts data points from external sources, validates and scores them
// per category, attaches privacy proofs where the privacy level requires one,
// persists the results, and notifies matching subscribers over webhooks,
// email, and websocket broadcast.
//
//	┌─────────────────────────────────────┐
//	│          HTTP Gateway               │  REST ingestion, queries,
//	│   (points, batches, subscriptions)  │  subscriptions, /ws
//	└─────────────────────────────────────┘
//	           ↓ submits to
//	┌─────────────────────────────────────┐
//	│          Pipeline                   │  validate → score →
//	│   (concurrent batch processing)     │  prove → persist → notify
//	└─────────────────────────────────────┘
//	           ↓ fans out via
//	┌─────────────────────────────────────┐
//	│    Subscriptions + Dispatcher       │  category/filter matching,
//	│  (webhook, email, broadcast)        │  retried delivery
//	└─────────────────────────────────────┘
//
// # Processing Model
//
// Every data point carries a category, a value, and a privacy level.
// Category-specific processors validate the payload and assign a quality
// score; points in unregistered categories pass through at low quality
// rather than being rejected. Points whose privacy level requires
// verification get a proof envelope generated from the point's contents,
// committed without exposing the underlying data.
//
// Batches are processed concurrently but results always keep submission
// order. A failure to validate or prove an individual point degrades that
// point; only a persistence failure fails the batch.
//
// # Packages
//
// Domain:
//   - types: data points, values, batches, subscriptions
//   - processor: category validation and quality scoring
//   - proof: privacy proof circuits and envelopes
//   - pipeline: concurrent ingestion orchestration
//   - aggregate: sum/average/statistics aggregation and overviews
//   - subscription: subscriber matching with cached lookups
//   - notify: multi-channel delivery with retry
//   - broker: websocket connection broker and topic fan-out
//
// Infrastructure:
//   - storage: Store interface with in-memory and NATS JetStream backends
//   - gateway/http: chi-based REST and websocket surface
//   - config: YAML configuration with hot reload
//   - errors: classified error handling (transient/invalid/fatal)
//   - metric: Prometheus metrics
//   - health: component health monitoring
//   - pkg/retry, pkg/worker, pkg/cache: shared utilities
//
// # Binary
//
// Build and run the platform:
//
//	go build -o bin/opin ./cmd/opin
//	./bin/opin --config configs/opin.yaml
//
// Without a config file the server starts with in-memory storage and
// defaults suitable for local development.
package opin

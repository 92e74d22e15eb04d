// Package pipeline drives batch processing: each point in a submitted batch
// is validated, scored, proven when its privacy level requires it, and
// persisted, with points handled concurrently and results kept in submission
// order.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/metric"
	"github.com/gapilongo/OPiN/processor"
	"github.com/gapilongo/OPiN/proof"
	"github.com/gapilongo/OPiN/storage"
	"github.com/gapilongo/OPiN/types"
)

// DefaultConcurrency bounds how many points of one batch process at once.
const DefaultConcurrency = 8

// Notifier receives every point that survives processing and persistence.
// Delivery is fire-and-forget from the pipeline's point of view.
type Notifier interface {
	NotifyPoint(ctx context.Context, point *types.DataPoint)
}

// Pipeline processes batches end to end.
type Pipeline struct {
	registry    *processor.Registry
	proofs      *proof.Service
	store       storage.Store
	notifier    Notifier
	metrics     *metric.Metrics
	logger      *slog.Logger
	concurrency int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifier installs a post-persistence notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithConcurrency overrides the per-batch worker bound.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline over the given collaborators.
func New(registry *processor.Registry, proofs *proof.Service, store storage.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		registry:    registry,
		proofs:      proofs,
		store:       store,
		logger:      logger.With("component", "pipeline"),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessPoint runs a single point through validation, scoring, proof
// generation, and persistence. Point-level failures degrade the point, same
// as on the batch path; only persistence failure is an error.
func (p *Pipeline) ProcessPoint(ctx context.Context, point *types.DataPoint) error {
	if err := p.processOne(ctx, point); err != nil {
		point.Quality = types.QualityLow
		if p.metrics != nil {
			p.metrics.RecordError("pipeline", "processing")
		}
		p.logger.Warn("point failed processing", "point_id", point.ID, "error", err)
	}
	if err := p.store.CreatePoint(ctx, point); err != nil {
		p.recordOp("create_point", "error")
		return errors.WrapTransient(err, "pipeline", "ProcessPoint", "persisting point")
	}
	p.recordOp("create_point", "success")
	if p.notifier != nil {
		p.notifier.NotifyPoint(ctx, point)
	}
	return nil
}

// ProcessBatch processes every point of the batch concurrently, persisting
// each result and the final batch record.
//
// Point order in the batch is preserved: each worker writes back to the index
// its input came from. Per-point failures degrade that point and continue;
// only a persistence failure marks the whole batch failed and returns an
// error. The batch must not have been processed before.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch *types.DataBatch) error {
	if batch.Processed {
		return errors.WrapInvalid(errors.ErrBatchAlreadyDone,
			"pipeline", "ProcessBatch", "batch "+batch.ID.String())
	}

	start := time.Now()
	if err := p.store.CreateBatch(ctx, batch); err != nil {
		return p.failBatch(ctx, batch, errors.WrapTransient(err,
			"pipeline", "ProcessBatch", "persisting batch record"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range batch.Points {
		g.Go(func() error {
			point := batch.Points[i]
			if err := p.processOne(gctx, point); err != nil {
				// A point-level failure degrades the point, it does not
				// sink the batch.
				point.Quality = types.QualityLow
				if p.metrics != nil {
					p.metrics.RecordError("pipeline", "processing")
				}
				p.logger.Warn("point failed processing",
					"point_id", point.ID, "batch_id", batch.ID, "error", err)
			}
			if err := p.store.CreatePoint(gctx, point); err != nil {
				p.recordOp("create_point", "error")
				return errors.WrapTransient(err, "pipeline", "ProcessBatch", "persisting point")
			}
			p.recordOp("create_point", "success")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return p.failBatch(ctx, batch, err)
	}

	batch.MarkProcessed(types.VerificationCompleted)
	if err := p.store.UpdateBatch(ctx, batch); err != nil {
		return p.failBatch(ctx, batch, errors.WrapTransient(err,
			"pipeline", "ProcessBatch", "recording batch completion"))
	}

	if p.metrics != nil {
		p.metrics.RecordBatchProcessed("completed")
		p.metrics.RecordProcessingDuration("pipeline", "process_batch", time.Since(start))
	}
	p.logger.Info("batch processed",
		"batch_id", batch.ID, "points", len(batch.Points), "elapsed", time.Since(start))

	if p.notifier != nil {
		for _, point := range batch.Points {
			p.notifier.NotifyPoint(ctx, point)
		}
	}
	return nil
}

// processOne scores a point and attaches a proof when required. Proof
// generation failure is logged and leaves the point unproven rather than
// failing it.
func (p *Pipeline) processOne(ctx context.Context, point *types.DataPoint) error {
	if err := p.registry.ProcessPoint(ctx, point); err != nil {
		return err
	}

	if point.PrivacyLevel.RequiresProof() && p.proofs != nil {
		encoded, err := p.proofs.GenerateForPoint(point)
		if err != nil {
			p.logger.Warn("proof generation failed, storing point unproven",
				"point_id", point.ID, "category", point.Category, "error", err)
		} else {
			point.Proof = encoded
		}
	}
	return nil
}

func (p *Pipeline) failBatch(ctx context.Context, batch *types.DataBatch, cause error) error {
	batch.MarkProcessed(types.VerificationFailed)
	if err := p.store.UpdateBatch(ctx, batch); err != nil {
		p.logger.Error("failed to record batch failure", "batch_id", batch.ID, "error", err)
	}
	if p.metrics != nil {
		p.metrics.RecordBatchProcessed("failed")
		p.metrics.RecordError("pipeline", "persistence")
	}
	return cause
}

func (p *Pipeline) recordOp(operation, status string) {
	if p.metrics != nil {
		p.metrics.RecordStorageOperation(operation, status)
	}
}

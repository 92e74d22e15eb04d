// Package processor implements category-specific validation and quality
// scoring for incoming data points.
//
// Each Processor owns one category. The Registry routes points to the
// processor registered for their category; points in a category with no
// registered processor pass through with low quality rather than failing.
package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/metric"
	"github.com/gapilongo/OPiN/types"
)

// Processor validates and scores data points of a single category.
type Processor interface {
	// Category returns the category this processor handles.
	Category() types.Category

	// Validate reports whether the point's shape is acceptable for this
	// category. Validate never mutates the point.
	Validate(point *types.DataPoint) bool

	// Process scores and enriches the point in place. Callers must have
	// validated the point first; Process may assume Validate returned true.
	Process(ctx context.Context, point *types.DataPoint) error
}

// Registry routes points to category processors. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	processors map[types.Category]Processor
	metrics    *metric.Metrics
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. The metrics may be nil.
func NewRegistry(metrics *metric.Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		processors: make(map[types.Category]Processor),
		metrics:    metrics,
		logger:     logger.With("component", "processor-registry"),
	}
}

// NewDefaultRegistry creates a registry with the built-in sensor and
// behavioral processors registered.
func NewDefaultRegistry(metrics *metric.Metrics, logger *slog.Logger) *Registry {
	r := NewRegistry(metrics, logger)
	r.Register(NewSensorProcessor())
	r.Register(NewBehavioralProcessor())
	return r
}

// Register adds or replaces the processor for its category.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Category()] = p
}

// Lookup returns the processor for a category, if one is registered.
func (r *Registry) Lookup(category types.Category) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[category]
	return p, ok
}

// ProcessPoint validates and processes a single point in place.
//
// Quality downgrades are outcomes, not errors: a point whose category has no
// registered processor, or that fails its category's validation, is stamped
// low quality and passed through untouched otherwise.
func (r *Registry) ProcessPoint(ctx context.Context, point *types.DataPoint) error {
	start := time.Now()

	proc, ok := r.Lookup(point.Category)
	if !ok {
		point.Quality = types.QualityLow
		r.logger.Debug("no processor for category, passing through",
			"category", point.Category, "point_id", point.ID)
		r.record(point, start)
		return nil
	}

	if !proc.Validate(point) {
		point.Quality = types.QualityLow
		r.logger.Debug("point failed validation, degrading",
			"category", point.Category, "point_id", point.ID)
		r.record(point, start)
		return nil
	}

	if err := proc.Process(ctx, point); err != nil {
		return errors.Wrap(err, "registry", "ProcessPoint", "processing")
	}

	r.record(point, start)
	return nil
}

func (r *Registry) record(point *types.DataPoint, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordPointProcessed(string(point.Category), string(point.Quality))
	r.metrics.RecordProcessingDuration("processor", "process_point", time.Since(start))
}

// stampProcessedAt records the processing wall time on the point.
func stampProcessedAt(point *types.DataPoint) {
	point.SetMetadata("processed_at", time.Now().UTC().Format(time.RFC3339Nano))
}

package proof

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/metric"
	"github.com/gapilongo/OPiN/types"
)

// Service routes proof generation to the circuit registered for a point's
// category. Safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	circuits map[types.Category]Circuit
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// NewService creates an empty proof service. The metrics may be nil.
func NewService(metrics *metric.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		circuits: make(map[types.Category]Circuit),
		metrics:  metrics,
		logger:   logger.With("component", "proof-service"),
	}
}

// NewDefaultService creates a service with the built-in location and
// behavioral circuits registered.
func NewDefaultService(metrics *metric.Metrics, logger *slog.Logger) *Service {
	s := NewService(metrics, logger)
	s.Register(NewLocationCircuit())
	s.Register(NewBehavioralCircuit())
	return s
}

// Register adds or replaces the circuit for its category.
func (s *Service) Register(c Circuit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.circuits[c.Category()] = c
}

// GenerateForPoint produces an encoded proof for the point, or ErrNoCircuit
// when no circuit serves its category.
func (s *Service) GenerateForPoint(point *types.DataPoint) (string, error) {
	s.mu.RLock()
	circuit, ok := s.circuits[point.Category]
	s.mu.RUnlock()
	if !ok {
		return "", errors.WrapInvalid(errors.ErrNoCircuit,
			"proof_service", "GenerateForPoint", "no circuit for category "+string(point.Category))
	}

	start := time.Now()
	envelope, err := circuit.Generate(point)
	if err != nil {
		s.record(circuit.Name(), "error")
		return "", err
	}

	encoded, err := envelope.Encode()
	if err != nil {
		s.record(circuit.Name(), "error")
		return "", errors.Wrap(err, "proof_service", "GenerateForPoint", "encoding proof")
	}

	s.record(circuit.Name(), "success")
	if s.metrics != nil {
		s.metrics.RecordProcessingDuration("proof", "generate", time.Since(start))
	}
	return encoded, nil
}

// VerifyPoint checks a point's attached proof against the circuit registered
// for its category. A point with no proof never verifies, and neither does a
// point in a category with no circuit, or one whose proof declares a
// different circuit than the category's.
func (s *Service) VerifyPoint(point *types.DataPoint) bool {
	if point.Proof == "" {
		return false
	}

	s.mu.RLock()
	circuit, ok := s.circuits[point.Category]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	envelope, err := Decode(point.Proof)
	if err != nil {
		return false
	}
	return circuit.Verify(envelope)
}

func (s *Service) record(circuit, status string) {
	if s.metrics != nil {
		s.metrics.RecordProofGenerated(circuit, status)
	}
}

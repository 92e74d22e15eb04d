package types

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus tracks the lifecycle of a batch through the pipeline.
type VerificationStatus string

// Batch verification states.
const (
	VerificationPending   VerificationStatus = "pending"
	VerificationCompleted VerificationStatus = "completed"
	VerificationFailed    VerificationStatus = "failed"
)

// DataBatch groups points submitted together for concurrent processing.
//
// Processed transitions from false to true exactly once and never back.
// Points keeps submission order; the pipeline writes results to the same
// index each input came from.
type DataBatch struct {
	ID                 uuid.UUID          `json:"id"`
	Points             []*DataPoint       `json:"points"`
	CreatedAt          time.Time          `json:"created_at"`
	Processed          bool               `json:"processed"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	ProcessedAt        *time.Time         `json:"processed_at,omitempty"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
}

// NewDataBatch creates an unprocessed batch over the given points.
func NewDataBatch(points []*DataPoint) *DataBatch {
	return &DataBatch{
		ID:                 uuid.New(),
		Points:             points,
		CreatedAt:          time.Now().UTC(),
		VerificationStatus: VerificationPending,
	}
}

// MarkProcessed records completion with the given terminal status.
func (b *DataBatch) MarkProcessed(status VerificationStatus) {
	now := time.Now().UTC()
	b.Processed = true
	b.VerificationStatus = status
	b.ProcessedAt = &now
}

// Package types defines the core data model shared by all OPiN components:
// data points, batches, subscriptions, and notification events.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category classifies a data point by its origin domain.
type Category string

// Known data categories.
const (
	CategorySensor        Category = "sensor"
	CategoryBehavioral    Category = "behavioral"
	CategoryEnvironmental Category = "environmental"
	CategoryMarket        Category = "market"
	CategoryAITraining    Category = "ai_training"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategorySensor, CategoryBehavioral, CategoryEnvironmental,
		CategoryMarket, CategoryAITraining:
		return true
	}
	return false
}

// Quality is the categorical confidence rating assigned to a data point
// after processing.
type Quality string

// Quality levels, ordered from best to least trusted.
const (
	QualityHigh       Quality = "high"
	QualityMedium     Quality = "medium"
	QualityLow        Quality = "low"
	QualityUnverified Quality = "unverified"
)

// Valid reports whether the quality is one of the known values.
func (q Quality) Valid() bool {
	switch q {
	case QualityHigh, QualityMedium, QualityLow, QualityUnverified:
		return true
	}
	return false
}

// PrivacyLevel is the visibility tier controlling whether a proof is required.
type PrivacyLevel string

// Privacy levels, ordered from most open to most restricted.
const (
	PrivacyPublic    PrivacyLevel = "public"
	PrivacyProtected PrivacyLevel = "protected"
	PrivacyPrivate   PrivacyLevel = "private"
	PrivacySensitive PrivacyLevel = "sensitive"
)

// Valid reports whether the privacy level is one of the known values.
func (p PrivacyLevel) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyProtected, PrivacyPrivate, PrivacySensitive:
		return true
	}
	return false
}

// RequiresProof reports whether points at this privacy level must carry a
// privacy proof.
func (p PrivacyLevel) RequiresProof() bool {
	return p == PrivacyPrivate || p == PrivacySensitive
}

// Location is an optional geographic attachment on a data point.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks coordinate bounds and accuracy sign.
func (l *Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", l.Longitude)
	}
	if l.Accuracy < 0 {
		return fmt.Errorf("accuracy %f must be >= 0", l.Accuracy)
	}
	return nil
}

// DataSource identifies the producer of a data point.
type DataSource struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Version  string         `json:"version,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DataPoint is a single measurement contributed by a producer.
//
// The identifier is immutable once assigned. Quality, Metadata, and Proof are
// mutated only by the batch pipeline during processing. Proof is present iff
// the privacy level requires one and generation succeeded; an empty Proof is
// otherwise legal.
type DataPoint struct {
	ID           uuid.UUID      `json:"id"`
	Category     Category       `json:"category"`
	Value        Value          `json:"value"`
	Timestamp    time.Time      `json:"timestamp"`
	Source       DataSource     `json:"source"`
	Quality      Quality        `json:"quality"`
	PrivacyLevel PrivacyLevel   `json:"privacy_level"`
	Location     *Location      `json:"location,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Proof        string         `json:"proof,omitempty"`
}

// NewDataPoint creates a point with a fresh identifier and the default
// unverified quality and protected privacy level.
func NewDataPoint(category Category, value Value, ts time.Time) *DataPoint {
	return &DataPoint{
		ID:           uuid.New(),
		Category:     category,
		Value:        value,
		Timestamp:    ts,
		Quality:      QualityUnverified,
		PrivacyLevel: PrivacyProtected,
	}
}

// SetMetadata stores a metadata entry, allocating the map on first use.
func (p *DataPoint) SetMetadata(key string, value any) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata[key] = value
}

// Summary returns a human-readable one-line description used in notifications.
func (p *DataPoint) Summary() string {
	switch {
	case p.Value.IsNumeric():
		n, _ := p.Value.Numeric()
		return fmt.Sprintf("%s reading %.4g (%s quality)", p.Category, n, p.Quality)
	case p.Value.IsStructured():
		m, _ := p.Value.Structured()
		if action, ok := m["action"].(string); ok {
			return fmt.Sprintf("%s event %q (%s quality)", p.Category, action, p.Quality)
		}
		return fmt.Sprintf("%s event with %d fields (%s quality)", p.Category, len(m), p.Quality)
	default:
		s, _ := p.Value.Text()
		return fmt.Sprintf("%s value %q (%s quality)", p.Category, s, p.Quality)
	}
}

// DataQuery describes a point lookup handled by the persistence collaborator.
type DataQuery struct {
	Category         *Category      `json:"category,omitempty"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	QualityThreshold *Quality       `json:"quality_threshold,omitempty"`
	PrivacyLevel     *PrivacyLevel  `json:"privacy_level,omitempty"`
	Filters          map[string]any `json:"filters,omitempty"`
	Aggregation      string         `json:"aggregation,omitempty"`
}

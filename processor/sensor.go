package processor

import (
	"context"
	"math"

	"github.com/gapilongo/OPiN/types"
)

// outlierThreshold is the absolute reading beyond which a sensor point is
// considered an outlier and scored low quality.
const outlierThreshold = 3.0

// SensorProcessor scores sensor readings. Numeric readings within the
// outlier threshold are high quality, readings beyond it are low. Structured
// readings carry no single value to score and pass through untouched.
type SensorProcessor struct{}

// NewSensorProcessor creates a sensor processor.
func NewSensorProcessor() *SensorProcessor {
	return &SensorProcessor{}
}

// Category implements Processor.
func (p *SensorProcessor) Category() types.Category {
	return types.CategorySensor
}

// Validate requires a numeric or structured value and, when a location is
// attached, valid coordinates with a capture timestamp.
func (p *SensorProcessor) Validate(point *types.DataPoint) bool {
	if !point.Value.IsNumeric() && !point.Value.IsStructured() {
		return false
	}
	if loc := point.Location; loc != nil {
		if loc.Validate() != nil || loc.Timestamp.IsZero() {
			return false
		}
	}
	return true
}

// Process scores a numeric reading against the outlier threshold and stamps
// the processing time. Structured values only get the stamp.
func (p *SensorProcessor) Process(_ context.Context, point *types.DataPoint) error {
	if reading, ok := point.Value.Numeric(); ok {
		if math.Abs(reading) > outlierThreshold {
			point.Quality = types.QualityLow
		} else {
			point.Quality = types.QualityHigh
		}
	}
	stampProcessedAt(point)
	return nil
}

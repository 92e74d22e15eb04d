package processor

import (
	"context"
	"time"

	"github.com/gapilongo/OPiN/types"
)

// timestampWindow is how far the embedded event timestamp may drift from the
// point timestamp before quality degrades to medium.
const timestampWindow = 300 * time.Second

// identifierKeys are personal identifiers stripped from behavioral records
// before any further handling.
var identifierKeys = []string{"user_id", "device_id", "ip_address"}

// requiredBehavioralKeys must all be present in a behavioral record.
var requiredBehavioralKeys = []string{"action", "context", "timestamp"}

// BehavioralProcessor anonymizes behavioral event records and scores them by
// timestamp consistency.
type BehavioralProcessor struct{}

// NewBehavioralProcessor creates a behavioral processor.
func NewBehavioralProcessor() *BehavioralProcessor {
	return &BehavioralProcessor{}
}

// Category implements Processor.
func (p *BehavioralProcessor) Category() types.Category {
	return types.CategoryBehavioral
}

// Validate requires a structured value carrying action, context, and
// timestamp keys.
func (p *BehavioralProcessor) Validate(point *types.DataPoint) bool {
	record, ok := point.Value.Structured()
	if !ok {
		return false
	}
	for _, key := range requiredBehavioralKeys {
		if _, present := record[key]; !present {
			return false
		}
	}
	return true
}

// Process strips personal identifiers from the record, scores the point by
// how closely the embedded event timestamp agrees with the point timestamp,
// and stamps the processing time. Stripping happens before scoring so
// identifiers never survive, whatever the quality outcome.
func (p *BehavioralProcessor) Process(_ context.Context, point *types.DataPoint) error {
	record, _ := point.Value.Structured()

	anonymized := make(map[string]any, len(record))
	for k, v := range record {
		anonymized[k] = v
	}
	for _, key := range identifierKeys {
		delete(anonymized, key)
	}
	point.Value = types.StructuredValue(anonymized)
	point.SetMetadata("anonymized", true)

	if eventTime, ok := parseEventTimestamp(anonymized["timestamp"]); ok {
		drift := point.Timestamp.Sub(eventTime)
		if drift < 0 {
			drift = -drift
		}
		if drift <= timestampWindow {
			point.Quality = types.QualityHigh
		} else {
			point.Quality = types.QualityMedium
		}
	} else {
		point.Quality = types.QualityMedium
	}

	stampProcessedAt(point)
	return nil
}

// parseEventTimestamp accepts either an RFC 3339 string or a float epoch in
// seconds, the two shapes producers actually send.
func parseEventTimestamp(raw any) (time.Time, bool) {
	switch t := raw.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), true
	case time.Time:
		return t, true
	default:
		return time.Time{}, false
	}
}

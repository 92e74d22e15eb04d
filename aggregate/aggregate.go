// Package aggregate computes summaries over collections of data points.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

// Kind selects the aggregation computed over a point set.
type Kind string

// Supported aggregation kinds.
const (
	KindSum        Kind = "sum"
	KindAverage    Kind = "average"
	KindStatistics Kind = "statistics"
)

// Aggregate computes the named aggregation over the numeric values of the
// given points. Points without a numeric value are skipped.
//
// Empty input is not an error: sum yields {"sum": 0}, average yields
// {"average": 0}, and statistics yields an empty map. An unknown kind is a
// caller error.
func Aggregate(points []*types.DataPoint, kind Kind) (map[string]float64, error) {
	values := numericValues(points)

	switch kind {
	case KindSum:
		return map[string]float64{"sum": sum(values)}, nil
	case KindAverage:
		return map[string]float64{"average": average(values)}, nil
	case KindStatistics:
		return statistics(values), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrUnsupportedKind,
			"aggregate", "Aggregate", "kind "+string(kind))
	}
}

func numericValues(points []*types.DataPoint) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if n, ok := p.Value.Numeric(); ok {
			values = append(values, n)
		}
	}
	return values
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// statistics returns count, min, max, average, and median. The median of an
// even-length set is the lower of the two middle values.
func statistics(values []float64) map[string]float64 {
	if len(values) == 0 {
		return map[string]float64{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return map[string]float64{
		"count":   float64(len(sorted)),
		"min":     sorted[0],
		"max":     sorted[len(sorted)-1],
		"average": average(sorted),
		"median":  sorted[(len(sorted)-1)/2],
	}
}

// Overview is a percentage breakdown of a point population, the payload
// behind the analytics endpoint.
type Overview struct {
	TotalPoints  int                `json:"total_points"`
	ByCategory   map[string]float64 `json:"by_category"`
	ByQuality    map[string]float64 `json:"by_quality"`
	ByRecency    map[string]float64 `json:"by_recency"`
	ProofCovered float64            `json:"proof_covered"`
}

// Recency bucket boundaries.
const (
	recencyHour = time.Hour
	recencyDay  = 24 * time.Hour
	recencyWeek = 7 * 24 * time.Hour
)

// BuildOverview computes distribution percentages over the points relative
// to now. Percentages are rounded to two decimals.
func BuildOverview(points []*types.DataPoint, now time.Time) *Overview {
	o := &Overview{
		TotalPoints: len(points),
		ByCategory:  make(map[string]float64),
		ByQuality:   make(map[string]float64),
		ByRecency:   make(map[string]float64),
	}
	if len(points) == 0 {
		return o
	}

	proven := 0
	for _, p := range points {
		o.ByCategory[string(p.Category)]++
		o.ByQuality[string(p.Quality)]++
		o.ByRecency[recencyBucket(now.Sub(p.Timestamp))]++
		if p.Proof != "" {
			proven++
		}
	}

	total := float64(len(points))
	for k, v := range o.ByCategory {
		o.ByCategory[k] = percent(v, total)
	}
	for k, v := range o.ByQuality {
		o.ByQuality[k] = percent(v, total)
	}
	for k, v := range o.ByRecency {
		o.ByRecency[k] = percent(v, total)
	}
	o.ProofCovered = percent(float64(proven), total)
	return o
}

func recencyBucket(age time.Duration) string {
	switch {
	case age <= recencyHour:
		return "last_hour"
	case age <= recencyDay:
		return "last_day"
	case age <= recencyWeek:
		return "last_week"
	default:
		return "older"
	}
}

func percent(part, total float64) float64 {
	return math.Round(part/total*10000) / 100
}

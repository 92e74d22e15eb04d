package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

func numericPoints(values ...float64) []*types.DataPoint {
	points := make([]*types.DataPoint, len(values))
	for i, v := range values {
		points[i] = types.NewDataPoint(types.CategorySensor, types.NumericValue(v), time.Now().UTC())
	}
	return points
}

func TestAggregateSum(t *testing.T) {
	result, err := Aggregate(numericPoints(1, 2, 3.5), KindSum)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"sum": 6.5}, result)
}

func TestAggregateAverage(t *testing.T) {
	result, err := Aggregate(numericPoints(2, 4, 6), KindAverage)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"average": 4}, result)
}

func TestAggregateEmptySets(t *testing.T) {
	result, err := Aggregate(nil, KindSum)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"sum": 0}, result)

	result, err = Aggregate(nil, KindAverage)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"average": 0}, result)

	result, err = Aggregate(nil, KindStatistics)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAggregateStatistics(t *testing.T) {
	result, err := Aggregate(numericPoints(4, 1, 3, 2), KindStatistics)
	require.NoError(t, err)

	assert.Equal(t, float64(4), result["count"])
	assert.Equal(t, 2.5, result["average"])
	assert.Equal(t, float64(1), result["min"])
	assert.Equal(t, float64(4), result["max"])
	// Even count takes the lower of the two middle sorted values, so
	// [1 2 3 4] has median 2.
	assert.Equal(t, float64(2), result["median"])
}

func TestAggregateMedianOddCount(t *testing.T) {
	result, err := Aggregate(numericPoints(9, 1, 5), KindStatistics)
	require.NoError(t, err)
	assert.Equal(t, float64(5), result["median"])
}

func TestAggregateUnsupportedKind(t *testing.T) {
	_, err := Aggregate(numericPoints(1), Kind("variance"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedKind)
	assert.True(t, errors.IsInvalid(err))
}

func TestAggregateSkipsNonNumeric(t *testing.T) {
	points := numericPoints(1, 2)
	points = append(points, types.NewDataPoint(
		types.CategoryBehavioral, types.StructuredValue(map[string]any{"action": "x"}), time.Now()))

	result, err := Aggregate(points, KindSum)
	require.NoError(t, err)
	assert.Equal(t, float64(3), result["sum"])
}

func TestAggregateSumAverageConsistency(t *testing.T) {
	values := []float64{0.5, -2, 7.25, 3, 3}
	points := numericPoints(values...)

	sumRes, err := Aggregate(points, KindSum)
	require.NoError(t, err)
	avgRes, err := Aggregate(points, KindAverage)
	require.NoError(t, err)

	assert.InDelta(t, sumRes["sum"], avgRes["average"]*float64(len(values)), 1e-9)
}

func TestBuildOverview(t *testing.T) {
	now := time.Now().UTC()

	fresh := types.NewDataPoint(types.CategorySensor, types.NumericValue(1), now.Add(-time.Minute))
	fresh.Quality = types.QualityHigh
	fresh.Proof = "proof"
	stale := types.NewDataPoint(types.CategoryBehavioral, types.NumericValue(2), now.Add(-48*time.Hour))
	stale.Quality = types.QualityLow

	o := BuildOverview([]*types.DataPoint{fresh, stale}, now)

	assert.Equal(t, 2, o.TotalPoints)
	assert.Equal(t, 50.0, o.ByCategory["sensor"])
	assert.Equal(t, 50.0, o.ByCategory["behavioral"])
	assert.Equal(t, 50.0, o.ByQuality["high"])
	assert.Equal(t, 50.0, o.ByRecency["last_hour"])
	assert.Equal(t, 50.0, o.ByRecency["last_week"])
	assert.Equal(t, 50.0, o.ProofCovered)
}

func TestBuildOverviewEmpty(t *testing.T) {
	o := BuildOverview(nil, time.Now())
	assert.Equal(t, 0, o.TotalPoints)
	assert.Empty(t, o.ByCategory)
}

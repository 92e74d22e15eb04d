package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

func locatedPoint(lat, lng, accuracy float64) *types.DataPoint {
	p := types.NewDataPoint(types.CategorySensor, types.NumericValue(1.0), time.Now().UTC())
	p.PrivacyLevel = types.PrivacyPrivate
	p.Location = &types.Location{Latitude: lat, Longitude: lng, Accuracy: accuracy, Timestamp: time.Now()}
	return p
}

func TestLocationProofRoundTrip(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	encoded, err := svc.GenerateForPoint(locatedPoint(40.7, -74.0, 100))
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	assert.True(t, Verify(encoded))

	env, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "location_v1", env.Circuit)
	assert.Len(t, env.Commitment, 64)
	assert.Equal(t, float64(100), env.PublicInputs["accuracy"])
}

func TestLocationProofDefaultsZeroAccuracy(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	encoded, err := svc.GenerateForPoint(locatedPoint(40.7, -74.0, 0))
	require.NoError(t, err)

	env, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, float64(1000), env.PublicInputs["accuracy"])
}

func TestLocationProofRequiresLocation(t *testing.T) {
	circuit := NewLocationCircuit()
	p := types.NewDataPoint(types.CategorySensor, types.NumericValue(1.0), time.Now())

	_, err := circuit.Generate(p)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestBehavioralProofIgnoresIdentifiers(t *testing.T) {
	circuit := NewBehavioralCircuit()

	base := map[string]any{"action": "login", "context": "web", "timestamp": "2026-01-01T00:00:00Z"}
	withIDs := map[string]any{
		"action": "login", "context": "web", "timestamp": "2026-01-01T00:00:00Z",
		"user_id": "u-1", "device_id": "d-1", "ip_address": "10.0.0.1",
	}

	a, err := circuit.Generate(types.NewDataPoint(types.CategoryBehavioral, types.StructuredValue(base), time.Now()))
	require.NoError(t, err)
	b, err := circuit.Generate(types.NewDataPoint(types.CategoryBehavioral, types.StructuredValue(withIDs), time.Now()))
	require.NoError(t, err)

	assert.Equal(t, a.Commitment, b.Commitment)
}

func TestBehavioralProofDistinguishesRecords(t *testing.T) {
	circuit := NewBehavioralCircuit()

	a, err := circuit.Generate(types.NewDataPoint(types.CategoryBehavioral,
		types.StructuredValue(map[string]any{"action": "login"}), time.Now()))
	require.NoError(t, err)
	b, err := circuit.Generate(types.NewDataPoint(types.CategoryBehavioral,
		types.StructuredValue(map[string]any{"action": "logout"}), time.Now()))
	require.NoError(t, err)

	assert.NotEqual(t, a.Commitment, b.Commitment)
}

func TestServiceNoCircuitForCategory(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	p := types.NewDataPoint(types.CategoryMarket, types.NumericValue(10), time.Now())
	p.PrivacyLevel = types.PrivacySensitive

	_, err := svc.GenerateForPoint(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoCircuit)
}

func TestBehavioralProofPublicInputs(t *testing.T) {
	circuit := NewBehavioralCircuit()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := types.NewDataPoint(types.CategoryBehavioral,
		types.StructuredValue(map[string]any{"action": "login"}), ts)
	env, err := circuit.Generate(p)
	require.NoError(t, err)

	assert.Equal(t, "behavioral", env.PublicInputs["category"])
	assert.Equal(t, ts.Format(time.RFC3339Nano), env.PublicInputs["timestamp"])
	assert.True(t, circuit.Verify(env))

	stripped := *env
	stripped.PublicInputs = nil
	assert.False(t, circuit.Verify(&stripped), "category must be embedded")
}

func TestVerifyPointRoundTrip(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	p := locatedPoint(40.7, -74.0, 100)
	encoded, err := svc.GenerateForPoint(p)
	require.NoError(t, err)
	p.Proof = encoded

	assert.True(t, svc.VerifyPoint(p))
}

func TestVerifyPointAbsentCircuitIsFalse(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	// Structurally valid proof generated by the location circuit, carried
	// by a point in a category with no registered circuit.
	donor := locatedPoint(40.7, -74.0, 100)
	encoded, err := svc.GenerateForPoint(donor)
	require.NoError(t, err)

	p := types.NewDataPoint(types.CategoryMarket, types.NumericValue(10), time.Now())
	p.Proof = encoded
	assert.False(t, svc.VerifyPoint(p))
}

func TestVerifyPointCircuitMismatchIsFalse(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	// A location proof attached to a behavioral point declares the wrong
	// circuit for the category.
	donor := locatedPoint(40.7, -74.0, 100)
	encoded, err := svc.GenerateForPoint(donor)
	require.NoError(t, err)

	p := types.NewDataPoint(types.CategoryBehavioral,
		types.StructuredValue(map[string]any{"action": "login"}), time.Now())
	p.Proof = encoded
	assert.False(t, svc.VerifyPoint(p))
}

func TestVerifyPointNoProofIsFalse(t *testing.T) {
	svc := NewDefaultService(nil, nil)

	p := locatedPoint(40.7, -74.0, 100)
	assert.False(t, svc.VerifyPoint(p))
}

func TestVerifyStructuralOnly(t *testing.T) {
	assert.False(t, Verify(""))
	assert.False(t, Verify("not base64!!"))

	truncated := Envelope{Circuit: "location_v1", Commitment: "abc", GeneratedAt: time.Now()}
	enc, err := truncated.Encode()
	require.NoError(t, err)
	assert.False(t, Verify(enc))

	anonymous := Envelope{Commitment: validCommitment(), GeneratedAt: time.Now()}
	enc, err = anonymous.Encode()
	require.NoError(t, err)
	assert.False(t, Verify(enc))

	good := Envelope{Circuit: "x", Commitment: validCommitment(), GeneratedAt: time.Now()}
	enc, err = good.Encode()
	require.NoError(t, err)
	assert.True(t, Verify(enc))
}

func validCommitment() string {
	c := make([]byte, 64)
	for i := range c {
		c[i] = 'a'
	}
	return string(c)
}

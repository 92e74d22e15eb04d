package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

// Circuit derives a proof envelope from the privacy-relevant parts of a
// point. Each circuit serves one category.
type Circuit interface {
	Name() string
	Category() types.Category
	Generate(point *types.DataPoint) (*Envelope, error)

	// Verify checks that the envelope was produced by this circuit and has
	// the shape this circuit emits. Like the rest of the proof system it is
	// a structural check, not a cryptographic one.
	Verify(e *Envelope) bool
}

// defaultAccuracyMeters stands in when a location reports no accuracy, so
// region derivation always has a nonzero cell size.
const defaultAccuracyMeters = 1000.0

// LocationCircuit commits to the coarse region a point was captured in
// without revealing the raw coordinates. The region cell scales with the
// reported accuracy, so imprecise fixes land in larger cells.
type LocationCircuit struct{}

// NewLocationCircuit creates a location circuit.
func NewLocationCircuit() *LocationCircuit { return &LocationCircuit{} }

// Name implements Circuit.
func (c *LocationCircuit) Name() string { return "location_v1" }

// Category implements Circuit.
func (c *LocationCircuit) Category() types.Category { return types.CategorySensor }

// Generate implements Circuit. Points without a location cannot be proven.
func (c *LocationCircuit) Generate(point *types.DataPoint) (*Envelope, error) {
	loc := point.Location
	if loc == nil {
		return nil, errors.WrapInvalid(errors.ErrProofGeneration,
			"location_circuit", "Generate", "point has no location")
	}

	accuracy := loc.Accuracy
	if accuracy <= 0 {
		accuracy = defaultAccuracyMeters
	}

	regionLat := math.Round(loc.Latitude / accuracy)
	regionLng := math.Round(loc.Longitude / accuracy)
	digest := sha256.Sum256(fmt.Appendf(nil, "%.0f:%.0f", regionLat, regionLng))

	return &Envelope{
		Circuit:    c.Name(),
		Commitment: hex.EncodeToString(digest[:]),
		PublicInputs: map[string]any{
			"accuracy": accuracy,
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Verify implements Circuit.
func (c *LocationCircuit) Verify(e *Envelope) bool {
	return e.Circuit == c.Name() && e.wellFormed() && e.hasPublicInput("accuracy")
}

// behavioralIdentifierKeys never participate in the pattern commitment, even
// if an upstream stage left them in place.
var behavioralIdentifierKeys = []string{"user_id", "device_id", "ip_address"}

// BehavioralCircuit commits to the shape of a behavioral record after
// personal identifiers are removed.
type BehavioralCircuit struct{}

// NewBehavioralCircuit creates a behavioral circuit.
func NewBehavioralCircuit() *BehavioralCircuit { return &BehavioralCircuit{} }

// Name implements Circuit.
func (c *BehavioralCircuit) Name() string { return "behavioral_v1" }

// Category implements Circuit.
func (c *BehavioralCircuit) Category() types.Category { return types.CategoryBehavioral }

// Generate implements Circuit. The commitment hashes a canonical JSON
// encoding of the identifier-stripped record; map keys serialize sorted, so
// equal records always commit equally.
func (c *BehavioralCircuit) Generate(point *types.DataPoint) (*Envelope, error) {
	record, ok := point.Value.Structured()
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrProofGeneration,
			"behavioral_circuit", "Generate", "point value is not structured")
	}

	stripped := make(map[string]any, len(record))
	for k, v := range record {
		stripped[k] = v
	}
	for _, key := range behavioralIdentifierKeys {
		delete(stripped, key)
	}

	canonical, err := json.Marshal(stripped)
	if err != nil {
		return nil, errors.Wrap(err, "behavioral_circuit", "Generate", "encoding record")
	}
	digest := sha256.Sum256(canonical)

	return &Envelope{
		Circuit:    c.Name(),
		Commitment: hex.EncodeToString(digest[:]),
		PublicInputs: map[string]any{
			"category":  string(point.Category),
			"timestamp": point.Timestamp.UTC().Format(time.RFC3339Nano),
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Verify implements Circuit.
func (c *BehavioralCircuit) Verify(e *Envelope) bool {
	return e.Circuit == c.Name() && e.wellFormed() && e.hasPublicInput("category")
}

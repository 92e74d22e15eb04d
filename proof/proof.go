// Package proof generates and verifies placeholder privacy proofs for data
// points at restricted privacy levels.
//
// Proofs are commitments, not zero-knowledge arguments: a circuit derives a
// deterministic hash from the privacy-relevant parts of a point, and
// verification checks only the structural shape of the encoded proof. The
// encoding leaves room to swap in a real proving system later without
// changing callers.
package proof

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Envelope is the decoded form of a proof string attached to a data point.
type Envelope struct {
	Circuit      string         `json:"circuit"`
	Commitment   string         `json:"commitment"`
	PublicInputs map[string]any `json:"public_inputs,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// Encode serializes the envelope to the compact string stored on a point.
func (e *Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a proof string back into an envelope.
func Decode(encoded string) (*Envelope, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// commitmentHexLen is the length of a hex-encoded SHA-256 digest.
const commitmentHexLen = 64

// wellFormed reports whether the envelope names a circuit, carries a
// full-length commitment, and has a generation time.
func (e *Envelope) wellFormed() bool {
	return e.Circuit != "" &&
		len(e.Commitment) == commitmentHexLen &&
		!e.GeneratedAt.IsZero()
}

// hasPublicInput reports whether the named public input is present.
func (e *Envelope) hasPublicInput(name string) bool {
	_, ok := e.PublicInputs[name]
	return ok
}

// Verify checks the structural shape of a proof string: it must decode, name
// a circuit, carry a full-length commitment, and have a generation time. No
// cryptographic statement is checked. Circuit-specific checks live on the
// circuit's own Verify.
func Verify(encoded string) bool {
	if encoded == "" {
		return false
	}
	e, err := Decode(encoded)
	if err != nil {
		return false
	}
	return e.wellFormed()
}

package consensus

import (
	"encoding/json"
	"fmt"

	"go.dedis.ch/kyber/v4"

	"github.com/chess-bft/node/attestation"
)

// sealMessage marshals v, signs the resulting bytes with kp, and wraps both
// in an attestedMsg envelope for publication.
func sealMessage(kp attestation.KeyPair, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("seal message: %w", err)
	}
	sig, err := attestation.Sign(kp, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attestedMsg{Payload: payload, Sig: sig})
}

// openMessage verifies the envelope's signature against pub and unmarshals
// the inner payload into v. A node with no known attestation key for the
// sender (pub == nil) skips verification — attestation is a supplement to,
// not a replacement for, the bus's own transport authentication (spec §9
// Open Question 1 notes transport auth is what actually prevents `source`
// forgery; this layer adds defense against a compromised-bus replay).
func openMessage(pub kyber.Point, raw []byte, v any) error {
	var env attestedMsg
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("open message: %w", err)
	}
	if pub != nil {
		if err := attestation.Verify(pub, env.Payload, env.Sig); err != nil {
			return fmt.Errorf("open message: %w", err)
		}
	}
	return json.Unmarshal(env.Payload, v)
}

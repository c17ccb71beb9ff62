// Package attestation resolves spec §9 Open Question 1: on a QUORUM vote,
// the voter identity is taken from the bus-provided source, and the voter
// never signs its own decision, so a malicious replica forwarding a
// fabricated yes-vote is only stopped by transport authentication. This
// package adds an application-level Schnorr signature on every DECISION
// message, independent of whatever the bus does. COMMIT blocks are
// published without such a signature.
//
// It is adapted from the teacher's common/zka.go, which builds zero-
// knowledge discrete-log-equality proofs over a kyber.Group for mental-
// poker shuffle attestation. The same group and scalar/point algebra
// underlies a plain Schnorr signature, so this package repurposes the DL
// machinery for message authentication instead of shuffle proofs.
package attestation

import (
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/group/edwards25519"
	"go.dedis.ch/kyber/v4/sign/schnorr"
	"go.dedis.ch/kyber/v4/util/random"
)

// Suite is the fixed group used for all attestation signatures: every peer
// must agree on it for signatures to verify across replicas.
var Suite = edwards25519.NewBlakeSHA256Ed25519()

// KeyPair is a peer's Schnorr signing identity, distinct from its
// secp256k1 transaction-signing key (spec §4.4) — this key only ever signs
// bus messages, never chess transactions.
type KeyPair struct {
	Private kyber.Scalar
	Public  kyber.Point
}

// GenerateKeyPair produces a fresh attestation identity.
func GenerateKeyPair() KeyPair {
	priv := Suite.Scalar().Pick(random.New())
	pub := Suite.Point().Mul(priv, nil)
	return KeyPair{Private: priv, Public: pub}
}

// Sign produces a Schnorr signature over msg.
func Sign(kp KeyPair, msg []byte) ([]byte, error) {
	sig, err := schnorr.Sign(Suite, kp.Private, msg)
	if err != nil {
		return nil, fmt.Errorf("attestation: sign: %w", err)
	}
	return sig, nil
}

// Verify checks a Schnorr signature produced by Sign against pub.
func Verify(pub kyber.Point, msg, sig []byte) error {
	if err := schnorr.Verify(Suite, pub, msg, sig); err != nil {
		return fmt.Errorf("attestation: verify: %w", err)
	}
	return nil
}

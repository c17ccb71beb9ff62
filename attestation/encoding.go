package attestation

import (
	"encoding/hex"
	"fmt"

	"go.dedis.ch/kyber/v4"
)

// PublicKeyHex hex-encodes a public point for inclusion in peer-identity
// announcements.
func PublicKeyHex(pub kyber.Point) (string, error) {
	b, err := pub.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("attestation: marshal public key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ParsePublicKeyHex decodes a hex-encoded public point in Suite's group.
func ParsePublicKeyHex(s string) (kyber.Point, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("attestation: decode public key: %w", err)
	}
	pub := Suite.Point()
	if err := pub.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("attestation: unmarshal public key: %w", err)
	}
	return pub, nil
}

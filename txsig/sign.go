package txsig

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/chess-bft/node/block"
)

// Sign is a test/tooling helper producing the hex-encoded 64-byte (r‖s)
// signature spec §4.4/§6 mandates. Production signing happens client-side,
// outside the core (spec §1); this lives here so the core's own tests can
// construct valid transactions without depending on an external signer.
func Sign(priv *secp256k1.PrivateKey, tx block.Transaction) (string, error) {
	digest, err := Digest(tx)
	if err != nil {
		return "", err
	}
	sig := ecdsa.Sign(priv, digest[:])
	r := sig.R()
	s := sig.S()
	out := make([]byte, 64)
	r.PutBytesUnchecked(out[:32])
	s.PutBytesUnchecked(out[32:])
	return hex.EncodeToString(out), nil
}

// PubKeyHex returns the hex-encoded compressed secp256k1 public key for priv.
func PubKeyHex(priv *secp256k1.PrivateKey) string {
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

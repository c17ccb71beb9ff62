// Package txsig implements the transaction validator of spec §4.4: game
// lookup, chess legality, secp256k1 signature verification over the sha256
// digest of a distinct camelCase canonical encoding, and turn-authority.
// Adapted from the teacher's consensus/validator.go (serialize/Sign/
// VerifySignature triad) and blockchain/action.go (signingBytes), with
// ed25519 swapped for secp256k1 per spec §4.4/§6.
package txsig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/chess-bft/node/block"
	"github.com/chess-bft/node/chess"
	"github.com/chess-bft/node/consensuserr"
	"github.com/chess-bft/node/gamedb"
)

// signingPosition and signingPayload pin the exact camelCase field names
// and order spec §6 mandates for the signature digest — intentionally
// distinct from block.Transaction's snake_case wire encoding.
type signingPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type signingPayload struct {
	WhitePlayer string             `json:"whitePlayer"`
	BlackPlayer string             `json:"blackPlayer"`
	Action      [2]signingPosition `json:"action"`
}

// Digest computes sha256(utf8(canonical_json({whitePlayer, blackPlayer,
// action}))) per spec §4.4/§6.
func Digest(tx block.Transaction) ([32]byte, error) {
	payload := signingPayload{
		WhitePlayer: tx.WhitePlayer,
		BlackPlayer: tx.BlackPlayer,
		Action: [2]signingPosition{
			{X: tx.Action[0].X, Y: tx.Action[0].Y},
			{X: tx.Action[1].X, Y: tx.Action[1].Y},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return [32]byte{}, fmt.Errorf("canonicalize tx for signing: %w", err)
	}
	return sha256.Sum256(b), nil
}

// VerifySignature checks a hex-encoded standard 64-byte (r‖s) secp256k1
// signature, and a hex-encoded (compressed or uncompressed) public key,
// over Digest(tx).
func VerifySignature(tx block.Transaction) (bool, error) {
	sigBytes, err := hex.DecodeString(tx.Signature)
	if err != nil || len(sigBytes) != 64 {
		return false, fmt.Errorf("%w: malformed signature", consensuserr.ErrBadSignature)
	}
	pubBytes, err := hex.DecodeString(tx.PubKey)
	if err != nil {
		return false, fmt.Errorf("%w: malformed public key", consensuserr.ErrBadSignature)
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("%w: unparseable public key", consensuserr.ErrBadSignature)
	}

	r := new(secp256k1.ModNScalar)
	s := new(secp256k1.ModNScalar)
	r.SetByteSlice(sigBytes[:32])
	s.SetByteSlice(sigBytes[32:])
	sig := ecdsa.NewSignature(r, s)

	digest, err := Digest(tx)
	if err != nil {
		return false, err
	}
	return sig.Verify(digest[:], pub), nil
}

// IsValidTx implements spec §4.4: game lookup, chess legality, signature
// verification, and turn-authority in order.
func IsValidTx(db *gamedb.DB, tx block.Transaction) error {
	gs, ok := db.Get(tx.WhitePlayer, tx.BlackPlayer)
	if !ok {
		return fmt.Errorf("%w: %s:%s", consensuserr.ErrNoSuchGame, tx.WhitePlayer, tx.BlackPlayer)
	}

	from := chess.Position{X: tx.Action[0].X, Y: tx.Action[0].Y}
	to := chess.Position{X: tx.Action[1].X, Y: tx.Action[1].Y}
	if err := chess.Validate(&gs.Board, from, to, gs.Turn); err != nil {
		return err
	}

	ok, err := VerifySignature(tx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: signature verification failed", consensuserr.ErrBadSignature)
	}

	expectedSigner := tx.BlackPlayer
	if gs.Turn == chess.White {
		expectedSigner = tx.WhitePlayer
	}
	if tx.PubKey != expectedSigner {
		return fmt.Errorf("%w: pub_key does not match %s to move", consensuserr.ErrWrongPlayer, gs.Turn)
	}

	return nil
}

// Package block implements the canonical block model: serialization,
// keccak256 hashing, and quorum certificates, adapted from the teacher's
// ledger.Block/ledger.Blockchain (index/prevHash/hash/votes/metadata shape
// and calculateHash) with sha256 swapped for keccak256 and the poker
// session swapped for a single chess transaction, per spec §3/§4.3.
package block

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// ZeroHash is the genesis previous-block-hash: 32 zero bytes.
var ZeroHash [32]byte

// Position mirrors the wire shape of a chess.Position for canonical JSON —
// kept independent of the chess package so the hashing contract in this
// file is pinned to the exact field names/order spec §6 mandates,
// regardless of how the chess package's own types evolve.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Transaction identifies a single chess move in exactly one match (spec §3).
// Field names follow the wire Transaction shape (snake_case); the distinct
// camelCase encoding used only for the signature digest lives in txsig.
type Transaction struct {
	WhitePlayer string      `json:"white_player"`
	BlackPlayer string      `json:"black_player"`
	Action      [2]Position `json:"action"`
	Signature   string      `json:"signature"`
	PubKey      string      `json:"pub_key"`
}

// QuorumCertificate is evidence that a supermajority of peers voted yes on
// block_hash.
type QuorumCertificate struct {
	BlockHash [32]byte `json:"block_hash"`
	Signature []string `json:"signature"` // sorted peer identities that voted yes
}

// Block is a single entry in the linear chain (spec §3).
type Block struct {
	ViewN             uint32             `json:"view_n"`
	PreviousBlockHash [32]byte           `json:"previous_block_hash"`
	Tx                Transaction        `json:"tx"`
	Timestamp         int64              `json:"timestamp"`
	Hash              [32]byte           `json:"hash"`
	QC                *QuorumCertificate `json:"qc,omitempty"`
}

// hashPayload is exactly the field subset and order that feeds the hash:
// view_n, previous_block_hash, tx — timestamp, hash, and qc are excluded
// (spec §3/§4.3/§6), so independently-clocked replicas still agree on Hash.
type hashPayload struct {
	ViewN             uint32      `json:"view_n"`
	PreviousBlockHash string      `json:"previous_block_hash"`
	Tx                Transaction `json:"tx"`
}

// CanonicalBytes returns the exact UTF-8 bytes every replica hashes: the
// field order is fixed by hashPayload's struct tags, so two nodes running
// this function on identical inputs produce bitwise-identical output
// regardless of map ordering or locale (spec §4.3, §8 "Block hash function
// is purely a function of (view_n, previous_block_hash, tx)").
func CanonicalBytes(viewN uint32, previousBlockHash [32]byte, tx Transaction) ([]byte, error) {
	payload := hashPayload{
		ViewN:             viewN,
		PreviousBlockHash: "0x" + hex.EncodeToString(previousBlockHash[:]),
		Tx:                tx,
	}
	return json.Marshal(payload)
}

// Hash computes keccak256 of CanonicalBytes(viewN, previousBlockHash, tx).
func Hash(viewN uint32, previousBlockHash [32]byte, tx Transaction) ([32]byte, error) {
	var out [32]byte
	b, err := CanonicalBytes(viewN, previousBlockHash, tx)
	if err != nil {
		return out, fmt.Errorf("canonicalize block for hashing: %w", err)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	copy(out[:], h.Sum(nil))
	return out, nil
}

// HashHex is a convenience formatter matching the "0x…32bytes…" wire form
// used for previous_block_hash in spec §6.
func HashHex(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

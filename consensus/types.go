// Package consensus is the replicated BFT engine: per-view leader election,
// the four-phase gossip protocol (propose → quorum vote → decide → commit),
// quorum certificate accumulation, and the view-change timer (spec §4.5).
//
// It is adapted from the teacher's consensus/protocol.go almost one-to-one:
// ProposeAction -> onReceiveProposal -> broadcastVoteForProposal ->
// onReceiveVotes -> checkAndCommit -> applyCommit becomes
// OnClientTransaction -> handleProposal -> handleQuorum -> handleDecision ->
// commitBlock, generalized from a
// single fixed turn order to view-based leader rotation with a timeout.
package consensus

import (
	"encoding/json"

	"github.com/chess-bft/node/block"
)

// StartRequest is the 'start' topic payload (spec §6).
type StartRequest struct {
	WhitePlayer string `json:"white_player"`
	BlackPlayer string `json:"black_player"`
}

// Commit is the 'decision' topic payload: a replica's vote on a proposed
// block (spec §4.5.3 phase 3).
type Commit struct {
	Block    block.Block `json:"block"`
	Decision bool        `json:"decision"`
}

// attestedMsg wraps any JSON-marshalable payload with a Schnorr signature
// over its bytes (attestation package), resolving spec §9 Open Question 1:
// the voter's identity on a DECISION is otherwise taken only from the
// bus-provided source and never signed by the voter itself.
type attestedMsg struct {
	Payload json.RawMessage `json:"payload"`
	Sig     []byte          `json:"sig"`
}

// Package consensuserr defines the error taxonomy shared by every layer of
// the consensus engine, per the node's error handling design: each kind maps
// to a fixed wire/RPC disposition (reject silently, vote no, or surface to
// the caller) and none of them are fatal to the process.
package consensuserr

import "errors"

var (
	// Surfaced to the RPC caller as invalid-argument.
	ErrNoSuchGame     = errors.New("no such game")
	ErrAlreadyInGame  = errors.New("already in game")

	// Surfaced to the RPC caller; on the wire these produce decision=no.
	ErrIllegalMove   = errors.New("illegal move")
	ErrWrongTurn     = errors.New("wrong turn")
	ErrBadSignature  = errors.New("bad signature")
	ErrWrongPlayer   = errors.New("wrong player")

	// Block rejected, no vote cast; logged at info, never fatal.
	ErrInvalidView   = errors.New("invalid view")
	ErrWrongLeader   = errors.New("wrong leader")
	ErrHashMismatch  = errors.New("hash mismatch")
	ErrBadChainLink  = errors.New("bad chain link")

	// Commit rejected, view not advanced; logged at warn.
	ErrInvalidQC = errors.New("invalid quorum certificate")

	// Surfaced up; the handler returns, the node continues.
	ErrBus = errors.New("bus error")

	// Transient; retried on the next tick.
	ErrNoLeader = errors.New("no leader: empty peer set")
)

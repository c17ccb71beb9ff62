// Package gamedb is the in-memory match registry: a keyed map from
// match-key to GameState with a snapshot-rollback discipline, adapted from
// the teacher's domain/poker.StateMachine (Validate/Apply/Snapshot/Restore
// over a *Session) and blockchain.Node's mtx-guarded Session mutation.
package gamedb

import (
	"fmt"

	"github.com/chess-bft/node/chess"
)

// GameState is a match between two named players.
type GameState struct {
	White string
	Black string
	Turn  chess.Color
	Board chess.Board
}

// MatchKey returns the identity key "{white}:{black}" (order significant).
func MatchKey(white, black string) string {
	return fmt.Sprintf("%s:%s", white, black)
}

// Clone deep-copies the state so the database can snapshot it before a risky
// mutation, mirroring the teacher's full-database copy-before-apply
// discipline (spec §5, acceptable only because the match set is small).
func (g GameState) Clone() GameState {
	return GameState{
		White: g.White,
		Black: g.Black,
		Turn:  g.Turn,
		Board: g.Board.Clone(),
	}
}

// Move is the pair (from, to) identifying a single chess move.
type Move struct {
	From, To chess.Position
}

package gamedb

import (
	"fmt"
	"sync"

	"github.com/chess-bft/node/chess"
	"github.com/chess-bft/node/consensuserr"
)

// DB is the keyed, in-memory match registry (spec §4.2). A GameState is
// created once by Start and never destroyed; the only further mutation is
// Apply, which flips Turn.
type DB struct {
	mu    sync.RWMutex
	games map[string]GameState
}

// New returns an empty match registry.
func New() *DB {
	return &DB{games: make(map[string]GameState)}
}

// Start inserts a fresh GameState under "{white}:{black}". Fails if the key
// already exists.
func (db *DB) Start(white, black string) (GameState, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := MatchKey(white, black)
	if _, exists := db.games[key]; exists {
		return GameState{}, fmt.Errorf("%w: match %s already started", consensuserr.ErrAlreadyInGame, key)
	}
	gs := GameState{
		White: white,
		Black: black,
		Turn:  chess.White,
		Board: chess.NewInitialBoard(),
	}
	db.games[key] = gs
	return gs, nil
}

// Get returns the current state of the match "{white}:{black}", or false if
// it does not exist.
func (db *DB) Get(white, black string) (GameState, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	gs, ok := db.games[MatchKey(white, black)]
	return gs, ok
}

// Snapshot returns a deep copy of the whole registry, to be restored by
// Restore if a subsequent Apply must be rolled back. This is the
// full-database copy the re-architecture notes (spec §9) flag as
// acceptable only because the live match set is small.
func (db *DB) Snapshot() map[string]GameState {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]GameState, len(db.games))
	for k, v := range db.games {
		out[k] = v.Clone()
	}
	return out
}

// Restore replaces the registry contents with a prior Snapshot.
func (db *DB) Restore(snapshot map[string]GameState) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.games = snapshot
}

// Apply looks up the match, validates the move, and — on success — moves
// the piece, clears the source cell, and flips Turn. On failure the
// database is left unchanged: the caller is expected to have taken a
// Snapshot beforehand and to Restore it on error (spec §4.2/§5).
func (db *DB) Apply(white, black string, move Move) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := MatchKey(white, black)
	gs, ok := db.games[key]
	if !ok {
		return fmt.Errorf("%w: %s", consensuserr.ErrNoSuchGame, key)
	}

	if err := chess.Validate(&gs.Board, move.From, move.To, gs.Turn); err != nil {
		return err
	}

	piece := gs.Board.At(move.From)
	gs.Board.Set(move.To, piece)
	gs.Board.Set(move.From, nil)
	gs.Turn = gs.Turn.Opponent()

	db.games[key] = gs
	return nil
}

package chess

import (
	"fmt"

	"github.com/chess-bft/node/consensuserr"
)

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Validate checks whether moving from -> to is legal for the piece
// occupying from, given the side to move is turn. It never mutates board.
// Every replica that calls Validate with the same inputs must agree on the
// verdict (spec §8 "Chess-rule determinism").
func Validate(board *Board, from, to Position, turn Color) error {
	if !from.InBounds() || !to.InBounds() {
		return fmt.Errorf("%w: position out of bounds", consensuserr.ErrIllegalMove)
	}

	src := board.At(from)
	if src == nil {
		return fmt.Errorf("%w: empty source square", consensuserr.ErrIllegalMove)
	}
	if src.Color != turn {
		return fmt.Errorf("%w: source piece does not belong to %s", consensuserr.ErrWrongTurn, turn)
	}

	dst := board.At(to)
	if dst != nil && dst.Color == turn {
		return fmt.Errorf("%w: destination occupied by own piece", consensuserr.ErrIllegalMove)
	}

	dx := to.X - from.X
	dy := to.Y - from.Y

	var ok bool
	switch src.Kind {
	case Pawn:
		ok = validatePawn(board, from, to, turn, dx, dy, dst)
	case Rook:
		ok = validateRook(board, from, to, dx, dy)
	case Knight:
		ok = validateKnight(dx, dy)
	case Bishop:
		ok = validateBishop(board, from, to, dx, dy)
	case Queen:
		ok = validateRook(board, from, to, dx, dy) || validateBishop(board, from, to, dx, dy)
	case King:
		ok = validateKing(dx, dy)
	default:
		return fmt.Errorf("%w: unknown piece kind %v", consensuserr.ErrIllegalMove, src.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: illegal %v move from %v to %v", consensuserr.ErrIllegalMove, src.Kind, from, to)
	}
	return nil
}

func validatePawn(board *Board, from, to Position, turn Color, dx, dy int, dst *Piece) bool {
	dir := 1
	initialRow := 1
	if turn == Black {
		dir = -1
		initialRow = 6
	}

	if dy == 0 && dx == dir && dst == nil {
		return true
	}
	if dy == 0 && dx == 2*dir && from.X == initialRow && dst == nil {
		mid := Position{X: from.X + dir, Y: from.Y}
		if board.At(mid) != nil {
			return false
		}
		return true
	}
	if abs(dy) == 1 && dx == dir && dst != nil && dst.Color != turn {
		return true
	}
	return false
}

func validateRook(board *Board, from, to Position, dx, dy int) bool {
	if (dx == 0) == (dy == 0) {
		return false
	}
	return pathClear(board, from, to)
}

func validateKnight(dx, dy int) bool {
	ax, ay := abs(dx), abs(dy)
	return (ax == 2 && ay == 1) || (ax == 1 && ay == 2)
}

func validateBishop(board *Board, from, to Position, dx, dy int) bool {
	if abs(dx) != abs(dy) || dx == 0 {
		return false
	}
	return pathClear(board, from, to)
}

func validateKing(dx, dy int) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	return abs(dx) <= 1 && abs(dy) <= 1
}

// pathClear walks the straight or diagonal line strictly between from and
// to (exclusive of both endpoints) and reports whether every square on it
// is empty.
func pathClear(board *Board, from, to Position) bool {
	stepX := sign(to.X - from.X)
	stepY := sign(to.Y - from.Y)
	cur := Position{X: from.X + stepX, Y: from.Y + stepY}
	for cur != to {
		if board.At(cur) != nil {
			return false
		}
		cur = Position{X: cur.X + stepX, Y: cur.Y + stepY}
	}
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

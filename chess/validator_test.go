package chess

import (
	"errors"
	"testing"

	"github.com/chess-bft/node/consensuserr"
)

func TestValidate_PawnOpen(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{1, 0}, Position{3, 0}, White)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PawnSingleStep(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{1, 4}, Position{2, 4}, White)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PawnDoubleStepBlocked(t *testing.T) {
	board := NewInitialBoard()
	board.Set(Position{2, 0}, &Piece{Color: White, Kind: Pawn})
	err := Validate(&board, Position{1, 0}, Position{3, 0}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

func TestValidate_IllegalRook(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{0, 0}, Position{2, 2}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

func TestValidate_WrongTurn(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{6, 0}, Position{5, 0}, White)
	if !errors.Is(err, consensuserr.ErrWrongTurn) {
		t.Fatalf("expected wrong turn, got %v", err)
	}
}

func TestValidate_RookPathBlocked(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{0, 0}, Position{5, 0}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

func TestValidate_KnightJumpsOverPieces(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{0, 1}, Position{2, 2}, White)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BishopBlockedByOwnPawns(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{0, 2}, Position{2, 4}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

func TestValidate_DestinationOccupiedBySamecolor(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{0, 0}, Position{1, 0}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

func TestValidate_PawnDiagonalCapture(t *testing.T) {
	board := NewInitialBoard()
	board.Set(Position{2, 1}, &Piece{Color: Black, Kind: Pawn})
	err := Validate(&board, Position{1, 0}, Position{2, 1}, White)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_KingOneStep(t *testing.T) {
	var board Board
	board.Set(Position{4, 4}, &Piece{Color: White, Kind: King})
	err := Validate(&board, Position{4, 4}, Position{4, 5}, White)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_KingTwoStepsRejected(t *testing.T) {
	var board Board
	board.Set(Position{4, 4}, &Piece{Color: White, Kind: King})
	err := Validate(&board, Position{4, 4}, Position{4, 6}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

func TestValidate_EmptySource(t *testing.T) {
	board := NewInitialBoard()
	err := Validate(&board, Position{3, 3}, Position{4, 3}, White)
	if !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

package txsig

import (
	"errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/chess-bft/node/block"
	"github.com/chess-bft/node/consensuserr"
	"github.com/chess-bft/node/gamedb"
)

func newKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return priv
}

func TestIsValidTx_PawnOpen(t *testing.T) {
	whitePriv := newKey(t)
	white := PubKeyHex(whitePriv)
	black := PubKeyHex(newKey(t))

	db := gamedb.New()
	if _, err := db.Start(white, black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx := block.Transaction{
		WhitePlayer: white,
		BlackPlayer: black,
		Action:      [2]block.Position{{X: 1, Y: 0}, {X: 3, Y: 0}},
		PubKey:      white,
	}
	sig, err := Sign(whitePriv, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Signature = sig

	if err := IsValidTx(db, tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsValidTx_WrongPlayerSigns(t *testing.T) {
	whitePriv := newKey(t)
	blackPriv := newKey(t)
	white := PubKeyHex(whitePriv)
	black := PubKeyHex(blackPriv)

	db := gamedb.New()
	if _, err := db.Start(white, black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx := block.Transaction{
		WhitePlayer: white,
		BlackPlayer: black,
		Action:      [2]block.Position{{X: 1, Y: 0}, {X: 3, Y: 0}},
		PubKey:      black,
	}
	sig, err := Sign(blackPriv, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Signature = sig

	if err := IsValidTx(db, tx); !errors.Is(err, consensuserr.ErrWrongPlayer) {
		t.Fatalf("expected wrong player, got %v", err)
	}
}

func TestIsValidTx_BadSignature(t *testing.T) {
	whitePriv := newKey(t)
	white := PubKeyHex(whitePriv)
	black := PubKeyHex(newKey(t))

	db := gamedb.New()
	if _, err := db.Start(white, black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx := block.Transaction{
		WhitePlayer: white,
		BlackPlayer: black,
		Action:      [2]block.Position{{X: 1, Y: 0}, {X: 3, Y: 0}},
		PubKey:      white,
		Signature:   "00" + "11",
	}

	if err := IsValidTx(db, tx); !errors.Is(err, consensuserr.ErrBadSignature) {
		t.Fatalf("expected bad signature, got %v", err)
	}
}

func TestIsValidTx_NoSuchGame(t *testing.T) {
	db := gamedb.New()
	tx := block.Transaction{WhitePlayer: "A", BlackPlayer: "B"}
	if err := IsValidTx(db, tx); !errors.Is(err, consensuserr.ErrNoSuchGame) {
		t.Fatalf("expected no such game, got %v", err)
	}
}

func TestIsValidTx_IllegalMoveRejected(t *testing.T) {
	whitePriv := newKey(t)
	white := PubKeyHex(whitePriv)
	black := PubKeyHex(newKey(t))

	db := gamedb.New()
	if _, err := db.Start(white, black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx := block.Transaction{
		WhitePlayer: white,
		BlackPlayer: black,
		Action:      [2]block.Position{{X: 0, Y: 0}, {X: 2, Y: 2}},
		PubKey:      white,
	}
	sig, err := Sign(whitePriv, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Signature = sig

	if err := IsValidTx(db, tx); !errors.Is(err, consensuserr.ErrIllegalMove) {
		t.Fatalf("expected illegal move, got %v", err)
	}
}

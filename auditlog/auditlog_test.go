package auditlog

import (
	"testing"

	"github.com/chess-bft/node/block"
)

type fixedClock struct{ t int64 }

func (c fixedClock) Now() int64 { return c.t }

func TestNew_SeedsZeroHashGenesis(t *testing.T) {
	l := New(fixedClock{t: 100})
	if l.Latest().Hash != block.ZeroHash {
		t.Fatalf("expected genesis hash to be all-zero")
	}
	if l.Len() != 1 {
		t.Fatalf("expected log to start with exactly one entry")
	}
}

func TestAppend_RejectsBrokenChainLink(t *testing.T) {
	l := New(fixedClock{t: 100})
	tx := block.Transaction{WhitePlayer: "w", BlackPlayer: "b"}
	h, err := block.Hash(0, [32]byte{1}, tx)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	bad := block.Block{ViewN: 0, PreviousBlockHash: [32]byte{1}, Tx: tx, Hash: h}
	if err := l.Append(bad); err == nil {
		t.Fatalf("expected append to reject a block not extending the head")
	}
}

func TestAppendThenVerify_RoundTrips(t *testing.T) {
	l := New(fixedClock{t: 100})
	tx := block.Transaction{WhitePlayer: "w", BlackPlayer: "b"}
	h, err := block.Hash(0, block.ZeroHash, tx)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b := block.Block{ViewN: 0, PreviousBlockHash: block.ZeroHash, Tx: tx, Timestamp: 101, Hash: h}
	if err := l.Append(b); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Len())
	}
}

func TestVerify_DetectsTamperedHash(t *testing.T) {
	l := New(fixedClock{t: 100})
	tx := block.Transaction{WhitePlayer: "w", BlackPlayer: "b"}
	h, err := block.Hash(0, block.ZeroHash, tx)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b := block.Block{ViewN: 0, PreviousBlockHash: block.ZeroHash, Tx: tx, Timestamp: 101, Hash: h}
	if err := l.Append(b); err != nil {
		t.Fatalf("append: %v", err)
	}
	l.blocks[1].Tx.WhitePlayer = "tampered"
	if err := l.Verify(); err == nil {
		t.Fatalf("expected verify to detect tampered block")
	}
}

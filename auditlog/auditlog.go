// Package auditlog is a supplemented feature (SPEC_FULL.md §4): the core
// consensus engine discards each committed block after retaining only its
// hash (spec.md §3 "Lifecycle"; §9 Open Question 2 leaves chain persistence
// as a deployment choice, not a core requirement). Operators that want an
// append-only, independently re-verifiable record of every committed block
// can register an auditlog.Log as a consensus.WithOnCommit callback.
//
// Adapted from the teacher's ledger.Blockchain (NewBlockchain/append/
// GetLatest/GetByIndex/Verify/validateBlock), repointed at chess
// block.Block values instead of poker sessions, and checking the existing
// block.Hash/QC machinery instead of re-deriving its own hash function.
package auditlog

import (
	"fmt"
	"sync"

	"github.com/chess-bft/node/block"
)

// Log is an append-only, in-memory record of committed blocks, independent
// of the consensus engine's own in-flight vote bookkeeping.
type Log struct {
	mu     sync.RWMutex
	blocks []block.Block
}

// New returns an empty audit log seeded with the implicit genesis entry.
func New(clk block.Clock) *Log {
	return &Log{blocks: []block.Block{block.Genesis(clk)}}
}

// Append records a freshly committed block. It requires the block's
// previous_block_hash to match the log's current head — the same linear-
// chain invariant the consensus engine enforces live (spec.md §8 "Chain
// linearity"), checked here independently for audit purposes.
func (l *Log) Append(b block.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	head := l.blocks[len(l.blocks)-1]
	if b.PreviousBlockHash != head.Hash {
		return fmt.Errorf("auditlog: block %s does not extend head %s",
			block.HashHex(b.Hash), block.HashHex(head.Hash))
	}
	expected, err := block.Hash(b.ViewN, b.PreviousBlockHash, b.Tx)
	if err != nil {
		return err
	}
	if expected != b.Hash {
		return fmt.Errorf("auditlog: recomputed hash disagrees with stored block %s", block.HashHex(b.Hash))
	}
	l.blocks = append(l.blocks, b)
	return nil
}

// Latest returns the most recently appended entry (genesis if nothing else
// has committed yet).
func (l *Log) Latest() block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1]
}

// ByIndex returns the block at position idx (0 == genesis).
func (l *Log) ByIndex(idx int) (block.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx < 0 || idx >= len(l.blocks) {
		return block.Block{}, fmt.Errorf("auditlog: index %d out of range", idx)
	}
	return l.blocks[idx], nil
}

// Verify re-walks the whole log, checking chain linearity and per-block hash
// validity, matching the teacher's Blockchain.Verify/validateBlock shape.
func (l *Log) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.blocks) == 0 {
		return fmt.Errorf("auditlog: empty log")
	}
	if l.blocks[0].Hash != block.ZeroHash {
		return fmt.Errorf("auditlog: genesis entry is not all-zero")
	}
	for i := 1; i < len(l.blocks); i++ {
		current, previous := l.blocks[i], l.blocks[i-1]
		if current.PreviousBlockHash != previous.Hash {
			return fmt.Errorf("auditlog: block %d: previous_block_hash does not match block %d's hash", i, i-1)
		}
		expected, err := block.Hash(current.ViewN, current.PreviousBlockHash, current.Tx)
		if err != nil {
			return err
		}
		if expected != current.Hash {
			return fmt.Errorf("auditlog: block %d: stored hash disagrees with recomputed hash", i)
		}
	}
	return nil
}

// Len returns the number of entries, including genesis.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

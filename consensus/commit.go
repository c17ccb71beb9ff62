package consensus

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/chess-bft/node/block"
	"github.com/chess-bft/node/chess"
	"github.com/chess-bft/node/consensuserr"
	"github.com/chess-bft/node/gamedb"
)

func chessPos(p block.Position) chess.Position {
	return chess.Position{X: p.X, Y: p.Y}
}

// commitBlock implements spec §4.5.4. It is the only place latest_block_hash
// moves forward and the only place a move is applied to db; latest_timestamp
// is set here to the block's timestamp and also by tick on a view rotation.
func (a *App) commitBlock(b block.Block) error {
	if b.QC == nil {
		return fmt.Errorf("%w: block %s carries no qc", consensuserr.ErrInvalidQC, block.HashHex(b.Hash))
	}
	localVotes := a.localVotesCopy(b.Hash)
	n := a.N()
	if !block.ValidQC(b.QC, localVotes, n) {
		return fmt.Errorf("%w: qc for %s does not exceed local quorum", consensuserr.ErrInvalidQC, block.HashHex(b.Hash))
	}

	expectedHash, err := block.Hash(b.ViewN, b.PreviousBlockHash, b.Tx)
	if err != nil {
		return err
	}
	if expectedHash != b.Hash || b.QC.BlockHash != b.Hash {
		return fmt.Errorf("%w: recomputed hash disagrees with block or qc", consensuserr.ErrHashMismatch)
	}

	snapshot := a.db.Snapshot()
	move := gamedb.Move{From: chessPos(b.Tx.Action[0]), To: chessPos(b.Tx.Action[1])}
	if err := a.db.Apply(b.Tx.WhitePlayer, b.Tx.BlackPlayer, move); err != nil {
		a.db.Restore(snapshot)
		return err
	}

	a.mu.Lock()
	a.latestBlockHash = b.Hash
	a.latestTimestamp = b.Timestamp
	a.mu.Unlock()

	if adv, ok := a.clock.(interface{ Advance(int64) }); ok {
		adv.Advance(b.Timestamp)
	}

	if a.onCommit != nil {
		if gs, ok := a.db.Get(b.Tx.WhitePlayer, b.Tx.BlackPlayer); ok {
			a.onCommit(gs, b)
		}
	}
	pterm.Success.Printfln("%s: committed block view=%d hash=%s", a.localPeerID, b.ViewN, block.HashHex(b.Hash))
	return nil
}

// advanceViewTo sets view_n to at least v, never moving it backward.
func (a *App) advanceViewTo(v uint32) {
	for {
		cur := a.viewN.Load()
		if v <= cur {
			return
		}
		if a.viewN.CompareAndSwap(cur, v) {
			return
		}
	}
}

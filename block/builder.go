package block

// Clock abstracts wall-clock time so the view-change timer and the block
// builder's timestamp stamping can be driven deterministically in tests,
// per spec §9's re-architecture pointer ("replace module-scoped process
// wall clock with an injected clock source").
type Clock interface {
	Now() int64 // unix seconds
}

// Builder accumulates {view_n, previous_block_hash, tx} and produces a
// Block, mirroring the teacher's ledger.Blockchain.append: compute the hash,
// stamp a timestamp, leave qc unset (spec §4.3).
type Builder struct {
	ViewN             uint32
	PreviousBlockHash [32]byte
	Tx                Transaction
	Clock             Clock
}

// Build stamps the current time, computes the hash over the fields that
// matter (view_n, previous_block_hash, tx — timestamp excluded), and
// returns a Block with qc unset.
func (b Builder) Build() (Block, error) {
	h, err := Hash(b.ViewN, b.PreviousBlockHash, b.Tx)
	if err != nil {
		return Block{}, err
	}
	return Block{
		ViewN:             b.ViewN,
		PreviousBlockHash: b.PreviousBlockHash,
		Tx:                b.Tx,
		Timestamp:         b.Clock.Now(),
		Hash:              h,
		QC:                nil,
	}, nil
}

// Genesis returns the implicit genesis block: all-zero previous hash AND
// all-zero hash (spec §3 "the genesis block hash is all-zero"), view 0, an
// empty transaction. Unlike every other block, genesis's Hash is not the
// keccak256 of its fields — it is never materialized or chained into; only
// latest_block_hash == ZeroHash is ever observed (spec §9 Open Question 2).
func Genesis(clk Clock) Block {
	return Block{
		ViewN:             0,
		PreviousBlockHash: ZeroHash,
		Tx:                Transaction{},
		Timestamp:         clk.Now(),
		Hash:              ZeroHash,
		QC:                nil,
	}
}

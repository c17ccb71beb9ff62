package consensus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/chess-bft/node/block"
	"github.com/chess-bft/node/bus"
	"github.com/chess-bft/node/consensuserr"
	"github.com/chess-bft/node/gamedb"
	"github.com/chess-bft/node/txsig"
)

// Run subscribes to every topic and the view-change timer and dispatches
// until ctx is done. It mirrors the teacher's per-topic receive loops in
// network.Peer, generalized to five topics instead of one broadcast kind.
func (a *App) Run(ctx context.Context) error {
	topics := []struct {
		topic   bus.Topic
		handler func(context.Context, bus.Message)
	}{
		{bus.TopicStart, a.handleStart},
		{bus.TopicProposal, a.handleProposal},
		{bus.TopicQuorum, a.handleQuorum},
		{bus.TopicDecision, a.handleDecision},
		{bus.TopicCommit, a.handleCommit},
	}
	for _, t := range topics {
		ch, err := a.bus.Subscribe(ctx, t.topic)
		if err != nil {
			return fmt.Errorf("%w: subscribe %s", consensuserr.ErrBus, t.topic)
		}
		go a.dispatchLoop(ctx, t.topic, ch, t.handler)
	}
	go a.runViewTimer(ctx)
	return nil
}

// dispatchLoop never lets a handler panic or error abort the node: every
// error is logged and swallowed (spec §7 "per-handler errors are logged and
// swallowed by the dispatch loop; they never abort the process").
func (a *App) dispatchLoop(ctx context.Context, topic bus.Topic, ch <-chan bus.Message, handle func(context.Context, bus.Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						pterm.Error.Printfln("%s: %s handler panicked: %v", a.localPeerID, topic, r)
					}
				}()
				handle(ctx, msg)
			}()
		}
	}
}

func (a *App) handleStart(ctx context.Context, msg bus.Message) {
	var req StartRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		pterm.Warning.Printfln("%s: malformed start from %s: %v", a.localPeerID, msg.Source, err)
		return
	}
	if _, err := a.db.Start(req.WhitePlayer, req.BlackPlayer); err != nil {
		pterm.Info.Printfln("%s: start %s/%s: %v", a.localPeerID, req.WhitePlayer, req.BlackPlayer, err)
	}
}

// StartMatch implements the `Start` RPC of spec §6: it creates the match in
// this node's own db, then gossips a StartRequest on the start topic so
// every other replica creates the same match (spec §2's data-flow and §6's
// bus contract; the ground-truth original's NodeServicer.start does the
// local create followed by the START_TOPIC publish the same way). Without
// the publish, only the receiving node would ever have the match, and every
// other replica's is_valid_tx would reject the eventual transaction with
// NoSuchGame.
func (a *App) StartMatch(ctx context.Context, white, black string) (gamedb.GameState, error) {
	gs, err := a.db.Start(white, black)
	if err != nil {
		return gamedb.GameState{}, err
	}
	payload, err := json.Marshal(StartRequest{WhitePlayer: white, BlackPlayer: black})
	if err != nil {
		return gs, err
	}
	if err := a.bus.Publish(ctx, bus.TopicStart, payload); err != nil {
		return gs, fmt.Errorf("%w: publish start: %v", consensuserr.ErrBus, err)
	}
	return gs, nil
}

// OnClientTransaction implements spec §4.5.3 "On client transaction": if
// this node is the leader, build a block from tx and jump straight to
// phase 2 (QUORUM); otherwise publish the raw tx on PROPOSAL.
func (a *App) OnClientTransaction(ctx context.Context, tx block.Transaction) error {
	if a.IsLeader() {
		return a.proposeBlock(ctx, tx)
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	if err := a.bus.Publish(ctx, bus.TopicProposal, payload); err != nil {
		return fmt.Errorf("%w: publish proposal: %v", consensuserr.ErrBus, err)
	}
	return nil
}

// handleProposal implements "On PROPOSAL(tx)": only the current leader
// reacts; non-leaders ignore.
func (a *App) handleProposal(ctx context.Context, msg bus.Message) {
	if !a.IsLeader() {
		return
	}
	var tx block.Transaction
	if err := json.Unmarshal(msg.Payload, &tx); err != nil {
		pterm.Warning.Printfln("%s: malformed proposal from %s: %v", a.localPeerID, msg.Source, err)
		return
	}
	if err := a.proposeBlock(ctx, tx); err != nil {
		pterm.Info.Printfln("%s: proposal from %s rejected: %v", a.localPeerID, msg.Source, err)
	}
}

// proposeBlock validates tx locally and, on success, builds a block
// extending latest_block_hash at the current view, publishes it on QUORUM,
// and records its own yes-vote.
func (a *App) proposeBlock(ctx context.Context, tx block.Transaction) error {
	if err := txsig.IsValidTx(a.db, tx); err != nil {
		return err
	}
	view := a.ViewN()
	prev := a.LatestBlockHash()
	b, err := (block.Builder{ViewN: view, PreviousBlockHash: prev, Tx: tx, Clock: a.clock}).Build()
	if err != nil {
		return err
	}
	a.cacheProposal(b)
	a.recordYesVote(b.Hash, a.localPeerID)

	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := a.bus.Publish(ctx, bus.TopicQuorum, payload); err != nil {
		return fmt.Errorf("%w: publish quorum: %v", consensuserr.ErrBus, err)
	}
	return nil
}

// handleQuorum implements "On QUORUM(block)" (approve_proposal): the five
// acceptance conditions (a)-(e) of spec §4.5.3, then emits Commit{block,
// decision} on DECISION.
func (a *App) handleQuorum(ctx context.Context, msg bus.Message) {
	var b block.Block
	if err := json.Unmarshal(msg.Payload, &b); err != nil {
		pterm.Warning.Printfln("%s: malformed quorum block from %s: %v", a.localPeerID, msg.Source, err)
		return
	}

	decision := true
	if err := a.checkProposedBlock(b, msg.Source); err != nil {
		pterm.Info.Printfln("%s: rejecting block view=%d from %s: %v", a.localPeerID, b.ViewN, msg.Source, err)
		decision = false
	} else {
		a.cacheProposal(b)
		a.recordYesVote(b.Hash, a.localPeerID)
	}

	if err := a.emitDecision(ctx, b, decision); err != nil {
		pterm.Warning.Printfln("%s: emit decision: %v", a.localPeerID, err)
	}
}

func (a *App) checkProposedBlock(b block.Block, source string) error {
	if b.ViewN != a.ViewN() {
		return fmt.Errorf("%w: block view %d != local view %d", consensuserr.ErrInvalidView, b.ViewN, a.ViewN())
	}
	leader, err := a.Leader(a.ViewN())
	if err != nil {
		return err
	}
	if source != leader {
		return fmt.Errorf("%w: source %s is not leader %s", consensuserr.ErrWrongLeader, source, leader)
	}
	if b.PreviousBlockHash != a.LatestBlockHash() {
		return fmt.Errorf("%w: previous hash does not extend the chain", consensuserr.ErrBadChainLink)
	}
	expected, err := block.Hash(b.ViewN, b.PreviousBlockHash, b.Tx)
	if err != nil {
		return err
	}
	if expected != b.Hash {
		return fmt.Errorf("%w: recomputed hash disagrees with proposed block", consensuserr.ErrHashMismatch)
	}
	return txsig.IsValidTx(a.db, b.Tx)
}

func (a *App) emitDecision(ctx context.Context, b block.Block, decision bool) error {
	commit := Commit{Block: b, Decision: decision}
	raw, err := sealMessage(a.attestKey, commit)
	if err != nil {
		return err
	}
	if err := a.bus.Publish(ctx, bus.TopicDecision, raw); err != nil {
		return fmt.Errorf("%w: publish decision: %v", consensuserr.ErrBus, err)
	}
	return nil
}

// handleDecision implements "On DECISION(commit)": record the sender's
// yes-vote; if this node is the current leader, run the commit-check.
func (a *App) handleDecision(ctx context.Context, msg bus.Message) {
	var commit Commit
	if err := openMessage(a.peerKeys[msg.Source], msg.Payload, &commit); err != nil {
		pterm.Warning.Printfln("%s: malformed/unverifiable decision from %s: %v", a.localPeerID, msg.Source, err)
		return
	}
	if commit.Decision {
		a.recordYesVote(commit.Block.Hash, msg.Source)
	} else if a.byzantineEvict {
		a.recordRejectVote(commit.Block.Hash, msg.Source)
		a.maybeEvictProposer(commit.Block)
	}

	if !a.IsLeader() {
		return
	}
	n := a.N()
	if a.yesVoteCount(commit.Block.Hash) <= block.Quorum(n)-1 {
		return
	}
	if err := a.finalizeCommit(ctx, commit.Block); err != nil {
		pterm.Warning.Printfln("%s: finalize commit view=%d: %v", a.localPeerID, commit.Block.ViewN, err)
	}
}

// finalizeCommit attaches a QC to b, publishes it on COMMIT, advances the
// view, and commits the block locally — the leader's side of spec §4.5.3
// phase 4 / §4.5.4.
func (a *App) finalizeCommit(ctx context.Context, b block.Block) error {
	voters := make([]string, 0)
	for v := range a.localVotesCopy(b.Hash) {
		voters = append(voters, v)
	}
	b.QC = block.BuildQC(b.Hash, voters)

	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := a.bus.Publish(ctx, bus.TopicCommit, payload); err != nil {
		return fmt.Errorf("%w: publish commit: %v", consensuserr.ErrBus, err)
	}

	a.advanceViewTo(b.ViewN + 1)
	return a.commitBlock(b)
}

// maybeEvictProposer implements the supplemented Byzantine-eviction feature
// (SPEC_FULL.md §4, gated behind WithByzantineEviction): once a supermajority
// of replicas reject a view's proposal, its proposer is dropped from the
// peer set so it stops winning future leader elections.
func (a *App) maybeEvictProposer(b block.Block) {
	if a.rejectVoteCount(b.Hash) <= block.Quorum(a.N())-1 {
		return
	}
	proposer, err := a.Leader(b.ViewN)
	if err != nil {
		return
	}
	a.evictPeer(proposer)
	pterm.Warning.Printfln("%s: evicted byzantine proposer %s (peers now %s)", a.localPeerID, proposer, fmtIdentityList(a.currentPeers()))
}

// handleCommit implements "On COMMIT(block)": accept iff block.view_n ==
// view_n and source is the current leader; then view_n <- view_n+1 and
// commit locally.
func (a *App) handleCommit(ctx context.Context, msg bus.Message) {
	var b block.Block
	if err := json.Unmarshal(msg.Payload, &b); err != nil {
		pterm.Warning.Printfln("%s: malformed commit block from %s: %v", a.localPeerID, msg.Source, err)
		return
	}
	if b.ViewN != a.ViewN() {
		pterm.Info.Printfln("%s: dropping commit for stale/future view %d (local %d)", a.localPeerID, b.ViewN, a.ViewN())
		return
	}
	leader, err := a.Leader(a.ViewN())
	if err != nil || msg.Source != leader {
		pterm.Info.Printfln("%s: dropping commit from non-leader %s", a.localPeerID, msg.Source)
		return
	}
	a.advanceViewTo(b.ViewN + 1)
	if err := a.commitBlock(b); err != nil {
		pterm.Warning.Printfln("%s: commit block view=%d: %v", a.localPeerID, b.ViewN, err)
	}
}

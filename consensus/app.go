package consensus

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.dedis.ch/kyber/v4"

	"github.com/chess-bft/node/attestation"
	"github.com/chess-bft/node/block"
	"github.com/chess-bft/node/bus"
	"github.com/chess-bft/node/consensuserr"
	"github.com/chess-bft/node/gamedb"
)

// DefaultViewRotInterval is VIEW_N_ROT_INTERVAL from spec §6.
const DefaultViewRotInterval = 10 * time.Second

// App holds all per-node consensus state (spec §3 "Consensus state").
// view_n is kept as an atomic integer per spec §5; every other field below
// is guarded by mu, mirroring the teacher's node-level mtx in
// blockchain.Node and consensus.ConsensusNode.
type App struct {
	localPeerID string
	bus         bus.Bus
	db          *gamedb.DB
	clock       block.Clock
	attestKey   attestation.KeyPair
	peerKeys    map[string]kyber.Point // identity -> attestation public key

	viewN atomic.Uint32

	mu               sync.RWMutex
	peers            []string // CONNECTED_PEERS, sorted
	latestBlockHash  [32]byte
	latestTimestamp  int64
	stateVotes       map[[32]byte]map[string]struct{}
	rejectVotes      map[[32]byte]map[string]struct{}
	proposal         map[[32]byte]block.Block

	viewRotInterval time.Duration
	byzantineEvict  bool

	onCommit func(gamedb.GameState, block.Block)

	stop chan struct{}
}

// Option configures App at construction, following the teacher's
// functional-options idiom (discovery.option, network peer construction).
type Option func(*App)

// WithViewRotInterval overrides VIEW_N_ROT_INTERVAL (default 10s, spec §6).
func WithViewRotInterval(d time.Duration) Option {
	return func(a *App) { a.viewRotInterval = d }
}

// WithClock injects a deterministic clock for tests (spec §9 re-architecture
// pointer on the view timer).
func WithClock(c block.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithByzantineEviction enables the supplemented ban/eviction feature
// (SPEC_FULL.md §4): a proposer whose block gathers quorum reject votes is
// dropped from the peer set. Off by default so the core's literal quorum
// math (fixed N) is what spec.md's test scenarios exercise.
func WithByzantineEviction(enabled bool) Option {
	return func(a *App) { a.byzantineEvict = enabled }
}

// WithOnCommit registers a callback invoked after every successful
// commitBlock, with the post-move game state.
func WithOnCommit(f func(gamedb.GameState, block.Block)) Option {
	return func(a *App) { a.onCommit = f }
}

// WithPeerAttestationKey registers the attestation public key a peer
// identity signs DECISION messages with.
func WithPeerAttestationKey(id string, pub kyber.Point) Option {
	return func(a *App) { a.peerKeys[id] = pub }
}

type systemClock struct{}

func (systemClock) Now() int64 { return time.Now().Unix() }

// New constructs an App at genesis (view 0, latest_block_hash = 0), wired
// to b for transport and db for the chess match registry.
func New(b bus.Bus, db *gamedb.DB, attestKey attestation.KeyPair, opts ...Option) *App {
	a := &App{
		localPeerID:     b.Self(),
		bus:             b,
		db:              db,
		clock:           systemClock{},
		attestKey:       attestKey,
		peerKeys:        make(map[string]kyber.Point),
		peers:           sortedPeers(b.Peers()),
		latestBlockHash: block.ZeroHash,
		stateVotes:      make(map[[32]byte]map[string]struct{}),
		rejectVotes:     make(map[[32]byte]map[string]struct{}),
		proposal:        make(map[[32]byte]block.Block),
		viewRotInterval: DefaultViewRotInterval,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.latestTimestamp = a.clock.Now()
	return a
}

func sortedPeers(peers []string) []string {
	out := append([]string(nil), peers...)
	sort.Strings(out)
	return out
}

// ViewN returns the current view number.
func (a *App) ViewN() uint32 { return a.viewN.Load() }

// LatestBlockHash returns the hash of the last committed block (genesis:
// all-zero).
func (a *App) LatestBlockHash() [32]byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latestBlockHash
}

// N returns the current fixed peer-set size.
func (a *App) N() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.peers)
}

// Leader returns CONNECTED_PEERS[view mod N] (spec §4.5.1).
func (a *App) Leader(view uint32) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.peers) == 0 {
		return "", consensuserr.ErrNoLeader
	}
	return a.peers[int(view)%len(a.peers)], nil
}

// IsLeader reports whether this node is the leader of the current view.
func (a *App) IsLeader() bool {
	leader, err := a.Leader(a.ViewN())
	return err == nil && leader == a.localPeerID
}

// Close stops the view-change timer and the bus.
func (a *App) Close() error {
	close(a.stop)
	return a.bus.Close()
}

func (a *App) recordYesVote(hash [32]byte, voter string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stateVotes[hash] == nil {
		a.stateVotes[hash] = make(map[string]struct{})
	}
	a.stateVotes[hash][voter] = struct{}{}
}

func (a *App) recordRejectVote(hash [32]byte, voter string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rejectVotes[hash] == nil {
		a.rejectVotes[hash] = make(map[string]struct{})
	}
	a.rejectVotes[hash][voter] = struct{}{}
}

func (a *App) yesVoteCount(hash [32]byte) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.stateVotes[hash])
}

func (a *App) rejectVoteCount(hash [32]byte) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.rejectVotes[hash])
}

func (a *App) localVotesCopy(hash [32]byte) map[string]struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]struct{}, len(a.stateVotes[hash]))
	for k := range a.stateVotes[hash] {
		out[k] = struct{}{}
	}
	return out
}

func (a *App) cacheProposal(b block.Block) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proposal[b.Hash] = b
}

func (a *App) lookupProposal(hash [32]byte) (block.Block, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.proposal[hash]
	return b, ok
}

func (a *App) evictPeer(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, p := range a.peers {
		if p == id {
			a.peers = append(a.peers[:i], a.peers[i+1:]...)
			break
		}
	}
}

// currentPeers returns a snapshot copy of the live peer set.
func (a *App) currentPeers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.peers...)
}

func fmtIdentityList(ids []string) string {
	return fmt.Sprintf("%v", ids)
}

// Package bus abstracts the authenticated publish-subscribe transport the
// consensus engine runs over (spec §6): five topics (start, proposal,
// quorum, decision, commit), UTF-8 JSON payloads, and a `source` identity
// attached by the transport to every delivered message. The transport and
// peer-discovery implementations are explicitly out of the core's scope
// (spec §1); this package only pins the contract the core depends on, plus
// two concrete adapters: httpbus for running a real node end-to-end, and
// an in-process MemoryBus for tests.
//
// The interface shape is adapted from the teacher's consensus.NetworkLayer
// (Broadcast/AllToAll/GetRank/GetPeerCount/Close), generalized from its
// barrier-synchronized SPMD broadcast pattern to fire-and-forget topic
// publish/subscribe, which is what a four-phase gossip protocol with
// independent per-replica timing needs.
package bus

import "context"

// Topic names the five wire topics of spec §6.
type Topic string

const (
	TopicStart    Topic = "start"
	TopicProposal Topic = "proposal"
	TopicQuorum   Topic = "quorum"
	TopicDecision Topic = "decision"
	TopicCommit   Topic = "commit"
)

// Message is one delivery: the transport-authenticated sender identity plus
// the raw UTF-8 JSON payload.
type Message struct {
	Source  string
	Payload []byte
}

// Bus is the abstract publish-subscribe contract every consensus node
// depends on. Implementations need not guarantee per-topic order across
// senders (spec §5): every handler in the consensus package is written to
// tolerate reordering.
type Bus interface {
	// Publish broadcasts payload on topic to every subscriber, including
	// this node if it is itself subscribed.
	Publish(ctx context.Context, topic Topic, payload []byte) error

	// Subscribe returns a channel of messages delivered on topic. The
	// channel is closed when ctx is done; Close does not close it.
	Subscribe(ctx context.Context, topic Topic) (<-chan Message, error)

	// Self returns this node's authenticated identity string.
	Self() string

	// Peers returns the current peer-set enumerator's sorted identity
	// list, including Self(). Leader election (spec §4.5.1) indexes into
	// this list by view_n mod len(Peers()).
	Peers() []string

	// Close releases transport resources.
	Close() error
}

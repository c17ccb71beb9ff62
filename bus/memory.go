package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// hub is the shared fan-out point a set of MemoryBus peers publish into and
// subscribe from — an in-process stand-in for the real transport, used by
// consensus package tests the way the teacher's network/peer_test.go spins
// up in-process peers over real listeners, minus the sockets.
type hub struct {
	mu   sync.Mutex
	subs map[Topic][]chan Message
}

func newHub() *hub {
	return &hub{subs: make(map[Topic][]chan Message)}
}

func (h *hub) subscribe(topic Topic) <-chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Message, 64)
	h.subs[topic] = append(h.subs[topic], ch)
	return ch
}

func (h *hub) publish(topic Topic, msg Message) {
	h.mu.Lock()
	chans := append([]chan Message(nil), h.subs[topic]...)
	h.mu.Unlock()
	for _, ch := range chans {
		ch <- msg
	}
}

// MemoryBus is an in-process Bus implementation: every peer sharing the
// same hub sees every Publish from every peer. It never fabricates a
// Source — Publish always stamps the local node's own identity, matching
// the "no forging of source" assumption of spec §6.
type MemoryBus struct {
	self  string
	peers []string
	hub   *hub
}

// NewMemoryNetwork builds one MemoryBus per identity in peers, all sharing
// a single hub, so Publish from one is observed by Subscribe on all.
func NewMemoryNetwork(peers []string) map[string]*MemoryBus {
	sorted := append([]string(nil), peers...)
	sort.Strings(sorted)
	h := newHub()
	out := make(map[string]*MemoryBus, len(sorted))
	for _, id := range sorted {
		out[id] = &MemoryBus{self: id, peers: sorted, hub: h}
	}
	return out
}

func (m *MemoryBus) Publish(ctx context.Context, topic Topic, payload []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("bus: publish: %w", ctx.Err())
	default:
	}
	m.hub.publish(topic, Message{Source: m.self, Payload: payload})
	return nil
}

func (m *MemoryBus) Subscribe(ctx context.Context, topic Topic) (<-chan Message, error) {
	raw := m.hub.subscribe(topic)
	out := make(chan Message, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *MemoryBus) Self() string { return m.self }

func (m *MemoryBus) Peers() []string {
	out := append([]string(nil), m.peers...)
	sort.Strings(out)
	return out
}

func (m *MemoryBus) Close() error { return nil }

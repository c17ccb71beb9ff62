package bus

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

// HTTPBus is a concrete Bus adapter over plain HTTP POSTs, one inbound
// server per node, adapted from the teacher's network.Peer (HTTP listener
// + client POST loop) but reshaped from Peer's barrier-synchronized
// broadcast/all-to-all into independent topic publish/subscribe: a commit
// topic publisher does not block waiting for every replica to enter the
// same call, since the four-phase protocol's phases are not in lockstep
// across replicas (spec §5).
type HTTPBus struct {
	self      string
	addresses map[string]string // identity -> "host:port"
	server    *http.Server

	mu   sync.Mutex
	subs map[Topic][]chan Message
}

// NewHTTPBus starts listening on l and returns a Bus keyed by identity
// self, with peer addresses given by addresses (including self).
func NewHTTPBus(self string, addresses map[string]string, l net.Listener) *HTTPBus {
	b := &HTTPBus{
		self:      self,
		addresses: copyAddrs(addresses),
		subs:      make(map[Topic][]chan Message),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/publish", b.handlePublish)
	b.server = &http.Server{Handler: mux}
	go func() {
		if err := b.server.Serve(l); err != nil && err != http.ErrServerClosed {
			pterm.Error.Printfln("httpbus %s: server stopped: %v", self, err)
		}
	}()
	return b
}

type wireEnvelope struct {
	Topic   string `json:"topic"`
	Source  string `json:"source"`
	Payload []byte `json:"payload"`
}

func (b *HTTPBus) handlePublish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	chans := append([]chan Message(nil), b.subs[Topic(env.Topic)]...)
	b.mu.Unlock()
	msg := Message{Source: env.Source, Payload: env.Payload}
	for _, ch := range chans {
		select {
		case ch <- msg:
		default:
			pterm.Warning.Printfln("httpbus %s: subscriber channel full on topic %s, dropping", b.self, env.Topic)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func (b *HTTPBus) Publish(ctx context.Context, topic Topic, payload []byte) error {
	env, err := encodeEnvelope(string(topic), b.self, payload)
	if err != nil {
		return err
	}
	var firstErr error
	for id, addr := range b.addresses {
		if id == b.self {
			// local delivery: also fan out to our own subscribers.
			b.mu.Lock()
			chans := append([]chan Message(nil), b.subs[topic]...)
			b.mu.Unlock()
			for _, ch := range chans {
				ch <- Message{Source: b.self, Payload: payload}
			}
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/publish", strings.NewReader(string(env)))
		if err != nil {
			firstErr = err
			continue
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			firstErr = fmt.Errorf("publish to %s: %w", id, err)
			continue
		}
		resp.Body.Close()
	}
	return firstErr
}

func (b *HTTPBus) Subscribe(ctx context.Context, topic Topic) (<-chan Message, error) {
	b.mu.Lock()
	ch := make(chan Message, 64)
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	out := make(chan Message, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
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

func (b *HTTPBus) Self() string { return b.self }

func (b *HTTPBus) Peers() []string {
	out := make([]string, 0, len(b.addresses))
	for id := range b.addresses {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (b *HTTPBus) Close() error {
	return b.server.Shutdown(context.Background())
}

func copyAddrs(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

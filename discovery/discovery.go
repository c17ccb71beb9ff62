// Package discovery is the peer-set enumerator the core treats as an
// external collaborator (spec.md §1: "the peer discovery and transport
// layers [are] treated as an abstract publish-subscribe bus with
// authenticated sender identities and a peer-set enumerator"). It scans a
// local port range, announcing this node's identity and bus address and
// collecting the same from every other live Discover in range, so a
// bus.HTTPBus can be constructed with a complete address map at startup.
//
// Adapted from the teacher's discovery.Discover (port-range HTTP announce/
// scan loop), generalized from an opaque info string to a structured
// Entry{ID, Addr} so the collected peer set can feed bus.NewHTTPBus and
// consensus.App's leader election directly.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// entriesBuffer bounds the Entries channel so scanOnce never blocks on a
// reader that forgot to drain it; a full buffer only drops the notification,
// never the entry itself (it stays recorded in d.seen and in PeerMap/Peers).
const entriesBuffer = 64

// Entry is one discovered peer: its consensus identity and the bus address
// it can be reached at.
type Entry struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// Discover announces self on a free port within [startPort, endPort] and
// scans the rest of the range for other announcers.
type Discover struct {
	Entries chan Entry

	self      Entry
	port      uint16
	startPort uint16
	endPort   uint16
	attempts  uint
	server    *http.Server

	mu   sync.Mutex
	seen map[string]Entry
}

type option func(*Discover)

// WithPortRange sets the scanned/announced port range (default 9000-9010).
func WithPortRange(startPort, endPort uint16) option {
	return func(d *Discover) {
		d.startPort = startPort
		d.endPort = endPort
	}
}

// WithPort pins the scan to a single port.
func WithPort(port uint16) option {
	return WithPortRange(port, port)
}

// WithAttempts sets how many scan rounds to run before PeerMap stops
// growing new entries from background discovery (default 1).
func WithAttempts(attempts uint) option {
	return func(d *Discover) { d.attempts = attempts }
}

// New starts announcing self (an identity and the bus address peers should
// dial) on the first free port in range, and begins scanning for other
// announcers in the background.
func New(self Entry, opts ...option) (*Discover, error) {
	d := &Discover{
		Entries:   make(chan Entry, entriesBuffer),
		self:      self,
		startPort: 9000,
		endPort:   9010,
		attempts:  1,
		seen:      make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(d)
	}

	var l net.Listener
	var err error
	for port := d.startPort; port <= d.endPort; port++ {
		l, err = net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			d.port = port
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("discovery: no free port in [%d,%d]: %w", d.startPort, d.endPort, err)
	}

	body, err := json.Marshal(d.self)
	if err != nil {
		return nil, fmt.Errorf("discovery: marshal self entry: %w", err)
	}
	d.server = &http.Server{Handler: announceHandler{body: body}}
	go func() {
		if err := d.server.Serve(l); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	go d.scanLoop()
	return d, nil
}

func (d *Discover) scanLoop() {
	for range d.attempts {
		d.scanOnce()
		time.Sleep(time.Second)
	}
}

func (d *Discover) scanOnce() {
	for port := d.startPort; port <= d.endPort; port++ {
		if port == d.port {
			continue
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d", port))
		if err != nil {
			continue
		}
		buf, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(buf, &entry); err != nil {
			continue
		}
		d.mu.Lock()
		_, known := d.seen[entry.ID]
		d.seen[entry.ID] = entry
		d.mu.Unlock()
		if !known {
			select {
			case d.Entries <- entry:
			default:
				pterm.Warning.Printfln("discovery %s: Entries channel full, dropping notification for %s (still recorded)", d.self.ID, entry.ID)
			}
		}
	}
}

// PeerMap returns every peer discovered so far (including self), keyed by
// identity, suitable for bus.NewHTTPBus's addresses argument.
func (d *Discover) PeerMap() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[string]string{d.self.ID: d.self.Addr}
	for id, e := range d.seen {
		out[id] = e.Addr
	}
	return out
}

// Peers returns the sorted identity list of every peer discovered so far,
// including self.
func (d *Discover) Peers() []string {
	m := d.PeerMap()
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (d *Discover) Close() error {
	return d.server.Shutdown(context.Background())
}

type announceHandler struct {
	body []byte
}

func (h announceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write(h.body); err != nil {
		panic(err)
	}
}

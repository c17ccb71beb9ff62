package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBus_PublishDeliversToAllSubscribers(t *testing.T) {
	buses := NewMemoryNetwork([]string{"P0", "P1", "P2"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chans := make(map[string]<-chan Message)
	for id, b := range buses {
		ch, err := b.Subscribe(ctx, TopicQuorum)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chans[id] = ch
	}

	if err := buses["P0"].Publish(ctx, TopicQuorum, []byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for id, ch := range chans {
		select {
		case msg := <-ch:
			if msg.Source != "P0" {
				t.Fatalf("peer %s: expected source P0, got %s", id, msg.Source)
			}
			if string(msg.Payload) != "hello" {
				t.Fatalf("peer %s: unexpected payload %q", id, msg.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("peer %s: timed out waiting for message", id)
		}
	}
}

func TestMemoryBus_PeersSortedAndStable(t *testing.T) {
	buses := NewMemoryNetwork([]string{"P2", "P0", "P1"})
	want := []string{"P0", "P1", "P2"}
	for id, b := range buses {
		got := b.Peers()
		if len(got) != len(want) {
			t.Fatalf("peer %s: expected %v, got %v", id, want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("peer %s: expected %v, got %v", id, want, got)
			}
		}
	}
}

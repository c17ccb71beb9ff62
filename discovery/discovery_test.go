package discovery

import "testing"

func TestDiscover_PeersFindEachOther(t *testing.T) {
	n := 3
	fatal := make(chan error, n)
	discoverers := make(chan *Discover, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			d, err := New(Entry{ID: fmt64(i), Addr: fmt64(i) + ":1234"}, WithPortRange(9100, 9110))
			if err != nil {
				fatal <- err
				return
			}
			discoverers <- d
			for j := 0; j < n-1; j++ {
				<-d.Entries
			}
			fatal <- nil
		}(i)
	}

	ds := make([]*Discover, 0, n)
	for i := 0; i < n; i++ {
		ds = append(ds, <-discoverers)
	}
	defer func() {
		for _, d := range ds {
			_ = d.Close()
		}
	}()

	for i := 0; i < n; i++ {
		if err := <-fatal; err != nil {
			t.Fatal(err)
		}
	}

	for _, d := range ds {
		if len(d.Peers()) != n {
			t.Fatalf("expected %d peers, got %d: %v", n, len(d.Peers()), d.Peers())
		}
	}
}

func fmt64(i int) string {
	return "P" + string(rune('0'+i))
}

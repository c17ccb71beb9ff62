package consensus

import (
	"context"
	"time"

	"github.com/pterm/pterm"

	"github.com/chess-bft/node/block"
)

// runViewTimer wakes every second and runs tick until ctx is done, per
// spec §4.5.2.
func (a *App) runViewTimer(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stop:
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

// tick runs one view-change evaluation: if the chain has committed at
// least one block and latest_timestamp has drifted past viewRotInterval,
// advance view_n and reset latest_timestamp to now. Exposed separately from
// runViewTimer so tests can drive it deterministically with an injected
// clock instead of waiting on a real ticker.
func (a *App) tick() {
	a.mu.RLock()
	latestHash := a.latestBlockHash
	latestTs := a.latestTimestamp
	a.mu.RUnlock()

	if latestHash == block.ZeroHash {
		return
	}
	now := a.clock.Now()
	delta := time.Duration(now-latestTs) * time.Second
	if delta < a.viewRotInterval {
		return
	}

	a.mu.Lock()
	a.latestTimestamp = now
	a.mu.Unlock()
	newView := a.viewN.Add(1)

	leader, err := a.Leader(newView)
	if err == nil {
		pterm.Info.Printfln("%s: view rotated to %d, leader %s", a.localPeerID, newView, leader)
	}
}

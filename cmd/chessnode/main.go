// Command chessnode runs one replica of the chess BFT consensus engine:
// it wires bus, gamedb, and consensus.App together, then drives a tiny
// line-oriented console so an operator can start a match and submit moves
// from the command line.
//
// Adapted from the teacher's cmd/main.go wiring scaffold (peer/network
// setup, GameOrchestrator construction, game loop) and
// application/game_orchestrator.go, replaced end-to-end since that code is
// poker-specific and almost entirely commented out in the teacher.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pterm/pterm"

	"github.com/chess-bft/node/attestation"
	"github.com/chess-bft/node/auditlog"
	"github.com/chess-bft/node/block"
	"github.com/chess-bft/node/bus"
	"github.com/chess-bft/node/consensus"
	"github.com/chess-bft/node/discovery"
	"github.com/chess-bft/node/gamedb"
	"github.com/chess-bft/node/txsig"
)

func main() {
	id := flag.String("id", "", "this node's consensus identity (required)")
	listen := flag.String("listen", "127.0.0.1:0", "address to bind the bus HTTP server on")
	peersFlag := flag.String("peers", "", "comma-separated id=host:port pairs for every peer, including self; when set, peer discovery is skipped")
	discoverPorts := flag.String("discover-ports", "9000-9010", "start-end local port range to announce/scan on when -peers is unset")
	discoverAttempts := flag.Uint("discover-attempts", 5, "scan rounds (roughly one second each) before treating the discovered peer set as final")
	rotSeconds := flag.Int("view-rot-seconds", 10, "VIEW_N_ROT_INTERVAL, in seconds")
	byzantine := flag.Bool("byzantine-eviction", false, "evict proposers that gather a reject-vote quorum")
	audit := flag.Bool("audit", false, "maintain a materialized, independently-verifiable chain")
	flag.Parse()

	if *id == "" {
		pterm.Error.Println("-id is required")
		os.Exit(1)
	}

	l, err := net.Listen("tcp", *listen)
	if err != nil {
		pterm.Error.Printfln("listen: %v", err)
		os.Exit(1)
	}

	var addresses map[string]string
	if strings.TrimSpace(*peersFlag) != "" {
		addresses, err = parsePeers(*peersFlag)
		if err != nil {
			pterm.Error.Printfln("-peers: %v", err)
			os.Exit(1)
		}
		if _, ok := addresses[*id]; !ok {
			pterm.Error.Printfln("-peers must include this node's own id %q", *id)
			os.Exit(1)
		}
	} else {
		startPort, endPort, err := parsePortRange(*discoverPorts)
		if err != nil {
			pterm.Error.Printfln("-discover-ports: %v", err)
			os.Exit(1)
		}
		pterm.Info.Printfln("no -peers given, discovering peers on ports [%d,%d]", startPort, endPort)
		d, err := discovery.New(discovery.Entry{ID: *id, Addr: l.Addr().String()},
			discovery.WithPortRange(startPort, endPort), discovery.WithAttempts(*discoverAttempts))
		if err != nil {
			pterm.Error.Printfln("discover: %v", err)
			os.Exit(1)
		}
		time.Sleep(time.Duration(*discoverAttempts+1) * time.Second)
		addresses = d.PeerMap()
		if err := d.Close(); err != nil {
			pterm.Warning.Printfln("discover: close: %v", err)
		}
	}

	pterm.DefaultHeader.WithFullWidth().Println("chess-bft node " + *id)
	pterm.Info.Printfln("bus listening on %s, peer set %v", l.Addr(), sortedKeys(addresses))

	db := gamedb.New()
	attestKey := attestation.GenerateKeyPair()
	b := bus.NewHTTPBus(*id, addresses, l)

	var log *auditlog.Log
	opts := []consensus.Option{
		consensus.WithViewRotInterval(time.Duration(*rotSeconds) * time.Second),
		consensus.WithByzantineEviction(*byzantine),
	}
	if *audit {
		log = auditlog.New(systemClock{})
		opts = append(opts, consensus.WithOnCommit(func(_ gamedb.GameState, b block.Block) {
			if err := log.Append(b); err != nil {
				pterm.Warning.Printfln("auditlog: %v", err)
			}
		}))
	}

	app := consensus.New(b, db, attestKey, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.Run(ctx); err != nil {
		pterm.Error.Printfln("run: %v", err)
		os.Exit(1)
	}

	runConsole(ctx, app)
}

type systemClock struct{}

func (systemClock) Now() int64 { return 0 } // auditlog genesis timestamp is advisory only

// parsePortRange parses a "start-end" port range as used by -discover-ports.
func parsePortRange(s string) (uint16, uint16, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed range %q, want start-end", s)
	}
	start, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad start port %q: %w", parts[0], err)
	}
	end, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad end port %q: %w", parts[1], err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("end port %d before start port %d", end, start)
	}
	return uint16(start), uint16(end), nil
}

func parsePeers(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			return nil, fmt.Errorf("malformed peer entry %q, want id=host:port", pair)
		}
		out[kv[0]] = kv[1]
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// runConsole is a minimal REPL over the RPC surface spec §6 describes as an
// external boundary: start <white> <black>, move <white> <black> <x0> <y0>
// <x1> <y1> <privkeyhex>.
func runConsole(ctx context.Context, app *consensus.App) {
	scanner := bufio.NewScanner(os.Stdin)
	pterm.Info.Println("commands: start <white> <black> | move <white> <black> <x0> <y0> <x1> <y1> <privkeyhex> | quit")
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "start":
			handleStart(ctx, app, fields)
		case "move":
			handleMove(ctx, app, fields)
		case "quit":
			return
		default:
			pterm.Warning.Printfln("unknown command %q", fields[0])
		}
	}
}

func handleStart(ctx context.Context, app *consensus.App, fields []string) {
	if len(fields) != 3 {
		pterm.Warning.Println("usage: start <white> <black>")
		return
	}
	if _, err := app.StartMatch(ctx, fields[1], fields[2]); err != nil {
		pterm.Warning.Printfln("start: %v", err)
		return
	}
	pterm.Success.Printfln("started match %s:%s", fields[1], fields[2])
}

func handleMove(ctx context.Context, app *consensus.App, fields []string) {
	if len(fields) != 8 {
		pterm.Warning.Println("usage: move <white> <black> <x0> <y0> <x1> <y1> <privkeyhex>")
		return
	}
	coords := make([]int, 4)
	for i, s := range fields[3:7] {
		v, err := strconv.Atoi(s)
		if err != nil {
			pterm.Warning.Printfln("bad coordinate %q", s)
			return
		}
		coords[i] = v
	}
	privBytes, err := hex.DecodeString(fields[7])
	if err != nil {
		pterm.Warning.Printfln("bad private key: %v", err)
		return
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)

	tx := block.Transaction{
		WhitePlayer: fields[1],
		BlackPlayer: fields[2],
		Action: [2]block.Position{
			{X: coords[0], Y: coords[1]},
			{X: coords[2], Y: coords[3]},
		},
		PubKey: txsig.PubKeyHex(priv),
	}
	sig, err := txsig.Sign(priv, tx)
	if err != nil {
		pterm.Warning.Printfln("sign: %v", err)
		return
	}
	tx.Signature = sig

	if err := app.OnClientTransaction(ctx, tx); err != nil {
		pterm.Warning.Printfln("submit move: %v", err)
		return
	}
	pterm.Info.Println("move submitted")
}

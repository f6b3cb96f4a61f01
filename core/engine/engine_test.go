package engine_test

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/corand"
	"github.com/threepartysql/threepc/core/engine"
	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/transport"
)

// memorySeedTransport is shared handshake plumbing, duplicated here
// (rather than imported from corand_test) since it is unexported test
// scaffolding in that package.
type memorySeedTransport struct {
	self  party.Index
	boxes map[party.Index]chan []byte
}

func newSeedTriangle() [3]*memorySeedTransport {
	boxes := map[party.Index]chan []byte{0: make(chan []byte, 1), 1: make(chan []byte, 1), 2: make(chan []byte, 1)}
	var ts [3]*memorySeedTransport
	for _, i := range party.All() {
		ts[i] = &memorySeedTransport{self: i, boxes: boxes}
	}
	return ts
}

func (t *memorySeedTransport) SendSeed(to party.Index, seed []byte) error {
	cp := append([]byte(nil), seed...)
	t.boxes[to] <- cp
	return nil
}

func (t *memorySeedTransport) RecvSeed(from party.Index) ([]byte, error) {
	return <-t.boxes[t.self], nil
}

func newSessions(t *testing.T) [3]*corand.Session {
	t.Helper()
	ts := newSeedTriangle()
	var sessions [3]*corand.Session
	done := make(chan struct{}, 3)
	errCh := make(chan error, 3)
	for _, i := range party.All() {
		go func(i party.Index) {
			s, err := corand.Handshake(i, ts[i], rand.Reader)
			if err != nil {
				errCh <- err
				return
			}
			sessions[i] = s
			done <- struct{}{}
		}(i)
	}
	for range party.All() {
		select {
		case err := <-errCh:
			t.Fatalf("handshake: %v", err)
		case <-done:
		}
	}
	return sessions
}

// runAndGate shares a and b, builds a single-And circuit, runs it
// across three goroutines, and returns the reconstructed result.
func runAndGate(t *testing.T, a, b bool) bool {
	t.Helper()

	b0a, b1a, b2a, err := bitshare.Share(a, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	b0b, b1b, b2b, err := bitshare.Share(b, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	bld := circuit.NewBuilder()
	wa := bld.AllocInput(circuit.InputRef{})
	wb := bld.AllocInput(circuit.InputRef{})
	and := bld.EmitAnd(wa, wb)
	bld.MarkOutput(and)
	circ, err := bld.Build()
	if err != nil {
		t.Fatal(err)
	}

	sessions := newSessions(t)
	rings := transport.NewMemoryTriangle(4)
	nodes := [3]*engine.Node{
		engine.NewNode(0, sessions[0]),
		engine.NewNode(1, sessions[1]),
		engine.NewNode(2, sessions[2]),
	}
	inputs := [3]engine.WireTable{
		{wa: b0a, wb: b0b},
		{wa: b1a, wb: b1b},
		{wa: b2a, wb: b2b},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results := make([][]bitshare.Pair, 3)
	errCh := make(chan error, 3)
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			out, err := nodes[i].EvalQuery(ctx, "query-and", circ, inputs[i], rings[i])
			if err != nil {
				errCh <- err
				return
			}
			results[i] = out
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 3; i++ {
		select {
		case err := <-errCh:
			t.Fatalf("eval: %v", err)
		case <-done:
		}
	}

	components := bitshare.ComponentsFromPairs(0, results[0][0], 1, results[1][0])
	got, err := bitshare.Reconstruct(components)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestSingleBitAndGate(t *testing.T) {
	cases := []struct{ a, b, want bool }{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}
	for _, c := range cases {
		got := runAndGate(t, c.a, c.b)
		if got != c.want {
			t.Fatalf("%v AND %v = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCircuitValidationRunsBeforeAnyIO(t *testing.T) {
	bld := circuit.NewBuilder()
	_ = bld.AllocInput(circuit.InputRef{})
	bld2 := circuit.NewBuilder()
	_ = bld2.AllocInput(circuit.InputRef{})
	bogus := circuit.Wire(42)
	bld2.MarkOutput(bogus)
	if _, err := bld2.Build(); err == nil {
		t.Fatal("expected build-time circuit validation error")
	}
}

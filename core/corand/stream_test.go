package corand_test

import (
	"crypto/rand"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/threepartysql/threepc/core/corand"
	"github.com/threepartysql/threepc/core/party"
)

// memorySeedTransport wires three Sessions' Handshake calls together
// through buffered channels, standing in for the authenticated
// transport in single-process tests.
type memorySeedTransport struct {
	self  party.Index
	boxes map[party.Index]chan []byte // inbound queue per sender
}

func newTriangle() [3]*memorySeedTransport {
	inboxes := map[party.Index]chan []byte{0: make(chan []byte, 1), 1: make(chan []byte, 1), 2: make(chan []byte, 1)}
	var ts [3]*memorySeedTransport
	for _, i := range party.All() {
		ts[i] = &memorySeedTransport{self: i, boxes: inboxes}
	}
	return ts
}

func (t *memorySeedTransport) SendSeed(to party.Index, seed []byte) error {
	cp := make([]byte, len(seed))
	copy(cp, seed)
	t.boxes[to] <- cp
	return nil
}

func (t *memorySeedTransport) RecvSeed(from party.Index) ([]byte, error) {
	return <-t.boxes[t.self], nil
}

func handshakeTriangle(t *testing.T) [3]*corand.Session {
	t.Helper()
	ts := newTriangle()
	var sessions [3]*corand.Session
	done := make(chan struct{}, 3)
	errs := make(chan error, 3)
	for _, i := range party.All() {
		go func(i party.Index) {
			s, err := corand.Handshake(i, ts[i], rand.Reader)
			if err != nil {
				errs <- err
				return
			}
			sessions[i] = s
			done <- struct{}{}
		}(i)
	}
	for range party.All() {
		select {
		case err := <-errs:
			t.Fatalf("handshake: %v", err)
		case <-done:
		}
	}
	return sessions
}

func TestCorrelatedZeroInvariant(t *testing.T) {
	sessions := handshakeTriangle(t)
	queryID := []byte("query-1")
	streams := [3]*corand.Stream{
		sessions[0].NewStream(queryID),
		sessions[1].NewStream(queryID),
		sessions[2].NewStream(queryID),
	}
	for round := 0; round < 100; round++ {
		var xor bool
		for _, i := range party.All() {
			alpha, err := streams[i].Next()
			if err != nil {
				t.Fatalf("draw: %v", err)
			}
			xor = xor != alpha
		}
		if xor {
			t.Fatalf("round %d: alpha0 ^ alpha1 ^ alpha2 != 0", round)
		}
	}
}

func TestDistinctQueriesAreIndependentStreams(t *testing.T) {
	sessions := handshakeTriangle(t)
	a := sessions[0].NewStream([]byte("query-a"))
	b := sessions[0].NewStream([]byte("query-b"))
	// Two streams derived from the same session seeds but different
	// query ids must not replay each other's bits. 128 draws agreeing
	// everywhere would mean the query id never reached the derivation.
	same := true
	for i := 0; i < 128; i++ {
		aBit, err := a.Next()
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		bBit, err := b.Next()
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if aBit != bBit {
			same = false
		}
	}
	if same {
		t.Fatal("streams for distinct query ids produced identical bits")
	}
}

func TestCorrelatedRandomnessSuite(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "corand suite")
}

var _ = ginkgo.Describe("correlated randomness", func() {
	ginkgo.It("keeps the triangle invariant after many draws", func() {
		sessions := handshakeTriangleForGinkgo()
		queryID := []byte("ginkgo-query")
		streams := [3]*corand.Stream{
			sessions[0].NewStream(queryID),
			sessions[1].NewStream(queryID),
			sessions[2].NewStream(queryID),
		}
		for round := 0; round < 25; round++ {
			var xor bool
			for _, i := range party.All() {
				alpha, err := streams[i].Next()
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				xor = xor != alpha
			}
			gomega.Expect(xor).To(gomega.BeFalse())
		}
	})
})

func handshakeTriangleForGinkgo() [3]*corand.Session {
	ts := newTriangle()
	var sessions [3]*corand.Session
	done := make(chan struct{}, 3)
	for _, i := range party.All() {
		go func(i party.Index) {
			defer ginkgo.GinkgoRecover()
			s, err := corand.Handshake(i, ts[i], rand.Reader)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			sessions[i] = s
			done <- struct{}{}
		}(i)
	}
	for range party.All() {
		<-done
	}
	return sessions
}

// Package corand implements the correlated-randomness source: a
// deterministic pseudo-random sequence of per-party bits alpha_i with
// alpha_0 ^ alpha_1 ^ alpha_2 = 0, drawn at zero online communication
// cost once a one-time pairwise seed handshake has completed.
//
// The construction is the classical pairwise zero-sharing trick: the
// triangle has three edges
// (0,1), (1,2), (2,0), each with its own 128-bit seed agreed once
// between its two endpoints. Party i holds the two seeds for its
// incident edges and defines its own alpha_i as the XOR of the two
// edges' pseudo-random outputs at the current counter. Because every
// edge value is summed into exactly two parties' alpha terms, the sum
// of all three alpha_i telescopes to zero without any party needing
// to see the third edge's seed.
package corand

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/party"
)

// SeedSize is the width of a pairwise seed: 128 bits.
const SeedSize = 16

// SeedTransport is the minimal one-time handshake channel correlated
// randomness needs: send a freshly generated edge seed to a neighbour,
// and receive the edge seed that neighbour generated in return. Real
// implementations run this over an authenticated channel (see
// core/transport's nacl/box-backed transport); tests can use an
// in-memory implementation.
type SeedTransport interface {
	SendSeed(to party.Index, seed []byte) error
	RecvSeed(from party.Index) ([]byte, error)
}

// Session holds one party's view of the session-wide pairwise seeds,
// established once via Handshake and read-only thereafter.
type Session struct {
	self      party.Index
	leftSeed  []byte // k_{i-1}, the seed for edge (i-1, i), received from the left neighbour
	rightSeed []byte // k_i, the seed for edge (i, i+1), generated locally and sent to the right neighbour
}

// Handshake exchanges the one-time pairwise seeds: it generates this
// party's own edge seed k_i, sends it to the right neighbour, and
// receives the left neighbour's edge seed k_{i-1}. After Handshake
// returns, party i holds (k_{i-1}, k_i).
func Handshake(self party.Index, st SeedTransport, rng io.Reader) (*Session, error) {
	own := make([]byte, SeedSize)
	if _, err := io.ReadFull(rng, own); err != nil {
		return nil, fmt.Errorf("corand: generating seed: %w", err)
	}
	if err := st.SendSeed(self.Right(), own); err != nil {
		return nil, fmt.Errorf("corand: sending seed to %s: %w", self.Right(), err)
	}
	left, err := st.RecvSeed(self.Left())
	if err != nil {
		return nil, fmt.Errorf("corand: receiving seed from %s: %w", self.Left(), err)
	}
	if len(left) != SeedSize {
		return nil, fmt.Errorf("corand: seed from %s has wrong length %d", self.Left(), len(left))
	}
	return &Session{self: self, leftSeed: left, rightSeed: own}, nil
}

// NewStream mints a fresh, independent correlated-randomness stream
// for one query, scoped to queryID so that two concurrent or
// sequential queries never reuse the same counter against the same
// seed. Correlated bits are single-use; a reused (seed, counter) pair
// would leak linear relations between the two queries' AND gates.
func (s *Session) NewStream(queryID []byte) *Stream {
	return &Stream{
		leftSeed:  derive(s.leftSeed, queryID),
		rightSeed: derive(s.rightSeed, queryID),
	}
}

// Stream draws single-use correlated bits in strict counter order,
// matching the order AND gates are evaluated in the circuit.
type Stream struct {
	leftSeed  [16]byte
	rightSeed [16]byte
	counter   uint64
	exhausted bool
}

// Next draws this party's alpha_i term for the current AND gate and
// advances the counter. It must be called in exactly the same gate
// order on all three parties.
func (st *Stream) Next() (bool, error) {
	if st.exhausted {
		return false, errs.ErrRandomnessExhausted
	}
	left := prfBit(st.leftSeed, st.counter)
	right := prfBit(st.rightSeed, st.counter)
	if st.counter == ^uint64(0) {
		st.exhausted = true
	} else {
		st.counter++
	}
	return left != right, nil
}

// derive folds a query id into a session seed so that per-query
// streams are independent even though they share a session seed.
// queryID is hashed with blake3 before being used as the AES input
// block rather than copied in directly, so every byte of a query_id
// longer than one block (the query_ids core/orchestrator mints are
// 64-character hex encodings of a blake3 digest) still affects the derived
// stream instead of being silently dropped past the 16-byte block
// boundary.
func derive(seed, queryID []byte) [16]byte {
	block, err := aes.NewCipher(pad16(seed))
	if err != nil {
		panic(err) // seed is always exactly SeedSize bytes
	}
	digest := blake3.Sum256(queryID)
	var in, out [16]byte
	copy(in[:], digest[:16])
	block.Encrypt(out[:], in[:])
	return out
}

// prfBit evaluates F(key, counter) and returns a single pseudo-random
// bit, implemented as an AES block-cipher PRF: F(k, c) = LSB(AES_k(c)).
func prfBit(key [16]byte, counter uint64) bool {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(err)
	}
	var in, out [16]byte
	binary.BigEndian.PutUint64(in[8:], counter)
	block.Encrypt(out[:], in[:])
	return out[0]&1 != 0
}

func pad16(seed []byte) []byte {
	if len(seed) == 16 {
		return seed
	}
	out := make([]byte, 16)
	copy(out, seed)
	return out
}

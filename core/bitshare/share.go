// Package bitshare implements the 2-of-3 replicated secret sharing
// (RSS) data model for single bits and k-bit words, per the protocol's
// data model: a plaintext bit x is split into three bits x1,x2,x3
// with x = x1^x2^x3, and party i holds the pair (xi, x(i+1)).
package bitshare

import (
	"io"

	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/party"
)

// Pair is the two share components a single party holds for one
// secret bit: its own component and the one it shares with its right
// neighbour. It never discloses the secret bit on its own.
type Pair struct {
	Own   bool
	Right bool
}

// Component is one of the three named shares (index 1, 2 or 3) of a
// secret bit, produced during Share and consumed during Reconstruct.
type Component struct {
	Index uint8 // 1, 2, or 3
	Value bool
}

// Share splits the bit b into three RSS pairs, one per party, reading
// the two random bits from rng. Distribution over any two of the
// three resulting share components is uniform and independent of b.
func Share(b bool, rng io.Reader) (p0, p1, p2 Pair, err error) {
	var buf [1]byte
	if _, err = io.ReadFull(rng, buf[:]); err != nil {
		return Pair{}, Pair{}, Pair{}, err
	}
	r1 := buf[0]&1 != 0
	if _, err = io.ReadFull(rng, buf[:]); err != nil {
		return Pair{}, Pair{}, Pair{}, err
	}
	r2 := buf[0]&1 != 0
	r3 := b != r1 != r2 // r1 XOR r2 XOR b

	// s1=r1 s2=r2 s3=r3; party i holds (s_i, s_{i+1}) 1-indexed.
	p0 = Pair{Own: r1, Right: r2} // party 0 holds (s1, s2)
	p1 = Pair{Own: r2, Right: r3} // party 1 holds (s2, s3)
	p2 = Pair{Own: r3, Right: r1} // party 2 holds (s3, s1)
	return p0, p1, p2, nil
}

// PairOf returns the Pair held by party i, given the three components
// s1, s2, s3 of a secret bit. Exposed mainly for tests that construct
// shares directly from known component values.
func PairOf(i party.Index, s1, s2, s3 bool) Pair {
	switch i {
	case 0:
		return Pair{Own: s1, Right: s2}
	case 1:
		return Pair{Own: s2, Right: s3}
	default:
		return Pair{Own: s3, Right: s1}
	}
}

// Reconstruct XORs three share components together to recover the
// plaintext bit. It fails with errs.ErrInvalidShareSet if the
// components do not cover the index set {1,2,3} exactly once each.
func Reconstruct(components []Component) (bool, error) {
	var seen [4]bool // index 0 unused
	for _, c := range components {
		if c.Index < 1 || c.Index > 3 || seen[c.Index] {
			return false, errs.ErrInvalidShareSet
		}
		seen[c.Index] = true
	}
	if !seen[1] || !seen[2] || !seen[3] {
		return false, errs.ErrInvalidShareSet
	}
	var b bool
	for _, c := range components {
		b = b != c.Value
	}
	return b, nil
}

// ComponentsFromPairs extracts the distinct indexed components s1,
// s2, s3 from any two-of-three party pairs, suitable for Reconstruct.
// Any two distinct parties' pairs are sufficient.
func ComponentsFromPairs(ia party.Index, a Pair, ib party.Index, b Pair) []Component {
	// Party i's pair is (s_{i+1}, s_{i+2}) in 1-indexed terms, i.e.
	// Own is component (i mod 3)+1 and Right is component ((i+1) mod 3)+1.
	idx := func(i party.Index) (uint8, uint8) {
		own := uint8(i) + 1
		right := uint8(i.Right()) + 1
		return own, right
	}
	aOwn, aRight := idx(ia)
	bOwn, bRight := idx(ib)
	byIndex := map[uint8]bool{
		aOwn: a.Own, aRight: a.Right,
		bOwn: b.Own, bRight: b.Right,
	}
	components := make([]Component, 0, len(byIndex))
	for i, v := range byIndex {
		components = append(components, Component{Index: i, Value: v})
	}
	return components
}

// XorLocal computes the RSS sharing of a^b from RSS sharings of a
// and b, requiring no communication: each party XORs its own pair
// componentwise.
func XorLocal(a, b Pair) Pair {
	return Pair{Own: a.Own != b.Own, Right: a.Right != b.Right}
}

// NotLocal computes the RSS sharing of ^a from an RSS sharing of a.
// Only component s1 is ever flipped,
// since flipping a single component of the replicated sum is enough to
// flip the reconstructed secret. s1 is held as Own by party 0 and as
// Right by party 2 (its co-holder per the replicated invariant
// Right_i == Own_{i+1}); party 1 holds neither and copies its pair
// unchanged. self must be identical to the party index evaluating the
// gate on every node.
func NotLocal(self party.Index, a Pair) Pair {
	switch self {
	case 0:
		return Pair{Own: !a.Own, Right: a.Right}
	case 2:
		return Pair{Own: a.Own, Right: !a.Right}
	default:
		return a
	}
}

// Word is a k-bit value stored as k independent bit shares, with no
// carry linkage at the data layer (carries are explicit gates at the
// circuit layer).
type Word []Pair

// ShareWord splits each bit of bits into an RSS share, returning the
// three parties' words.
func ShareWord(bits []bool, rng io.Reader) (w0, w1, w2 Word, err error) {
	w0 = make(Word, len(bits))
	w1 = make(Word, len(bits))
	w2 = make(Word, len(bits))
	for i, b := range bits {
		p0, p1, p2, shareErr := Share(b, rng)
		if shareErr != nil {
			return nil, nil, nil, shareErr
		}
		w0[i], w1[i], w2[i] = p0, p1, p2
	}
	return w0, w1, w2, nil
}

// ReconstructWord reconstructs a k-bit plaintext value from any two
// parties' words (identified by their party indices).
func ReconstructWord(ia party.Index, wa Word, ib party.Index, wb Word) ([]bool, error) {
	if len(wa) != len(wb) {
		return nil, errs.ErrInvalidShareSet
	}
	bits := make([]bool, len(wa))
	for i := range wa {
		components := ComponentsFromPairs(ia, wa[i], ib, wb[i])
		b, err := Reconstruct(components)
		if err != nil {
			return nil, err
		}
		bits[i] = b
	}
	return bits, nil
}

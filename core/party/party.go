// Package party models the three-node cyclic topology of the
// computation. A party's neighbours are named through Index's modular
// helpers (Left, Right) rather than hard-coded indices.
package party

import "fmt"

// N is the fixed number of computing nodes. The protocol is defined
// only for exactly three parties (spec Non-goals).
const N = 3

// Index identifies one of the three computing nodes.
type Index uint8

// Valid reports whether i is one of the three party indices.
func (i Index) Valid() bool {
	return i < N
}

// Right returns the party at index (i+1) mod 3, i's right neighbour.
func (i Index) Right() Index {
	return Index((uint8(i) + 1) % N)
}

// Left returns the party at index (i-1) mod 3, i's left neighbour.
func (i Index) Left() Index {
	return Index((uint8(i) + N - 1) % N)
}

// String renders the index as "party0".."party2".
func (i Index) String() string {
	return fmt.Sprintf("party%d", uint8(i))
}

// All returns the three indices in canonical order. Anywhere a
// container would be ranged over to mean "all three parties", range
// this slice instead so the order is identical on every node.
func All() [N]Index {
	return [N]Index{0, 1, 2}
}

// Pair is an ordered pair of a party and its right neighbour: one
// directed edge (i, i+1) of the triangle topology.
type Pair struct {
	Own   Index
	Right Index
}

// EdgePair returns the ordered pair (i, i.Right()).
func EdgePair(i Index) Pair {
	return Pair{Own: i, Right: i.Right()}
}

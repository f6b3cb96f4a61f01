package bitshare

import (
	"crypto/rand"
	"testing"
)

func reconstructPair(t *testing.T, p0, p1, p2 Pair) bool {
	t.Helper()
	components := ComponentsFromPairs(0, p0, 1, p1)
	b, err := Reconstruct(components)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	// Reconstructing from any other pair of parties must agree.
	components2 := ComponentsFromPairs(1, p1, 2, p2)
	b2, err := Reconstruct(components2)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if b != b2 {
		t.Fatalf("reconstruction disagreement between party pairs: %v != %v", b, b2)
	}
	return b
}

func TestShareReconstructRoundTrip(t *testing.T) {
	for _, want := range []bool{true, false} {
		for i := 0; i < 32; i++ {
			p0, p1, p2, err := Share(want, rand.Reader)
			if err != nil {
				t.Fatalf("share: %v", err)
			}
			got := reconstructPair(t, p0, p1, p2)
			if got != want {
				t.Fatalf("reconstruct(share(%v)) = %v", want, got)
			}
		}
	}
}

func TestPairOfMatchesReplicationConvention(t *testing.T) {
	s1, s2, s3 := true, false, true
	p0 := PairOf(0, s1, s2, s3)
	p1 := PairOf(1, s1, s2, s3)
	p2 := PairOf(2, s1, s2, s3)
	// Right_i == Own_{i+1} around the whole triangle.
	if p0.Right != p1.Own || p1.Right != p2.Own || p2.Right != p0.Own {
		t.Fatalf("replication invariant broken: %+v %+v %+v", p0, p1, p2)
	}
	got := reconstructPair(t, p0, p1, p2)
	if got != (s1 != s2 != s3) {
		t.Fatalf("reconstructed %v from components %v %v %v", got, s1, s2, s3)
	}
}

func TestReconstructInvalidShareSet(t *testing.T) {
	// Two contributions for the same component index, missing a third.
	_, err := Reconstruct([]Component{{Index: 1, Value: true}, {Index: 1, Value: false}})
	if err == nil {
		t.Fatal("expected error for duplicate component index")
	}

	_, err = Reconstruct([]Component{{Index: 1, Value: true}, {Index: 2, Value: false}})
	if err == nil {
		t.Fatal("expected error for incomplete share set")
	}
}

func TestXorLocalHomomorphism(t *testing.T) {
	for _, a := range []bool{true, false} {
		for _, b := range []bool{true, false} {
			pa0, pa1, pa2, err := Share(a, rand.Reader)
			if err != nil {
				t.Fatal(err)
			}
			pb0, pb1, pb2, err := Share(b, rand.Reader)
			if err != nil {
				t.Fatal(err)
			}
			got := reconstructPair(t, XorLocal(pa0, pb0), XorLocal(pa1, pb1), XorLocal(pa2, pb2))
			if got != (a != b) {
				t.Fatalf("xor_local(share(%v), share(%v)) reconstructed to %v", a, b, got)
			}
		}
	}
}

func TestNotLocalHomomorphismTieBreakIsComponentS1(t *testing.T) {
	for _, a := range []bool{true, false} {
		p0, p1, p2, err := Share(a, rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		n0 := NotLocal(0, p0)
		n1 := NotLocal(1, p1)
		n2 := NotLocal(2, p2)
		got := reconstructPair(t, n0, n1, n2)
		if got != !a {
			t.Fatalf("not_local(share(%v)) reconstructed to %v", a, got)
		}
		// Only component s1 flips: party 0's Own, party 2's Right.
		// Every other component (party 0's Right, party 1's whole
		// pair, party 2's Own) is unchanged, preserving Right_i ==
		// Own_{i+1} across every edge.
		if n0.Right != p0.Right {
			t.Fatal("party 0 must not flip its Right component")
		}
		if n1 != p1 {
			t.Fatal("party 1 must not flip either component")
		}
		if n2.Own != p2.Own {
			t.Fatal("party 2 must not flip its Own component")
		}
		if n0.Own == p0.Own || n2.Right == p2.Right {
			t.Fatal("component s1 must flip at both its holders")
		}
	}
}

func TestWordRoundTrip(t *testing.T) {
	want := []bool{true, false, true, true, false}
	w0, _, w2, err := ShareWord(want, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReconstructWord(0, w0, 2, w2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bit %d: got %v want %v", i, got[i], want[i])
		}
	}
}

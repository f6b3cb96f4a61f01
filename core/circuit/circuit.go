// Package circuit implements the in-memory Boolean gate list model:
// wires, gates, and an immutable Circuit produced by a mutable
// Builder. A Circuit is topologically ordered by construction:
// every non-input wire is written exactly once, and every referenced
// wire is defined earlier.
package circuit

import "github.com/threepartysql/threepc/core/errs"

// Wire identifies one bit-valued signal in the circuit.
type Wire uint64

// InputRef names the table cell an Input wire is bound to, so the
// engine can pull the right share from a party bundle at evaluation
// time.
type InputRef struct {
	TableID string
	Row     int
	Column  int
	BitIdx  int
}

// GateKind enumerates the five gate types.
type GateKind int

const (
	Input GateKind = iota
	Not
	Xor
	And
	Output
)

func (k GateKind) String() string {
	switch k {
	case Input:
		return "Input"
	case Not:
		return "Not"
	case Xor:
		return "Xor"
	case And:
		return "And"
	case Output:
		return "Output"
	default:
		return "Unknown"
	}
}

// Gate is one instruction in the gate list. Depending on Kind, only
// the relevant fields are meaningful: Input/Output use Out/In
// respectively, Not uses In/Out, Xor/And use L, R, Out.
type Gate struct {
	Kind GateKind
	L, R Wire
	In   Wire
	Out  Wire
}

// Circuit is immutable once built by Builder.Build.
type Circuit struct {
	wireCount uint64
	gates     []Gate
	outputs   []Wire
	inputMeta map[Wire]InputRef
}

// WireCount returns the number of wires allocated in the circuit.
func (c *Circuit) WireCount() uint64 {
	return c.wireCount
}

// Gates returns the ordered gate list.
func (c *Circuit) Gates() []Gate {
	return c.gates
}

// Outputs returns the wires marked as circuit outputs, in the order
// they were declared.
func (c *Circuit) Outputs() []Wire {
	return c.outputs
}

// InputMeta returns the table-cell reference bound to an Input wire.
func (c *Circuit) InputMeta(w Wire) (InputRef, bool) {
	ref, ok := c.inputMeta[w]
	return ref, ok
}

// Manifest is the input manifest: the map telling
// the share-distribution layer which table cell must be fed to which
// input wire. It is the inverse of InputMeta, computed once from the
// circuit's input gates.
type Manifest map[InputRef]Wire

// Manifest returns the circuit's input manifest.
func (c *Circuit) Manifest() Manifest {
	m := make(Manifest, len(c.inputMeta))
	for w, ref := range c.inputMeta {
		m[ref] = w
	}
	return m
}

// Validate re-checks the topological invariants that must hold
// before any network I/O: gates reference only
// already-defined wires, every non-input wire is written exactly
// once, and every output wire was defined. Builder.Build always
// performs this before returning a Circuit, but Validate is exported
// so the engine can re-verify a circuit received over the wire from
// an untrusted or merely unfamiliar source.
func Validate(c *Circuit) error {
	defined := make(map[Wire]bool, c.wireCount)
	for _, g := range c.gates {
		switch g.Kind {
		case Input:
			if defined[g.Out] {
				return errs.ErrCircuitValidation
			}
			defined[g.Out] = true
		case Not:
			if !defined[g.In] || defined[g.Out] {
				return errs.ErrCircuitValidation
			}
			defined[g.Out] = true
		case Xor, And:
			if !defined[g.L] || !defined[g.R] || defined[g.Out] {
				return errs.ErrCircuitValidation
			}
			defined[g.Out] = true
		case Output:
			if !defined[g.In] {
				return errs.ErrCircuitValidation
			}
		default:
			return errs.ErrCircuitValidation
		}
	}
	for _, w := range c.outputs {
		if !defined[w] {
			return errs.ErrCircuitValidation
		}
	}
	return nil
}

package circuit

import "github.com/threepartysql/threepc/core/errs"

// Builder allocates wires and emits gates in exactly the order its
// methods are called. It is mutable only during construction; once
// Build succeeds the resulting Circuit is frozen. The wire numbering
// rule is: the input band is allocated first, row-major then
// column-major then LSB-first, and every wire allocated after that is
// numbered sequentially as gates are emitted. Two Builders fed the
// same sequence of calls always produce byte-identical wire ids,
// which is what lets all three parties compile identical circuits
// from identical SQL.
type Builder struct {
	next      Wire
	gates     []Gate
	outputs   []Wire
	inputMeta map[Wire]InputRef
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{inputMeta: map[Wire]InputRef{}}
}

// AllocInput allocates one Input wire bound to ref and emits its
// Input gate.
func (b *Builder) AllocInput(ref InputRef) Wire {
	w := b.alloc()
	b.gates = append(b.gates, Gate{Kind: Input, Out: w})
	b.inputMeta[w] = ref
	return w
}

// AllocInputs allocates n Input wires in row-major, column-major,
// LSB-first order, calling ref(i) to get the table-cell reference for
// the i-th wire.
func (b *Builder) AllocInputs(n int, ref func(i int) InputRef) []Wire {
	wires := make([]Wire, n)
	for i := 0; i < n; i++ {
		wires[i] = b.AllocInput(ref(i))
	}
	return wires
}

func (b *Builder) alloc() Wire {
	w := b.next
	b.next++
	return w
}

// EmitXor emits out := l ^ r and returns the new wire.
func (b *Builder) EmitXor(l, r Wire) Wire {
	out := b.alloc()
	b.gates = append(b.gates, Gate{Kind: Xor, L: l, R: r, Out: out})
	return out
}

// EmitAnd emits out := l & r and returns the new wire.
func (b *Builder) EmitAnd(l, r Wire) Wire {
	out := b.alloc()
	b.gates = append(b.gates, Gate{Kind: And, L: l, R: r, Out: out})
	return out
}

// EmitNot emits out := ^in and returns the new wire.
func (b *Builder) EmitNot(in Wire) Wire {
	out := b.alloc()
	b.gates = append(b.gates, Gate{Kind: Not, In: in, Out: out})
	return out
}

// EmitXnor emits the XNOR of l and r: XOR followed by NOT, the
// single-bit equality test.
func (b *Builder) EmitXnor(l, r Wire) Wire {
	return b.EmitNot(b.EmitXor(l, r))
}

// EmitAndTree reduces ws to a single wire by a left-to-right AND
// chain. Always left-to-right, never a balanced tree whose shape
// could depend on slice length parity in a less explicit way; wire
// numbering must be total across all three nodes.
func (b *Builder) EmitAndTree(ws []Wire) Wire {
	if len(ws) == 0 {
		panic("circuit: EmitAndTree requires at least one wire")
	}
	acc := ws[0]
	for _, w := range ws[1:] {
		acc = b.EmitAnd(acc, w)
	}
	return acc
}

// EmitXorChain reduces ws to a single wire by a left-to-right XOR
// chain.
func (b *Builder) EmitXorChain(ws []Wire) Wire {
	if len(ws) == 0 {
		panic("circuit: EmitXorChain requires at least one wire")
	}
	acc := ws[0]
	for _, w := range ws[1:] {
		acc = b.EmitXor(acc, w)
	}
	return acc
}

// MarkOutput declares w as a reconstructed circuit output, in the
// order MarkOutput is called.
func (b *Builder) MarkOutput(w Wire) {
	b.gates = append(b.gates, Gate{Kind: Output, In: w})
	b.outputs = append(b.outputs, w)
}

// Build freezes the Builder into a Circuit, validating the topology
// invariants before returning. A validation failure is fatal and is
// reported before any network I/O.
func (b *Builder) Build() (*Circuit, error) {
	c := &Circuit{
		wireCount: uint64(b.next),
		gates:     b.gates,
		outputs:   b.outputs,
		inputMeta: b.inputMeta,
	}
	if err := Validate(c); err != nil {
		return nil, errs.ErrCircuitValidation
	}
	return c, nil
}

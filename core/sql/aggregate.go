package sql

import (
	"fmt"

	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/errs"
)

// AggregateBuilder lowers one AggOp to circuit gates in two steps:
// reduce each row's column bits to a per-row contribution wire, then
// fold the (possibly match-gated) contributions into the aggregate's
// single output wire. Filter gating happens between the two steps and
// belongs to the filter, not the aggregate.
type AggregateBuilder interface {
	// RowContribution reduces one row's column bits to that row's
	// contribution wire.
	RowContribution(b *circuit.Builder, colBits []circuit.Wire) circuit.Wire

	// Combine folds every row's contribution into the aggregate
	// output wire.
	Combine(b *circuit.Builder, contributions []circuit.Wire) circuit.Wire
}

// parityBuilder lowers PARITY: XOR within a row's column bits, then
// an XOR chain across rows.
type parityBuilder struct{}

func (parityBuilder) RowContribution(b *circuit.Builder, colBits []circuit.Wire) circuit.Wire {
	return b.EmitXorChain(colBits)
}

func (parityBuilder) Combine(b *circuit.Builder, contributions []circuit.Wire) circuit.Wire {
	return b.EmitXorChain(contributions)
}

// aggregateBuilderFor resolves op to its AggregateBuilder, or
// ErrUnsupportedAggregate if op is recognized by the grammar but has
// no gate lowering yet: Sum and Avg require a ripple-carry adder over
// the k-bit aggregate column, which core/circuit does not provide.
func aggregateBuilderFor(op AggOp) (AggregateBuilder, error) {
	switch op {
	case Parity:
		return parityBuilder{}, nil
	case Sum:
		return nil, fmt.Errorf("%w: SUM requires a ripple-carry adder, not yet implemented", errs.ErrUnsupportedAggregate)
	case Avg:
		return nil, fmt.Errorf("%w: AVG requires a ripple-carry adder, not yet implemented", errs.ErrUnsupportedAggregate)
	default:
		return nil, fmt.Errorf("%w: unknown aggregate", errs.ErrUnsupportedAggregate)
	}
}

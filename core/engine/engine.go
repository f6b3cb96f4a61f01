// Package engine implements the three-party protocol engine: it
// evaluates a topologically sorted gate list over RSS bits,
// performing local XOR/Not and the interactive Araki/Furukawa-style
// semi-honest AND. Run walks the gate list exactly once, keeping a
// wire table keyed by circuit.Wire.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/corand"
	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/transport"
)

// WireTable maps a wire to the RSS pair this party holds for it.
type WireTable map[circuit.Wire]bitshare.Pair

// Run evaluates circ on behalf of party self, injecting inputs's pairs
// for every Input wire, drawing correlated randomness from stream for
// every And gate, and exchanging AND-gate messages over ring. It
// returns the final RSS pair held for every Output wire, in the order
// the circuit declares them.
//
// Circuit validation always runs first, before any network I/O. From
// there, gate evaluation is strictly sequential: AND gates are
// processed in circuit order so that the gate_seq carried on the
// transport and the counter consumed from stream are identical on all
// three parties.
func Run(
	ctx context.Context,
	self party.Index,
	circ *circuit.Circuit,
	inputs WireTable,
	stream *corand.Stream,
	ring transport.Ring,
	queryID string,
) ([]bitshare.Pair, error) {
	if err := circuit.Validate(circ); err != nil {
		return nil, err
	}

	log.Printf("[engine] party %s running query %s: %d gates, %d outputs", self, queryID, len(circ.Gates()), len(circ.Outputs()))
	defer ring.CloseQuery(queryID)

	wires := make(WireTable, circ.WireCount())
	var gateSeq uint64

	for _, g := range circ.Gates() {
		switch g.Kind {
		case circuit.Input:
			pair, ok := inputs[g.Out]
			if !ok {
				return nil, fmt.Errorf("%w: no input bound for wire %d", errs.ErrCircuitValidation, g.Out)
			}
			wires[g.Out] = pair

		case circuit.Not:
			wires[g.Out] = bitshare.NotLocal(self, wires[g.In])

		case circuit.Xor:
			wires[g.Out] = bitshare.XorLocal(wires[g.L], wires[g.R])

		case circuit.And:
			out, err := execAnd(ctx, wires[g.L], wires[g.R], stream, ring, queryID, gateSeq)
			if err != nil {
				return nil, err
			}
			wires[g.Out] = out
			gateSeq++

		case circuit.Output:
			// recorded after the loop, in declared order, via circ.Outputs()

		default:
			return nil, fmt.Errorf("%w: unknown gate kind %v", errs.ErrCircuitValidation, g.Kind)
		}
	}

	outputs := make([]bitshare.Pair, len(circ.Outputs()))
	for i, w := range circ.Outputs() {
		outputs[i] = wires[w]
	}
	log.Printf("[engine] party %s finished query %s", self, queryID)
	return outputs, nil
}

// execAnd runs one instance of the three-party semi-honest AND
// protocol:
//
//  1. z_i = x_i*y_i ^ x_i*y_(i+1) ^ x_(i+1)*y_i ^ alpha_i
//  2. send z_i to the left neighbour, receive z_(i+1) from the right
//     neighbour
//  3. (z_i, z_(i+1)) is a valid RSS pair for x*y
func execAnd(
	ctx context.Context,
	x, y bitshare.Pair,
	stream *corand.Stream,
	ring transport.Ring,
	queryID string,
	gateSeq uint64,
) (bitshare.Pair, error) {
	alpha, err := stream.Next()
	if err != nil {
		return bitshare.Pair{}, err
	}

	zOwn := (x.Own && y.Own) != (x.Own && y.Right) != (x.Right && y.Own) != alpha

	if err := ring.SendLeft(ctx, transport.Message{
		QueryID: queryID,
		GateSeq: gateSeq,
		Payload: []byte{boolToByte(zOwn)},
	}); err != nil {
		return bitshare.Pair{}, err
	}

	msg, err := ring.RecvRight(ctx, queryID)
	if err != nil {
		return bitshare.Pair{}, err
	}
	if msg.QueryID != queryID || len(msg.Payload) != 1 {
		return bitshare.Pair{}, errs.ErrProtocolDesync
	}

	return bitshare.Pair{Own: zOwn, Right: byteToBool(msg.Payload[0])}, nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func byteToBool(b byte) bool {
	return b != 0
}

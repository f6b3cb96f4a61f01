// Package orchestrator implements the non-secret coordinator: it
// dispatches a byte-identical circuit and input manifest to the three
// computing nodes, fans the dispatch out across them with co-go,
// collects every output-share contribution, and reconstructs the
// plaintext result. Any node failure or timeout fails the whole
// query; no partial result is ever returned.
package orchestrator

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"

	"github.com/republicprotocol/co-go"
	"github.com/zeebo/blake3"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/party"
)

// NodeClient is the orchestrator's view of one computing node: submit
// a query's circuit and bound inputs, and get back this node's RSS
// pair for every declared output wire. A real deployment implements
// this over core/rpc; tests can call straight into
// an in-process engine.Node.
type NodeClient interface {
	EvalQuery(ctx context.Context, queryID string, circ *circuit.Circuit, inputs map[circuit.Wire]bitshare.Pair) ([]bitshare.Pair, error)
}

// Orchestrator holds one NodeClient per party and issues queries
// against all three.
type Orchestrator struct {
	nodes [party.N]NodeClient
}

// New returns an Orchestrator dispatching to nodes, indexed by
// party.Index.
func New(nodes [party.N]NodeClient) *Orchestrator {
	return &Orchestrator{nodes: nodes}
}

// Inputs binds every input wire of a circuit to the three parties'
// RSS pairs, one map per party, keyed the same as engine.WireTable.
type Inputs [party.N]map[circuit.Wire]bitshare.Pair

// SubmitQuery dispatches circ to all three nodes under a fresh
// query_id derived from the circuit and inputs, awaits all three
// output-share contributions, and reconstructs the plaintext result.
// If any node returns an error, including a timeout
// surfaced through ctx, the whole query fails and no partial result is
// returned.
func (o *Orchestrator) SubmitQuery(ctx context.Context, circ *circuit.Circuit, inputs Inputs) ([]bool, error) {
	if err := circuit.Validate(circ); err != nil {
		return nil, err
	}

	queryID, err := deriveQueryID(circ, inputs, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: deriving query_id: %w", err)
	}
	log.Printf("[orchestrator] dispatching query %s to %d nodes", queryID, party.N)

	results := make([][]bitshare.Pair, party.N)
	nodeErrs := make([]error, party.N)

	co.ParForAll(o.nodes[:], func(i int) {
		out, err := o.nodes[i].EvalQuery(ctx, queryID, circ, inputs[i])
		if err != nil {
			nodeErrs[i] = err
			return
		}
		results[i] = out
	})
	for i, err := range nodeErrs {
		if err != nil {
			log.Printf("[orchestrator] query %s failed: node %s: %v", queryID, party.Index(i), err)
			return nil, errs.NewQueryError(queryID, fmt.Errorf("node %s: %w", party.Index(i), err))
		}
	}

	outputCount := len(circ.Outputs())
	plaintext := make([]bool, outputCount)
	for w := 0; w < outputCount; w++ {
		components := bitshare.ComponentsFromPairs(0, results[0][w], 1, results[1][w])
		b, err := bitshare.Reconstruct(components)
		if err != nil {
			return nil, err
		}
		plaintext[w] = b
	}
	log.Printf("[orchestrator] query %s reconstructed %d outputs", queryID, outputCount)
	return plaintext, nil
}

// deriveQueryID derives a query_id from a fresh random nonce folded
// together with the circuit's shape and its bound inputs. The nonce,
// read from rng, guarantees two submissions of the identical query never
// collide, so they never reuse the same correlated-randomness stream
// (core/corand's NewStream is keyed on query_id).
func deriveQueryID(circ *circuit.Circuit, inputs Inputs, rng io.Reader) (string, error) {
	var nonce [16]byte
	if _, err := io.ReadFull(rng, nonce[:]); err != nil {
		return "", fmt.Errorf("orchestrator: reading query_id nonce: %w", err)
	}

	h := blake3.New()
	h.Write(nonce[:])
	fmt.Fprintf(h, "|wires=%d outputs=%d", circ.WireCount(), len(circ.Outputs()))
	for _, i := range party.All() {
		for w, pair := range inputs[i] {
			fmt.Fprintf(h, "|party%d.w%d=%v,%v", i, w, pair.Own, pair.Right)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

package engine

import (
	"context"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/corand"
	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/transport"
)

// Node is one of the three well-known computing-node endpoints,
// party 0 / 1 / 2, each on its own port. It holds the one-time
// correlated-randomness session established at session start and
// evaluates one query at a time by minting a fresh Stream and running
// Run against it. Each node runs a single-threaded cooperative engine
// per query; concurrent queries are handled by partitioning on
// query_id and calling EvalQuery from independent goroutines, each
// with its own Stream.
type Node struct {
	Self    party.Index
	Session *corand.Session
}

// NewNode returns a Node for self, using session for correlated
// randomness.
func NewNode(self party.Index, session *corand.Session) *Node {
	return &Node{Self: self, Session: session}
}

// EvalQuery runs one query's circuit to completion, returning this
// node's RSS pair for every declared output wire.
func (n *Node) EvalQuery(
	ctx context.Context,
	queryID string,
	circ *circuit.Circuit,
	inputs WireTable,
	ring transport.Ring,
) ([]bitshare.Pair, error) {
	stream := n.Session.NewStream([]byte(queryID))
	return Run(ctx, n.Self, circ, inputs, stream, ring, queryID)
}

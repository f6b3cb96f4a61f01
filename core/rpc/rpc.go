// Package rpc exposes a computing node's client-facing operations
// (EvalQuery, SendTableShares) over net/rpc. The peer-to-peer pieces
// of the protocol stay on core/transport's hand-framed byte streams;
// this package only covers the orchestrator-to-node and
// owner-to-node request/response surface.
package rpc

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/rpc"

	"github.com/fxamacker/cbor/v2"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/orchestrator"
	"github.com/threepartysql/threepc/core/schema"
	"github.com/threepartysql/threepc/core/share"
	"github.com/threepartysql/threepc/core/transport"
)

// EvalQueryRequest carries the circuit, byte-identical across all
// three nodes, plus this party's bound inputs for one query.
type EvalQueryRequest struct {
	QueryID     string
	CircuitData []byte
	Inputs      map[circuit.Wire]bitshare.Pair
}

// EvalQueryResponse carries one party's RSS pair for every declared
// output wire, or an error message if the node failed the query.
type EvalQueryResponse struct {
	Outputs []bitshare.Pair
	Err     string
}

// tableSharesPayload is the plaintext body sealed inside a
// SendTableSharesRequest: the actual owner/table/share-bundle data
// never crosses the wire unsealed. Share delivery runs over an
// authenticated channel.
type tableSharesPayload struct {
	Owner share.DataOwnerInfo
	Table schema.Table
	Data  share.BinaryPartyData
}

// SendTableSharesRequest carries the SendTableShares RPC payload,
// NaCl-box sealed to the node's public key so that only the node can
// read the owner's share bundle.
type SendTableSharesRequest struct {
	CallerPublicKey [32]byte
	Sealed          []byte
}

// SendTableSharesResponse carries the SendTableShares RPC result.
type SendTableSharesResponse struct {
	Accepted    bool
	StoragePath string
	Err         string
}

// PublicKeyResponse carries a node's NaCl box public key, fetched by a
// data owner before sealing a SendTableShares submission.
type PublicKeyResponse struct {
	PublicKey [32]byte
}

// EvalQueryFunc is the node-local handler a Server delegates to; it
// is exactly engine.Node.EvalQuery's shape with the ring and session
// already bound.
type EvalQueryFunc func(queryID string, circ *circuit.Circuit, inputs map[circuit.Wire]bitshare.Pair) ([]bitshare.Pair, error)

// Server exposes one computing node's EvalQuery and SendTableShares
// operations as net/rpc methods, registered under the name "Server".
type Server struct {
	evalQuery  EvalQueryFunc
	shareStore share.Store
	keys       *transport.KeyPair
}

// NewServer returns a Server delegating EvalQuery to eval and
// SendTableShares to a Store backed by store. It draws a fresh NaCl
// box key pair so that share submissions can be sealed to it, the same
// ephemeral-key pattern core/node.Bootstrap uses for the ring's seed
// handshake.
func NewServer(eval EvalQueryFunc, store share.Store) (*Server, error) {
	keys, err := transport.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("rpc: generating server key pair: %w", err)
	}
	return &Server{evalQuery: eval, shareStore: store, keys: keys}, nil
}

// PublicKey returns this node's NaCl box public key, so a data owner
// can seal its SendTableShares submission before sending it.
func (s *Server) PublicKey(_ struct{}, resp *PublicKeyResponse) error {
	resp.PublicKey = *s.keys.Public
	return nil
}

// EvalQuery is the net/rpc method the orchestrator's Client calls to
// run one query on this node.
func (s *Server) EvalQuery(req EvalQueryRequest, resp *EvalQueryResponse) error {
	circ := &circuit.Circuit{}
	if err := circ.UnmarshalBinary(req.CircuitData); err != nil {
		resp.Err = fmt.Sprintf("decoding circuit: %v", err)
		return nil
	}
	if err := circuit.Validate(circ); err != nil {
		resp.Err = err.Error()
		return nil
	}
	out, err := s.evalQuery(req.QueryID, circ, req.Inputs)
	if err != nil {
		resp.Err = err.Error()
		return nil
	}
	resp.Outputs = out
	return nil
}

// SendTableShares is the net/rpc method backing the
// share-delivery RPC. The request body is never read off the wire in
// the clear: it opens req.Sealed against the caller's public key
// before decoding the owner/table/share-bundle payload.
func (s *Server) SendTableShares(req SendTableSharesRequest, resp *SendTableSharesResponse) error {
	peerKey := req.CallerPublicKey
	ch := transport.NewAuthChannel(s.keys, &peerKey)
	plaintext, err := ch.Open(req.Sealed)
	if err != nil {
		resp.Err = fmt.Sprintf("opening sealed share submission: %v", err)
		return nil
	}
	var payload tableSharesPayload
	if err := cbor.Unmarshal(plaintext, &payload); err != nil {
		resp.Err = fmt.Sprintf("decoding share submission: %v", err)
		return nil
	}

	accepted, path, err := share.SendTableShares(payload.Owner, payload.Table, payload.Data, s.shareStore)
	if err != nil {
		resp.Err = err.Error()
		return nil
	}
	resp.Accepted = accepted
	resp.StoragePath = path
	return nil
}

// Client adapts a net/rpc connection to a single node into
// orchestrator.NodeClient, so the orchestrator can dispatch queries
// without knowing how a node is actually reached. It also carries its
// own NaCl box key pair so it can act as the data owner in the
// SendTableShares RPC.
type Client struct {
	rpc  *rpc.Client
	keys *transport.KeyPair
}

// Dial connects to a node's RPC endpoint at addr.
func Dial(addr string) (*Client, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: dialing %s: %w", addr, err)
	}
	keys, err := transport.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("rpc: generating client key pair: %w", err)
	}
	return &Client{rpc: c, keys: keys}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

var _ orchestrator.NodeClient = (*Client)(nil)

// EvalQuery implements orchestrator.NodeClient by marshaling circ and
// calling the remote node's "Server.EvalQuery" method over a
// goroutine, so ctx's deadline is honoured even though net/rpc's Call
// itself is not context-aware.
func (c *Client) EvalQuery(ctx context.Context, queryID string, circ *circuit.Circuit, inputs map[circuit.Wire]bitshare.Pair) ([]bitshare.Pair, error) {
	data, err := circ.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("rpc: marshaling circuit: %w", err)
	}
	req := EvalQueryRequest{QueryID: queryID, CircuitData: data, Inputs: inputs}
	var resp EvalQueryResponse
	call := c.rpc.Go("Server.EvalQuery", req, &resp, nil)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-call.Done:
		if call.Error != nil {
			return nil, fmt.Errorf("rpc: calling node: %w", call.Error)
		}
		if resp.Err != "" {
			return nil, fmt.Errorf("node: %s", resp.Err)
		}
		return resp.Outputs, nil
	}
}

// SendTableShares implements the share-delivery RPC from the
// data owner's side: it fetches the node's current public key, seals
// owner/table/data to it with NaCl box, and calls the remote node's
// "Server.SendTableShares" method. The plaintext share bundle never
// leaves the process.
func (c *Client) SendTableShares(owner share.DataOwnerInfo, table schema.Table, data share.BinaryPartyData) (accepted bool, storagePath string, err error) {
	var pk PublicKeyResponse
	if err := c.rpc.Call("Server.PublicKey", struct{}{}, &pk); err != nil {
		return false, "", fmt.Errorf("rpc: fetching node public key: %w", err)
	}

	payload := tableSharesPayload{Owner: owner, Table: table, Data: data}
	body, err := cbor.Marshal(payload)
	if err != nil {
		return false, "", fmt.Errorf("rpc: encoding share submission: %w", err)
	}

	ch := transport.NewAuthChannel(c.keys, &pk.PublicKey)
	sealed, err := ch.Seal(body)
	if err != nil {
		return false, "", fmt.Errorf("rpc: sealing share submission: %w", err)
	}

	req := SendTableSharesRequest{CallerPublicKey: *c.keys.Public, Sealed: sealed}
	var resp SendTableSharesResponse
	if err := c.rpc.Call("Server.SendTableShares", req, &resp); err != nil {
		return false, "", fmt.Errorf("rpc: calling node: %w", err)
	}
	if resp.Err != "" {
		return false, "", fmt.Errorf("node: %s", resp.Err)
	}
	return resp.Accepted, resp.StoragePath, nil
}

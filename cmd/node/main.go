// Command node runs one of the three computing-node endpoints: it
// joins the correlated-randomness/AND-gate ring with its two
// neighbours, then serves the client-facing EvalQuery and
// SendTableShares RPCs until terminated.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/rpc"

	"github.com/threepartysql/threepc/core/bitshare"
	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/config"
	"github.com/threepartysql/threepc/core/engine"
	"github.com/threepartysql/threepc/core/node"
	"github.com/threepartysql/threepc/core/party"
	rpcpkg "github.com/threepartysql/threepc/core/rpc"
	"github.com/threepartysql/threepc/core/share"
)

func main() {
	configPath := flag.String("config", "session.yaml", "path to the session topology YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[node] loading config: %v", err)
	}
	self := party.Index(cfg.Self)

	listenAddr, err := cfg.RingEndpoint(uint8(self))
	if err != nil {
		log.Fatalf("[node] %v", err)
	}
	rightAddr, err := cfg.RingEndpoint(uint8(self.Right()))
	if err != nil {
		log.Fatalf("[node] %v", err)
	}

	log.Printf("[node] party %s joining ring: listening on %s, dialing right neighbour %s", self, listenAddr, rightAddr)
	sess, err := node.Bootstrap(self, listenAddr, rightAddr, cfg.QueryTimeout.Std())
	if err != nil {
		log.Fatalf("[node] bootstrap: %v", err)
	}
	defer sess.Close()
	log.Printf("[node] party %s ring ready", self)

	engineNode := engine.NewNode(self, sess.Corand)
	store := share.NewMemoryStore()

	server, err := rpcpkg.NewServer(func(queryID string, circ *circuit.Circuit, inputs map[circuit.Wire]bitshare.Pair) ([]bitshare.Pair, error) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout.Std())
		defer cancel()
		return engineNode.EvalQuery(ctx, queryID, circ, inputs, sess.Ring)
	}, store)
	if err != nil {
		log.Fatalf("[node] %v", err)
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Server", server); err != nil {
		log.Fatalf("[node] registering RPC server: %v", err)
	}

	clientAddr, err := cfg.Endpoint(uint8(self))
	if err != nil {
		log.Fatalf("[node] %v", err)
	}
	listener, err := net.Listen("tcp", clientAddr)
	if err != nil {
		log.Fatalf("[node] listening on %s: %v", clientAddr, err)
	}
	log.Printf("[node] party %s serving client RPC on %s", self, clientAddr)
	rpcServer.Accept(listener)
}

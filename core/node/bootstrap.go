// Package node assembles one computing node's peer-to-peer session:
// the two ring connections to its left and right neighbours, the
// one-time correlated-randomness seed handshake over them, and the
// resulting transport.Ring and corand.Session the protocol engine
// runs against. Every node dials its right neighbour's ring address
// and accepts exactly one incoming connection, which becomes its left
// neighbour's connection, so the triangle's three edges are each
// dialed exactly once.
package node

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/threepartysql/threepc/core/corand"
	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/transport"
)

// Session bundles the peer connections, correlated-randomness
// session, and AND-gate ring one node needs to evaluate queries.
type Session struct {
	Self      party.Index
	Corand    *corand.Session
	Ring      transport.Ring
	leftConn  net.Conn
	rightConn net.Conn
}

// Close releases the node's two ring connections.
func (s *Session) Close() error {
	err1 := s.leftConn.Close()
	err2 := s.rightConn.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Bootstrap listens on listenAddr for the incoming connection from
// self's left neighbour, dials rightAddr to reach self's right
// neighbour, exchanges NaCl box public keys over both, and runs the
// one-time correlated-randomness seed handshake before
// returning a ready-to-use Session.
func Bootstrap(self party.Index, listenAddr, rightAddr string, dialTimeout time.Duration) (*Session, error) {
	leftConn, rightConn, err := connectTriangle(listenAddr, rightAddr, dialTimeout)
	if err != nil {
		return nil, err
	}

	selfKeys, err := transport.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, err
	}
	leftPeerKey, err := exchangePublicKey(leftConn, selfKeys.Public)
	if err != nil {
		return nil, fmt.Errorf("node: exchanging key with left neighbour: %w", err)
	}
	rightPeerKey, err := exchangePublicKey(rightConn, selfKeys.Public)
	if err != nil {
		return nil, fmt.Errorf("node: exchanging key with right neighbour: %w", err)
	}

	fromLeftAuth := transport.NewAuthChannel(selfKeys, leftPeerKey)
	toRightAuth := transport.NewAuthChannel(selfKeys, rightPeerKey)
	seedTransport := corand.NewNetSeedTransport(rightConn, leftConn, toRightAuth, fromLeftAuth)

	session, err := corand.Handshake(self, seedTransport, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("node: correlated-randomness handshake: %w", err)
	}

	ring := transport.NewNetRing(leftConn, rightConn)
	return &Session{Self: self, Corand: session, Ring: ring, leftConn: leftConn, rightConn: rightConn}, nil
}

// connectTriangle accepts the one incoming ring connection on
// listenAddr and dials rightAddr, retrying the dial until
// dialTimeout elapses since the peer may not be listening yet.
func connectTriangle(listenAddr, rightAddr string, dialTimeout time.Duration) (leftConn, rightConn net.Conn, err error) {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("node: listening on %s: %w", listenAddr, err)
	}
	defer listener.Close()

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		c, acceptErr := listener.Accept()
		acceptCh <- acceptResult{c, acceptErr}
	}()

	deadline := time.Now().Add(dialTimeout)
	for {
		rightConn, err = net.Dial("tcp", rightAddr)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, nil, fmt.Errorf("node: dialing right neighbour %s: %w", rightAddr, err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	res := <-acceptCh
	if res.err != nil {
		rightConn.Close()
		return nil, nil, fmt.Errorf("node: accepting left neighbour: %w", res.err)
	}
	return res.conn, rightConn, nil
}

// exchangePublicKey writes selfPub to conn and reads the peer's
// 32-byte public key in return, the minimal handshake NewAuthChannel
// needs before any sealed message can be sent.
func exchangePublicKey(conn net.Conn, selfPub *[32]byte) (*[32]byte, error) {
	errCh := make(chan error, 1)
	go func() {
		_, writeErr := conn.Write(selfPub[:])
		errCh <- writeErr
	}()

	var peerPub [32]byte
	if _, err := io.ReadFull(conn, peerPub[:]); err != nil {
		return nil, err
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return &peerPub, nil
}

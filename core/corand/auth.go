package corand

import (
	"net"

	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/transport"
)

// NetSeedTransport is the real, authenticated SeedTransport used by
// deployed nodes: it seals the locally generated edge seed with NaCl
// box addressed to the neighbour's known public key, and opens the
// neighbour's sealed seed in return.
type NetSeedTransport struct {
	toRight      net.Conn
	fromLeft     net.Conn
	toRightAuth  *transport.AuthChannel
	fromLeftAuth *transport.AuthChannel
}

// NewNetSeedTransport builds a NetSeedTransport from the two
// established connections and their matching authenticated channels.
func NewNetSeedTransport(toRight, fromLeft net.Conn, toRightAuth, fromLeftAuth *transport.AuthChannel) *NetSeedTransport {
	return &NetSeedTransport{
		toRight:      toRight,
		fromLeft:     fromLeft,
		toRightAuth:  toRightAuth,
		fromLeftAuth: fromLeftAuth,
	}
}

// SendSeed seals and sends this party's freshly generated edge seed to
// its right neighbour. to is always the right neighbour in this
// one-ring implementation; it is accepted to satisfy SeedTransport.
func (t *NetSeedTransport) SendSeed(to party.Index, seed []byte) error {
	return t.toRightAuth.SendSealed(t.toRight, seed)
}

// RecvSeed receives and opens the left neighbour's sealed edge seed.
// from is always the left neighbour in this one-ring implementation;
// it is accepted to satisfy SeedTransport.
func (t *NetSeedTransport) RecvSeed(from party.Index) ([]byte, error) {
	return t.fromLeftAuth.RecvSealed(t.fromLeft)
}

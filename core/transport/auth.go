package transport

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"golang.org/x/crypto/nacl/box"
)

// KeyPair is a NaCl box key pair used to authenticate the one-time
// session handshake (the corand seed exchange) and share delivery.
// Keys are per-session identities, generated fresh at bootstrap.
type KeyPair struct {
	Public  *[32]byte
	private *[32]byte
}

// GenerateKeyPair draws a fresh NaCl box key pair.
func GenerateKeyPair(rng io.Reader) (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rng)
	if err != nil {
		return nil, fmt.Errorf("transport: generating key pair: %w", err)
	}
	return &KeyPair{Public: pub, private: priv}, nil
}

// AuthChannel seals and opens messages addressed to a single known
// peer public key, giving the one-time seed handshake and the share
// delivery RPC an authenticated point-to-point channel without
// needing a full session-layer protocol.
type AuthChannel struct {
	self *KeyPair
	peer *[32]byte
}

// NewAuthChannel builds an AuthChannel between self (holding the
// private key) and peer's known public key.
func NewAuthChannel(self *KeyPair, peer *[32]byte) *AuthChannel {
	return &AuthChannel{self: self, peer: peer}
}

// Seal authenticates and encrypts plaintext for delivery to the peer.
// The nonce is drawn fresh per call, as box.Seal requires.
func (c *AuthChannel) Seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("transport: generating nonce: %w", err)
	}
	sealed := box.Seal(nonce[:], plaintext, &nonce, c.peer, c.self.private)
	return sealed, nil
}

// Open authenticates and decrypts a message produced by Seal on the
// peer's matching channel.
func (c *AuthChannel) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, fmt.Errorf("transport: sealed message too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	opened, ok := box.Open(nil, sealed[24:], &nonce, c.peer, c.self.private)
	if !ok {
		log.Printf("[transport] rejecting sealed message: authentication failed")
		return nil, fmt.Errorf("transport: authentication failed")
	}
	return opened, nil
}

// SendSealed seals plaintext for the channel's peer and writes it to
// w with the same 4-byte length-prefix framing the engine's Ring
// messages use, so a ring connection can carry the one-time seed
// handshake before the AND-gate messages.
func (c *AuthChannel) SendSealed(w io.Writer, plaintext []byte) error {
	sealed, err := c.Seal(plaintext)
	if err != nil {
		return err
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(sealed)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return mapNetErr(err)
	}
	if _, err := w.Write(sealed); err != nil {
		return mapNetErr(err)
	}
	return nil
}

// RecvSealed reads one length-prefixed sealed message from r and
// opens it against the channel's peer key.
func (c *AuthChannel) RecvSealed(r io.Reader) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, mapNetErr(err)
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("transport: sealed frame size %d exceeds %d byte limit", size, maxFrameSize)
	}
	sealed := make([]byte, size)
	if _, err := io.ReadFull(r, sealed); err != nil {
		return nil, mapNetErr(err)
	}
	return c.Open(sealed)
}

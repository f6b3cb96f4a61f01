// Package transport implements the point-to-point ordered reliable
// channel contract between computing nodes: for the
// AND-gate exchange, each party sends to its left neighbour and
// receives from its right neighbour, forming a single directed ring
// around the triangle. Messages carry (query_id, gate_sequence_number)
// and a receiver must reject any message whose sequence number does
// not strictly exceed the last one accepted on that channel.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/threepartysql/threepc/core/errs"
)

// maxFrameSize bounds any single length-prefixed frame this package
// reads off the wire (a gate message or a sealed handshake/share
// payload). Real traffic is a handful of bytes; this only exists to
// stop a corrupted or hostile length prefix from driving a
// multi-gigabyte allocation before the frame's contents are even
// validated.
const maxFrameSize = 16 << 20

// Message is one framed record exchanged between two nodes.
type Message struct {
	QueryID string
	GateSeq uint64
	Payload []byte
}

// Ring is a single party's view of the AND-gate message ring: a
// channel to send to its left neighbour, and a channel to receive
// from its right neighbour. RecvRight takes the query_id so an
// implementation serving many queries over its lifetime (a node's
// NetRing lives for the whole process, not just one query) can track
// ordering and demultiplex incoming messages per query rather than
// against one connection-wide sequence. CloseQuery releases whatever
// per-query_id state RecvRight accumulated; callers must invoke it
// exactly once after a query's last RecvRight, win or lose.
type Ring interface {
	SendLeft(ctx context.Context, msg Message) error
	RecvRight(ctx context.Context, queryID string) (Message, error)
	CloseQuery(queryID string)
}

// encode serializes msg with a 4-byte big-endian length prefix.
func encode(w io.Writer, msg Message) error {
	body, err := cbor.Marshal(msg)
	if err != nil {
		return err
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func decode(r io.Reader) (Message, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Message{}, err
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])
	if size > maxFrameSize {
		return Message{}, fmt.Errorf("%w: frame size %d exceeds %d byte limit", errs.ErrProtocolDesync, size, maxFrameSize)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, err
	}
	var msg Message
	if err := cbor.Unmarshal(body, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// seqGuard enforces the lock-step ordering invariant on a single
// query's gate sequence: the first message is always accepted, every
// subsequent one must carry a strictly greater gate sequence number.
// One seqGuard is scoped to exactly one query_id; a ring serving many
// queries over its lifetime keeps one per query_id rather than one
// for its whole connection, since gate_seq always restarts at 0 per
// query (engine.Run mints a fresh counter every call).
type seqGuard struct {
	mu      sync.Mutex
	started bool
	last    uint64
}

func (g *seqGuard) check(seq uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started && seq <= g.last {
		log.Printf("[transport] rejecting out-of-order gate_seq %d, last accepted %d", seq, g.last)
		return errs.ErrProtocolDesync
	}
	g.started = true
	g.last = seq
	return nil
}

// queryDemux holds the per-query_id state a Ring implementation needs
// to serve many queries, possibly concurrently, over one long-lived
// connection or channel pair: a buffered inbox for messages matching
// that query_id and the seqGuard scoped to it.
type queryDemux struct {
	mu    sync.Mutex
	boxes map[string]chan Message
	seqs  map[string]*seqGuard
}

func newQueryDemux() *queryDemux {
	return &queryDemux{boxes: map[string]chan Message{}, seqs: map[string]*seqGuard{}}
}

func (d *queryDemux) inbox(queryID string) chan Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.boxes[queryID]
	if !ok {
		ch = make(chan Message, 8)
		d.boxes[queryID] = ch
		d.seqs[queryID] = &seqGuard{}
	}
	return ch
}

func (d *queryDemux) seqGuardFor(queryID string) *seqGuard {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seqs[queryID]
}

func (d *queryDemux) closeQuery(queryID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.boxes, queryID)
	delete(d.seqs, queryID)
}

// NetRing is a Ring backed by two net.Conn, one per direction,
// established out of band (core/node.Bootstrap passes the connection
// its listener accepted from the left neighbour as toLeft, and the one
// it dialed to the right neighbour as fromRight).
// A single NetRing serves every query the node's RPC server dispatches
// over the lifetime of the connection, so reads off fromRight are
// demultiplexed by query_id rather than consumed directly by whichever
// goroutine happens to call RecvRight.
type NetRing struct {
	toLeft     net.Conn
	fromRight  net.Conn
	writeMutex sync.Mutex

	demuxOnce sync.Once
	demux     *queryDemux

	failOnce sync.Once
	failErr  error
	failCh   chan struct{}
}

// NewNetRing builds a Ring from the two established connections.
func NewNetRing(toLeft, fromRight net.Conn) *NetRing {
	return &NetRing{
		toLeft:    toLeft,
		fromRight: fromRight,
		demux:     newQueryDemux(),
		failCh:    make(chan struct{}),
	}
}

func (r *NetRing) SendLeft(ctx context.Context, msg Message) error {
	r.writeMutex.Lock()
	defer r.writeMutex.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = r.toLeft.SetWriteDeadline(deadline)
	}
	if err := encode(r.toLeft, msg); err != nil {
		return mapNetErr(err)
	}
	return nil
}

// startReader launches, once per NetRing, the single goroutine
// allowed to read fromRight. It decodes every incoming frame and
// routes it to the inbox for its query_id, so that concurrent
// EvalQuery calls sharing this connection never race on decode.
func (r *NetRing) startReader() {
	r.demuxOnce.Do(func() {
		go func() {
			for {
				msg, err := decode(r.fromRight)
				if err != nil {
					r.fail(mapNetErr(err))
					return
				}
				r.demux.inbox(msg.QueryID) <- msg
			}
		}()
	})
}

func (r *NetRing) fail(err error) {
	r.failOnce.Do(func() {
		r.failErr = err
		close(r.failCh)
	})
}

func (r *NetRing) RecvRight(ctx context.Context, queryID string) (Message, error) {
	r.startReader()
	select {
	case <-ctx.Done():
		return Message{}, ctxErr(ctx)
	case <-r.failCh:
		return Message{}, r.failErr
	case msg := <-r.demux.inbox(queryID):
		if err := r.demux.seqGuardFor(queryID).check(msg.GateSeq); err != nil {
			return Message{}, err
		}
		return msg, nil
	}
}

// CloseQuery releases the inbox and sequence guard this ring kept for
// queryID. Callers must invoke it once the query is done with this
// ring (success or failure) so a long-lived NetRing's per-query state
// doesn't grow without bound across the node's lifetime.
func (r *NetRing) CloseQuery(queryID string) {
	r.demux.closeQuery(queryID)
}

func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.ErrTimeout
	}
	return fmt.Errorf("%w: %v", errs.ErrTransportFailure, ctx.Err())
}

func mapNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.ErrTimeout
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return errs.ErrTimeout
	}
	log.Printf("[transport] ring connection error: %v", err)
	return fmt.Errorf("%w: %v", errs.ErrTransportFailure, err)
}

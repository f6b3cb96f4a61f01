package transport

import (
	"context"
	"sync"

	"github.com/threepartysql/threepc/core/party"
)

// MemoryRing is an in-memory Ring used by single-process tests and
// the end-to-end scenarios, which run all three parties
// as goroutines sharing one address space. It provides the same
// sequencing guarantees as NetRing without any real I/O, demultiplexed
// by query_id the same way so a MemoryRing can, like a NetRing, be
// reused across more than one query.
type MemoryRing struct {
	send chan Message
	recv chan Message

	demuxOnce sync.Once
	demux     *queryDemux
}

// NewMemoryTriangle builds the three Rings for a full triangle: each
// party i sends on the edge (i, i.Left()) and receives on the edge
// (i.Right(), i), matching the AND protocol's "send to left neighbour,
// receive from right neighbour" direction.
func NewMemoryTriangle(cap int) [party.N]*MemoryRing {
	// One channel per directed edge i -> i.Left(), for all three i.
	edges := map[party.Index]chan Message{}
	for _, i := range party.All() {
		edges[i] = make(chan Message, cap)
	}

	var rings [party.N]*MemoryRing
	for _, i := range party.All() {
		rings[i] = &MemoryRing{
			send:  edges[i],         // this party sends on its own outbound edge
			recv:  edges[i.Right()], // this party receives on its right neighbour's outbound edge
			demux: newQueryDemux(),
		}
	}
	return rings
}

func (r *MemoryRing) SendLeft(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctxErr(ctx)
	case r.send <- msg:
		return nil
	}
}

// startReader launches, once per MemoryRing, the single goroutine
// allowed to read r.recv. It routes every message to the inbox for
// its query_id, mirroring NetRing's demultiplexing so messages from
// two queries sharing this ring's channel can't be delivered to the
// wrong RecvRight caller.
func (r *MemoryRing) startReader() {
	r.demuxOnce.Do(func() {
		go func() {
			for msg := range r.recv {
				r.demux.inbox(msg.QueryID) <- msg
			}
		}()
	})
}

func (r *MemoryRing) RecvRight(ctx context.Context, queryID string) (Message, error) {
	r.startReader()
	select {
	case <-ctx.Done():
		return Message{}, ctxErr(ctx)
	case msg := <-r.demux.inbox(queryID):
		if err := r.demux.seqGuardFor(queryID).check(msg.GateSeq); err != nil {
			return Message{}, err
		}
		return msg, nil
	}
}

// CloseQuery releases the inbox and sequence guard this ring kept for
// queryID, the in-memory counterpart to NetRing.CloseQuery.
func (r *MemoryRing) CloseQuery(queryID string) {
	r.demux.closeQuery(queryID)
}

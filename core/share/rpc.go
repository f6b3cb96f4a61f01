// rpc.go implements the SendTableShares external interface: a data
// owner submits one party's binary share bundle for a table, keyed
// for idempotency by blake3(owner_id, table_id, timestamp).
package share

import (
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/schema"
)

// DataOwnerInfo identifies the submitting data owner.
type DataOwnerInfo struct {
	OwnerID   string
	OwnerName string
}

// TableSchema is the wire form of a table's schema;
// core/schema.Table already carries exactly this shape.
type TableSchema = schema.Table

// Row is one row of a BinaryPartyData submission: the two bitstrings
// this party holds for the row, plus explicit per-column bit offsets
// and lengths so a receiver can validate
// offsets[c]+lengths[c] <= 8*len(bitstring) independently of the
// sender's schema copy.
type Row struct {
	BitstringA       []byte
	BitstringB       []byte
	ColumnBitOffsets []int
	ColumnBitLengths []int
}

// BinaryPartyData is the per-party payload of SendTableShares: the
// bundle destined for a single computing node.
type BinaryPartyData struct {
	PartyID             party.Index
	TableID             string
	Rows                []Row
	SubmissionTimestamp int64
}

// Store is the minimal persistence surface SendTableShares needs: a
// place to record accepted submissions (for idempotency) and the
// resulting storage path. A real deployment backs this with a
// database; core/share/store_memory.go provides an in-memory
// implementation for tests and the cmd/node reference server.
type Store interface {
	// Put records a fresh submission under key, returning
	// errs.ErrDuplicateSubmission if key was already recorded.
	Put(key, storagePath string, data BinaryPartyData) error
}

// SendTableShares implements the share-delivery RPC: it
// validates party ID and schema shape, derives the idempotency key
// from (owner_id, table_id, submission_timestamp), and stores the
// party's bundle, returning the storage path a node would persist it
// under.
func SendTableShares(owner DataOwnerInfo, table TableSchema, data BinaryPartyData, store Store) (accepted bool, storagePath string, err error) {
	if !data.PartyID.Valid() {
		return false, "", errs.ErrInvalidPartyID
	}
	if data.TableID != table.ID {
		return false, "", fmt.Errorf("%w: submission table_id %q does not match schema table_id %q", errs.ErrSchemaMismatch, data.TableID, table.ID)
	}
	if len(data.Rows) != table.RowCount {
		return false, "", fmt.Errorf("%w: submission has %d rows, schema declares %d", errs.ErrSchemaMismatch, len(data.Rows), table.RowCount)
	}
	if err := validateRows(table, data.Rows); err != nil {
		return false, "", err
	}

	key := idempotencyKey(owner.OwnerID, table.ID, data.SubmissionTimestamp)
	storagePath = fmt.Sprintf("shares/%s/%s/%s.bin", table.ID, owner.OwnerID, key)
	if err := store.Put(key, storagePath, data); err != nil {
		return false, "", err
	}
	return true, storagePath, nil
}

// validateRows checks each row's column offsets/lengths against the
// schema and the invariant offsets[c]+lengths[c] <= 8*len(bitstring).
func validateRows(table TableSchema, rows []Row) error {
	for r, row := range rows {
		if len(row.ColumnBitOffsets) != len(table.Columns) || len(row.ColumnBitLengths) != len(table.Columns) {
			return fmt.Errorf("%w: row %d column metadata does not match schema width", errs.ErrSchemaMismatch, r)
		}
		bitCap := 8 * len(row.BitstringA)
		if 8*len(row.BitstringB) != bitCap {
			return fmt.Errorf("%w: row %d bitstring_a/bitstring_b length mismatch", errs.ErrSchemaMismatch, r)
		}
		for c, col := range table.Columns {
			if row.ColumnBitLengths[c] != col.Type.Bits() {
				return fmt.Errorf("%w: row %d column %q length %d does not match schema width %d", errs.ErrSchemaMismatch, r, col.Name, row.ColumnBitLengths[c], col.Type.Bits())
			}
			if row.ColumnBitOffsets[c]+row.ColumnBitLengths[c] > bitCap {
				return fmt.Errorf("%w: row %d column %q overruns bitstring", errs.ErrSchemaMismatch, r, col.Name)
			}
		}
	}
	return nil
}

func idempotencyKey(ownerID, tableID string, timestamp int64) string {
	h := blake3.New()
	_, _ = fmt.Fprintf(h, "%s|%s|%d", ownerID, tableID, timestamp)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// SubmissionTimestamp is a small helper so callers do not need to
// import time directly just to build a BinaryPartyData.
func SubmissionTimestamp(t time.Time) int64 {
	return t.UnixNano()
}

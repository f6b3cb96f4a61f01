// Package share implements the data-owner side of the protocol: the
// flattening of a plaintext table into the circuit's canonical bit
// order, the 2-of-3 split of that bitstring, and the per-party bundle
// a computing node receives. Row flattening fans out across rows with
// co-go; rows encode independently of one another.
package share

import (
	"io"

	"github.com/republicprotocol/co-go"

	"github.com/threepartysql/threepc/core/schema"
)

// Flatten packs table's rows into the circuit's canonical bitstring:
// row-major, column-major within a row, LSB-first within a column.
// rows[r][c] is the value of row r, column
// c, already typed against table.Columns[c].
func Flatten(table schema.Table, rows [][]interface{}) ([]bool, error) {
	if len(rows) != table.RowCount {
		return nil, &RowCountMismatchError{Want: table.RowCount, Got: len(rows)}
	}
	rowWidth := table.RowBitWidth()
	bits := make([]bool, table.RowCount*rowWidth)

	errs := make([]error, table.RowCount)
	co.ForAll(table.RowCount, func(r int) {
		off := r * rowWidth
		for c, col := range table.Columns {
			cellBits, err := schema.EncodeLiteral(col.Type, rows[r][c])
			if err != nil {
				errs[r] = err
				return
			}
			colOff := table.ColumnBitOffset(c)
			copy(bits[off+colOff:], cellBits)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return bits, nil
}

// RowCountMismatchError reports that the rows passed to Flatten did
// not match the schema's declared row count.
type RowCountMismatchError struct {
	Want, Got int
}

func (e *RowCountMismatchError) Error() string {
	return "share: row count mismatch"
}

// Split draws a 2-of-3 RSS split of one bit: draw r1, r2 uniformly
// and set r3 = b^r1^r2.
func Split(b bool, rng io.Reader) (r1, r2, r3 bool, err error) {
	var buf [1]byte
	if _, err = io.ReadFull(rng, buf[:]); err != nil {
		return false, false, false, err
	}
	r1 = buf[0]&1 != 0
	if _, err = io.ReadFull(rng, buf[:]); err != nil {
		return false, false, false, err
	}
	r2 = buf[0]&1 != 0
	r3 = b != r1 != r2
	return r1, r2, r3, nil
}

// Bundle is one party's share of a table: the two bitstrings it holds
// (its own and its right neighbour's, per the RSS convention) plus
// the schema needed to interpret them.
type Bundle struct {
	TableID string
	Schema  schema.Table
	Own     []bool
	Right   []bool
}

// Distribute splits table's flattened bits into the three party
// bundles. Bundle i holds (B_i, B_{i+1}).
func Distribute(table schema.Table, rows [][]interface{}, rng io.Reader) ([3]Bundle, error) {
	bits, err := Flatten(table, rows)
	if err != nil {
		return [3]Bundle{}, err
	}

	b0 := make([]bool, len(bits))
	b1 := make([]bool, len(bits))
	b2 := make([]bool, len(bits))
	for i, b := range bits {
		r1, r2, r3, splitErr := Split(b, rng)
		if splitErr != nil {
			return [3]Bundle{}, splitErr
		}
		b0[i], b1[i], b2[i] = r1, r2, r3
	}

	return [3]Bundle{
		{TableID: table.ID, Schema: table, Own: b0, Right: b1},
		{TableID: table.ID, Schema: table, Own: b1, Right: b2},
		{TableID: table.ID, Schema: table, Own: b2, Right: b0},
	}, nil
}

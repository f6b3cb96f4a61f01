package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/schema"
)

// Lower compiles a logical plan against table into a circuit.
// The plan must have the shape Aggregate(Scan) or
// Aggregate(Filter(Scan)), the only two shapes Plan ever produces,
// and table must be the schema the plan's Scan names.
//
// Wire numbering follows the input band first (row-major, then
// column-major within a row, then LSB-first within a column), exactly
// as circuit.Builder documents, so that two Builders fed this same
// sequence of calls for the same query and schema always produce
// byte-identical circuits.
func Lower(plan PlanNode, table schema.Table) (*circuit.Circuit, error) {
	agg, ok := plan.(Aggregate)
	if !ok {
		return nil, fmt.Errorf("%w: plan root must be an aggregate", errs.ErrUnsupportedSQL)
	}
	aggBuilder, err := aggregateBuilderFor(agg.Op)
	if err != nil {
		return nil, err
	}

	var filter *Filter
	var scan Scan
	switch in := agg.Input.(type) {
	case Scan:
		scan = in
	case Filter:
		f := in
		filter = &f
		s, ok := in.Input.(Scan)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported plan shape", errs.ErrUnsupportedSQL)
		}
		scan = s
	default:
		return nil, fmt.Errorf("%w: unsupported plan shape", errs.ErrUnsupportedSQL)
	}
	if scan.Table != table.Name {
		return nil, fmt.Errorf("%w: plan references table %q, schema is for %q", errs.ErrUnsupportedSQL, scan.Table, table.Name)
	}
	if table.RowCount == 0 {
		return nil, fmt.Errorf("%w: table %q has no rows", errs.ErrUnsupportedSQL, table.Name)
	}

	bld := circuit.NewBuilder()
	rowWidth := table.RowBitWidth()
	scanWires := bld.AllocInputs(table.RowCount*rowWidth, func(i int) circuit.InputRef {
		row := i / rowWidth
		within := i % rowWidth
		col, bitIdx := columnForOffset(table, within)
		return circuit.InputRef{TableID: table.ID, Row: row, Column: col, BitIdx: bitIdx}
	})

	aggColIdx, err := table.ColumnIndex(agg.Column)
	if err != nil {
		return nil, err
	}

	var filterColIdx int
	var literalBits []bool
	if filter != nil {
		filterColIdx, err = table.ColumnIndex(filter.Column)
		if err != nil {
			return nil, err
		}
		colType := table.Columns[filterColIdx].Type
		v, err := parseLiteralValue(filter.Literal, colType)
		if err != nil {
			return nil, err
		}
		literalBits, err = schema.EncodeLiteral(colType, v)
		if err != nil {
			return nil, err
		}
	}

	contributions := make([]circuit.Wire, 0, table.RowCount)
	for row := 0; row < table.RowCount; row++ {
		aggWires := columnWires(table, scanWires, rowWidth, row, aggColIdx)
		contribution := aggBuilder.RowContribution(bld, aggWires)

		if filter != nil {
			colWires := columnWires(table, scanWires, rowWidth, row, filterColIdx)
			matchBits := make([]circuit.Wire, len(colWires))
			for i, w := range colWires {
				if literalBits[i] {
					matchBits[i] = w
				} else {
					matchBits[i] = bld.EmitNot(w)
				}
			}
			rowMatch := bld.EmitAndTree(matchBits)
			if filter.Op == NotEq {
				rowMatch = bld.EmitNot(rowMatch)
			}
			contribution = bld.EmitAnd(contribution, rowMatch)
		}

		contributions = append(contributions, contribution)
	}

	result := aggBuilder.Combine(bld, contributions)
	bld.MarkOutput(result)
	return bld.Build()
}

// columnForOffset finds which column a bit offset within one row
// falls into, and the bit's index within that column.
func columnForOffset(table schema.Table, offset int) (col, bitIdx int) {
	rem := offset
	for i, c := range table.Columns {
		w := c.Type.Bits()
		if rem < w {
			return i, rem
		}
		rem -= w
	}
	panic("sql: offset out of range for table row width")
}

// columnWires slices out the input wires belonging to one (row,
// column) cell from the flattened scan band.
func columnWires(table schema.Table, scanWires []circuit.Wire, rowWidth, row, colIdx int) []circuit.Wire {
	offset := table.ColumnBitOffset(colIdx)
	width := table.Columns[colIdx].Type.Bits()
	base := row*rowWidth + offset
	return scanWires[base : base+width]
}

// parseLiteralValue converts a grammar-level Literal to the Go value
// schema.EncodeLiteral expects for t's Kind.
func parseLiteralValue(lit Literal, t schema.Type) (interface{}, error) {
	switch t.Kind {
	case schema.Boolean:
		switch strings.ToLower(lit.Text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, fmt.Errorf("%w: invalid boolean literal %q", errs.ErrUnsupportedSQL, lit.Text)
		}
	case schema.UnsignedInt, schema.Float:
		n, err := strconv.ParseUint(lit.Text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid numeric literal %q", errs.ErrUnsupportedSQL, lit.Text)
		}
		return n, nil
	case schema.String:
		return lit.Text, nil
	default:
		return nil, fmt.Errorf("%w: unknown column kind", errs.ErrUnsupportedSQL)
	}
}

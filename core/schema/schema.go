// Package schema describes typed table schemas shared by the SQL
// front-end, the share-distribution layer, and the share-delivery
// RPC: column name and typed width, where a type is one of
// boolean (1 bit), unsigned integer (explicit bit width), or a
// fixed-length string with explicit character encoding and bit length
// per character.
package schema

import "fmt"

// Charset enumerates the supported fixed-length string encodings.
type Charset int

const (
	Ascii Charset = iota
	Utf8
)

// CharsetBits is the per-character bit width a String column carries
// explicitly.
func (c Charset) CharsetBits() int {
	switch c {
	case Ascii:
		return 8
	case Utf8:
		return 32 // worst-case fixed width per rune, kept simple and explicit
	default:
		return 8
	}
}

// Kind enumerates the column type hints a TableSchema may carry.
type Kind int

const (
	Boolean Kind = iota
	UnsignedInt
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "Boolean"
	case UnsignedInt:
		return "UnsignedInt"
	case Float:
		return "Float"
	case String:
		return "String"
	default:
		return "Unknown"
	}
}

// Type is one column's typed width.
type Type struct {
	Kind Kind

	// BitWidth is the width of an UnsignedInt or Float column.
	BitWidth int

	// MaxChars and CharsetKind describe a String column.
	MaxChars    int
	CharsetKind Charset
}

// Bool is the 1-bit Boolean column type.
var Bool = Type{Kind: Boolean, BitWidth: 1}

// Uint returns an UnsignedInt column type of the given bit width.
func Uint(width int) Type {
	return Type{Kind: UnsignedInt, BitWidth: width}
}

// FloatType returns a Float column type of the given bit width.
// Float columns participate in equality comparison only.
func FloatType(width int) Type {
	return Type{Kind: Float, BitWidth: width}
}

// FixedString returns a fixed-length String column type. String
// columns participate in equality comparison only.
func FixedString(maxChars int, charset Charset) Type {
	return Type{Kind: String, MaxChars: maxChars, CharsetKind: charset}
}

// Bits returns the column's total bit width.
func (t Type) Bits() int {
	if t.Kind == String {
		return t.MaxChars * t.CharsetKind.CharsetBits()
	}
	return t.BitWidth
}

// EqualityOnly reports whether the type may only be compared for
// (in)equality, never ordered. True for Float and String, whose bit
// encodings carry no usable ordering.
func (t Type) EqualityOnly() bool {
	return t.Kind == Float || t.Kind == String
}

// Column is one named, typed column.
type Column struct {
	Name string
	Type Type
}

// Table is a table's schema: its identity plus an ordered column list.
type Table struct {
	Name     string
	ID       string
	RowCount int
	Columns  []Column
}

// ColumnIndex returns the ordinal of the named column, or an error if
// it is not present.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("schema: unknown column %q in table %q", name, t.Name)
}

// RowBitWidth is the total number of bits one row occupies, which is
// also the step between consecutive rows in the canonical flattened
// bitstring (row-major, column-major, LSB-first).
func (t Table) RowBitWidth() int {
	var n int
	for _, c := range t.Columns {
		n += c.Type.Bits()
	}
	return n
}

// ColumnBitOffset returns the bit offset of column colIdx within a
// single row.
func (t Table) ColumnBitOffset(colIdx int) int {
	var off int
	for i := 0; i < colIdx; i++ {
		off += t.Columns[i].Type.Bits()
	}
	return off
}

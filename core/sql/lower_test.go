package sql_test

import (
	"errors"
	"testing"

	"github.com/threepartysql/threepc/core/circuit"
	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/schema"
	"github.com/threepartysql/threepc/core/sql"
)

type employeeRow struct {
	dept   uint64
	salary bool
}

func employeesTable(rowCount int) schema.Table {
	return schema.Table{
		Name:     "employees",
		ID:       "employees",
		RowCount: rowCount,
		Columns: []schema.Column{
			{Name: "dept", Type: schema.Uint(8)},
			{Name: "salary", Type: schema.Bool},
		},
	}
}

// evalPlain interprets circ directly over plaintext bits, bypassing
// RSS entirely. It exists only to pin down Lower's bit-level semantics
// against hand-computed expectations; the engine package is what
// actually evaluates a circuit over secret shares.
func evalPlain(t *testing.T, circ *circuit.Circuit, inputs map[circuit.Wire]bool) []bool {
	t.Helper()
	wires := make(map[circuit.Wire]bool, circ.WireCount())
	for _, g := range circ.Gates() {
		switch g.Kind {
		case circuit.Input:
			v, ok := inputs[g.Out]
			if !ok {
				t.Fatalf("no plaintext input bound for wire %d", g.Out)
			}
			wires[g.Out] = v
		case circuit.Not:
			wires[g.Out] = !wires[g.In]
		case circuit.Xor:
			wires[g.Out] = wires[g.L] != wires[g.R]
		case circuit.And:
			wires[g.Out] = wires[g.L] && wires[g.R]
		case circuit.Output:
		default:
			t.Fatalf("unknown gate kind %v", g.Kind)
		}
	}
	out := make([]bool, len(circ.Outputs()))
	for i, w := range circ.Outputs() {
		out[i] = wires[w]
	}
	return out
}

func buildInputs(t *testing.T, table schema.Table, circ *circuit.Circuit, rows []employeeRow) map[circuit.Wire]bool {
	t.Helper()
	manifest := circ.Manifest()
	inputs := make(map[circuit.Wire]bool, len(manifest))
	for r, row := range rows {
		deptBits, err := schema.EncodeLiteral(table.Columns[0].Type, row.dept)
		if err != nil {
			t.Fatal(err)
		}
		for b, bit := range deptBits {
			w, ok := manifest[circuit.InputRef{TableID: table.ID, Row: r, Column: 0, BitIdx: b}]
			if !ok {
				t.Fatalf("manifest missing dept bit row=%d bit=%d", r, b)
			}
			inputs[w] = bit
		}
		salaryBits := schema.EncodeBool(row.salary)
		for b, bit := range salaryBits {
			w, ok := manifest[circuit.InputRef{TableID: table.ID, Row: r, Column: 1, BitIdx: b}]
			if !ok {
				t.Fatalf("manifest missing salary bit row=%d bit=%d", r, b)
			}
			inputs[w] = bit
		}
	}
	return inputs
}

func compileAndRun(t *testing.T, queryText string, table schema.Table, rows []employeeRow) bool {
	t.Helper()
	q, err := sql.Parse(queryText)
	if err != nil {
		t.Fatal(err)
	}
	plan := sql.Plan(q)
	circ, err := sql.Lower(plan, table)
	if err != nil {
		t.Fatal(err)
	}
	inputs := buildInputs(t, table, circ, rows)
	out := evalPlain(t, circ, inputs)
	if len(out) != 1 {
		t.Fatalf("expected exactly one output bit, got %d", len(out))
	}
	return out[0]
}

// Scenario: a WHERE-filtered parity aggregate over a mix of matching
// and non-matching rows.
func TestLowerFilteredParity(t *testing.T) {
	rows := []employeeRow{
		{dept: 11, salary: true},
		{dept: 11, salary: false},
		{dept: 12, salary: true},
		{dept: 11, salary: true},
		{dept: 13, salary: false},
	}
	table := employeesTable(len(rows))
	got := compileAndRun(t, "SELECT PARITY(salary) FROM employees WHERE dept = 11", table, rows)
	want := rows[0].salary != rows[1].salary
	want = want != rows[3].salary
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// Scenario: an empty match (no row satisfies the predicate) reduces
// to parity over zero contributions, i.e. 0.
func TestLowerEmptyMatch(t *testing.T) {
	rows := []employeeRow{
		{dept: 11, salary: true},
		{dept: 12, salary: true},
		{dept: 13, salary: true},
	}
	table := employeesTable(len(rows))
	got := compileAndRun(t, "SELECT PARITY(salary) FROM employees WHERE dept = 99", table, rows)
	if got != false {
		t.Fatalf("got %v, want false", got)
	}
}

// Scenario: an all-zero table returns 0 regardless of the query.
func TestLowerAllZeroTable(t *testing.T) {
	rows := []employeeRow{
		{dept: 0, salary: false},
		{dept: 0, salary: false},
		{dept: 0, salary: false},
	}
	table := employeesTable(len(rows))
	got := compileAndRun(t, "SELECT PARITY(salary) FROM employees WHERE dept = 0", table, rows)
	if got != false {
		t.Fatalf("got %v, want false", got)
	}
}

// Scenario: != negates the per-row match bit.
func TestLowerNotEqFilter(t *testing.T) {
	rows := []employeeRow{
		{dept: 11, salary: true},
		{dept: 11, salary: false},
		{dept: 12, salary: true},
		{dept: 13, salary: false},
	}
	table := employeesTable(len(rows))
	got := compileAndRun(t, "SELECT PARITY(salary) FROM employees WHERE dept != 11", table, rows)
	want := rows[2].salary != rows[3].salary
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// Scenario: no WHERE clause aggregates over every row.
func TestLowerUnfilteredParity(t *testing.T) {
	rows := []employeeRow{
		{dept: 11, salary: true},
		{dept: 12, salary: false},
		{dept: 13, salary: true},
		{dept: 14, salary: true},
	}
	table := employeesTable(len(rows))
	got := compileAndRun(t, "SELECT PARITY(salary) FROM employees", table, rows)
	want := rows[0].salary != rows[1].salary
	want = want != rows[2].salary
	want = want != rows[3].salary
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLowerRejectsUnsupportedAggregate(t *testing.T) {
	table := employeesTable(2)
	q, err := sql.Parse("SELECT SUM(salary) FROM employees")
	if err != nil {
		t.Fatal(err)
	}
	_, err = sql.Lower(sql.Plan(q), table)
	if !errors.Is(err, errs.ErrUnsupportedAggregate) {
		t.Fatalf("want ErrUnsupportedAggregate, got %v", err)
	}
}

// Two independent Builders compiling the same query against the same
// schema must produce byte-identical circuits, or the three nodes
// would desync on the first AND gate.
func TestLowerIsDeterministic(t *testing.T) {
	rows := []employeeRow{{dept: 11, salary: true}, {dept: 12, salary: false}}
	table := employeesTable(len(rows))
	q, err := sql.Parse("SELECT PARITY(salary) FROM employees WHERE dept = 11")
	if err != nil {
		t.Fatal(err)
	}
	c1, err := sql.Lower(sql.Plan(q), table)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := sql.Lower(sql.Plan(q), table)
	if err != nil {
		t.Fatal(err)
	}
	if c1.WireCount() != c2.WireCount() || len(c1.Gates()) != len(c2.Gates()) {
		t.Fatalf("circuits diverged: %d/%d wires, %d/%d gates",
			c1.WireCount(), c2.WireCount(), len(c1.Gates()), len(c2.Gates()))
	}
	for i := range c1.Gates() {
		if c1.Gates()[i] != c2.Gates()[i] {
			t.Fatalf("gate %d diverged: %+v vs %+v", i, c1.Gates()[i], c2.Gates()[i])
		}
	}
}

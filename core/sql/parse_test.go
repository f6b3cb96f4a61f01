package sql_test

import (
	"errors"
	"testing"

	"github.com/threepartysql/threepc/core/errs"
	"github.com/threepartysql/threepc/core/sql"
)

func TestParseSelectWithWhere(t *testing.T) {
	q, err := sql.Parse("SELECT PARITY(salary) FROM employees WHERE dept = 11")
	if err != nil {
		t.Fatal(err)
	}
	if q.Agg.Op != sql.Parity || q.Agg.Column != "salary" {
		t.Fatalf("unexpected agg clause: %+v", q.Agg)
	}
	if q.Table != "employees" {
		t.Fatalf("unexpected table: %q", q.Table)
	}
	if q.Where == nil {
		t.Fatal("expected a where clause")
	}
	if q.Where.Column != "dept" || q.Where.Op != sql.Eq || q.Where.Literal.Text != "11" {
		t.Fatalf("unexpected where clause: %+v", q.Where)
	}
}

func TestParseSelectWithoutWhere(t *testing.T) {
	q, err := sql.Parse("SELECT PARITY(salary) FROM employees")
	if err != nil {
		t.Fatal(err)
	}
	if q.Where != nil {
		t.Fatalf("expected no where clause, got %+v", q.Where)
	}
}

func TestParseNotEqAndStringLiteral(t *testing.T) {
	q, err := sql.Parse("SELECT PARITY(active) FROM employees WHERE name != 'Ada'")
	if err != nil {
		t.Fatal(err)
	}
	if q.Where.Op != sql.NotEq {
		t.Fatalf("expected !=, got %v", q.Where.Op)
	}
	if !q.Where.Literal.Quoted || q.Where.Literal.Text != "Ada" {
		t.Fatalf("unexpected literal: %+v", q.Where.Literal)
	}
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	_, err := sql.Parse("select parity(salary) from employees where dept = 11")
	if err != nil {
		t.Fatal(err)
	}
}

func TestParseRejectsUnsupportedGrammar(t *testing.T) {
	cases := []string{
		"SELECT salary FROM employees",
		"SELECT PARITY(salary) employees",
		"SELECT PARITY(salary) FROM employees WHERE dept > 11",
		"SELECT PARITY(salary) FROM employees WHERE dept = 11 AND name = 'x'",
		"DELETE FROM employees",
		"",
	}
	for _, c := range cases {
		if _, err := sql.Parse(c); !errors.Is(err, errs.ErrUnsupportedSQL) {
			t.Fatalf("query %q: want ErrUnsupportedSQL, got %v", c, err)
		}
	}
}

func TestParseReservedAggregateNames(t *testing.T) {
	q, err := sql.Parse("SELECT SUM(salary) FROM employees")
	if err != nil {
		t.Fatal(err)
	}
	if q.Agg.Op != sql.Sum {
		t.Fatalf("expected Sum, got %v", q.Agg.Op)
	}
}

package sql

// PlanNode is one node of the logical plan lowered from a parsed
// Query: a linear Scan -> [Filter] -> Aggregate pipeline, mirroring
// the grammar's fixed shape rather than a general relational algebra.
type PlanNode interface {
	isPlanNode()
}

// Scan reads every row of a table.
type Scan struct {
	Table string
}

func (Scan) isPlanNode() {}

// Filter keeps only rows whose Column compares Op against Literal.
type Filter struct {
	Input   PlanNode
	Column  string
	Op      CompareOp
	Literal Literal
}

func (Filter) isPlanNode() {}

// Aggregate reduces the (possibly filtered) rows to a single value by
// applying Op to Column.
type Aggregate struct {
	Input  PlanNode
	Column string
	Op     AggOp
}

func (Aggregate) isPlanNode() {}

// Plan lowers a parsed Query into its logical plan: Scan, optionally
// wrapped in Filter, always rooted in Aggregate.
func Plan(q *Query) PlanNode {
	var node PlanNode = Scan{Table: q.Table}
	if q.Where != nil {
		node = Filter{
			Input:   node,
			Column:  q.Where.Column,
			Op:      q.Where.Op,
			Literal: q.Where.Literal,
		}
	}
	return Aggregate{
		Input:  node,
		Column: q.Agg.Column,
		Op:     q.Agg.Op,
	}
}

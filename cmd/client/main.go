// Command client is the query-submitter: it parses a restricted SQL
// query, compiles it against a table schema, splits the table's
// plaintext rows into the three parties' RSS bundles, dispatches the
// circuit to all three nodes, and prints the reconstructed plaintext
// result.
//
// This is a demonstration harness, not the SendTableShares
// share-delivery path: in a real deployment the data owner and the
// query submitter are different principals, and shares reach the
// nodes ahead of time over that RPC. Here the client plays both roles
// so the whole pipeline can be exercised from one process.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/threepartysql/threepc/core/config"
	"github.com/threepartysql/threepc/core/orchestrator"
	"github.com/threepartysql/threepc/core/party"
	"github.com/threepartysql/threepc/core/rpc"
	"github.com/threepartysql/threepc/core/schema"
	"github.com/threepartysql/threepc/core/share"
	"github.com/threepartysql/threepc/core/sql"
)

// tableDoc is the on-disk JSON shape for a table's schema and
// plaintext rows, local to this demonstration harness.
type tableDoc struct {
	Name    string      `json:"name"`
	ID      string      `json:"id"`
	Columns []columnDoc `json:"columns"`
	Rows    [][]any     `json:"rows"`
}

type columnDoc struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"` // "bool", "uint", "float", "string"
	BitWidth int    `json:"bit_width,omitempty"`
	MaxChars int    `json:"max_chars,omitempty"`
	Charset  string `json:"charset,omitempty"` // "ascii" or "utf8"
}

func loadTable(path string) (schema.Table, [][]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc tableDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return schema.Table{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cols := make([]schema.Column, len(doc.Columns))
	for i, cd := range doc.Columns {
		var t schema.Type
		switch cd.Kind {
		case "bool":
			t = schema.Bool
		case "uint":
			t = schema.Uint(cd.BitWidth)
		case "float":
			t = schema.FloatType(cd.BitWidth)
		case "string":
			charset := schema.Ascii
			if cd.Charset == "utf8" {
				charset = schema.Utf8
			}
			t = schema.FixedString(cd.MaxChars, charset)
		default:
			return schema.Table{}, nil, fmt.Errorf("column %q: unknown kind %q", cd.Name, cd.Kind)
		}
		cols[i] = schema.Column{Name: cd.Name, Type: t}
	}

	table := schema.Table{
		Name:     doc.Name,
		ID:       doc.ID,
		RowCount: len(doc.Rows),
		Columns:  cols,
	}
	rows := make([][]interface{}, len(doc.Rows))
	for i, r := range doc.Rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			if f, ok := v.(float64); ok {
				row[j] = int64(f)
				continue
			}
			row[j] = v
		}
		rows[i] = row
	}
	return table, rows, nil
}

func main() {
	configPath := flag.String("config", "session.yaml", "path to the session topology YAML file")
	tablePath := flag.String("table", "", "path to the table schema/rows JSON document")
	query := flag.String("query", "", "the SQL query to run")
	flag.Parse()

	if *tablePath == "" || *query == "" {
		log.Fatal("[client] both -table and -query are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[client] loading config: %v", err)
	}

	table, rows, err := loadTable(*tablePath)
	if err != nil {
		log.Fatalf("[client] loading table: %v", err)
	}

	q, err := sql.Parse(*query)
	if err != nil {
		log.Fatalf("[client] parsing query: %v", err)
	}
	plan := sql.Plan(q)
	circ, err := sql.Lower(plan, table)
	if err != nil {
		log.Fatalf("[client] lowering query: %v", err)
	}
	manifest := circ.Manifest()

	bundles, err := share.Distribute(table, rows, rand.Reader)
	if err != nil {
		log.Fatalf("[client] distributing shares: %v", err)
	}

	var clients [party.N]*rpc.Client
	var nodes [party.N]orchestrator.NodeClient
	for _, i := range party.All() {
		addr, err := cfg.Endpoint(uint8(i))
		if err != nil {
			log.Fatalf("[client] %v", err)
		}
		c, err := rpc.Dial(addr)
		if err != nil {
			log.Fatalf("[client] dialing party %s at %s: %v", i, addr, err)
		}
		clients[i] = c
		nodes[i] = c
	}
	defer func() {
		for _, c := range clients {
			if c != nil {
				c.Close()
			}
		}
	}()

	var inputs orchestrator.Inputs
	for _, i := range party.All() {
		in, err := share.BundleInputs(bundles[i], manifest)
		if err != nil {
			log.Fatalf("[client] binding inputs for party %s: %v", i, err)
		}
		inputs[i] = in
	}

	orch := orchestrator.New(nodes)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout.Std())
	defer cancel()

	result, err := orch.SubmitQuery(ctx, circ, inputs)
	if err != nil {
		log.Fatalf("[client] query failed: %v", err)
	}

	fmt.Println(resultString(result))
}

func resultString(bits []bool) string {
	s := ""
	for i, b := range bits {
		if i > 0 {
			s += ", "
		}
		if b {
			s += "1"
		} else {
			s += "0"
		}
	}
	return s
}

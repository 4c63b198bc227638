package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/statetree/internal/journal"
	"github.com/danielpatrickdp/statetree/internal/replay"
	"github.com/danielpatrickdp/statetree/internal/tree"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to statetree.db")
	last := flag.Int("last", 50, "number of most recent mutations to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	desc := flag.String("desc", "exported from journal", "fixture description")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--last N] [--desc text]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath, *desc); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath string, last int, outPath, desc string) error {
	store, err := journal.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	mutations, err := store.ListMutations(last)
	if err != nil {
		return fmt.Errorf("list mutations: %w", err)
	}
	if len(mutations) == 0 {
		return fmt.Errorf("no mutations recorded in %s", dbPath)
	}

	ops := make([]replay.FixtureOp, 0, len(mutations))
	for _, m := range mutations {
		var payload map[string]float64
		if m.PayloadJSON != "" {
			if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err != nil {
				return fmt.Errorf("parse payload for %s row: %w", m.Op, err)
			}
		}
		ops = append(ops, replay.FixtureOp{
			Op:            m.Op,
			NodeID:        m.NodeID,
			ParentID:      m.ParentID,
			Kind:          m.Kind,
			Payload:       payload,
			ExpectRefusal: m.Refusal,
		})
	}

	def := tree.DefaultConfig()
	fixture := replay.Fixture{
		Description: desc,
		Config: replay.FixtureConfig{
			MaxNodes:           def.MaxNodes,
			MaxDepth:           def.MaxDepth,
			StabilityThreshold: def.StabilityThreshold,
		},
		Ops:      ops,
		Expected: expectedFromLatest(store),
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	fmt.Printf("exported %d ops to %s\n", len(ops), outPath)
	return nil
}

// expectedFromLatest pins the latest recorded snapshot's shape, when one
// exists, so the replay can assert on it.
func expectedFromLatest(store *journal.Store) *replay.Expected {
	rows, err := store.ListSnapshots(1)
	if err != nil || len(rows) == 0 {
		return nil
	}
	latest := rows[len(rows)-1]
	return &replay.Expected{
		NodeCount: &latest.NodeCount,
		MaxDepth:  &latest.MaxDepth,
		Stable:    &latest.Stable,
	}
}

// #endregion export

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/statetree/internal/journal"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to statetree.db")
	last := flag.Int("last", 20, "show N most recent snapshots")
	seq := flag.Uint64("seq", 0, "show single snapshot detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/statetree.db [--last N] [--seq N] [--json]")
		os.Exit(2)
	}

	store, err := journal.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *seq != 0 {
		err = runDetailMode(store, *seq, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(store *journal.Store, last int, jsonOut bool) error {
	rows, err := store.ListSnapshots(last)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("%-6s %-6s %-6s %-8s %-8s %-7s %s\n",
		"seq", "nodes", "depth", "score", "stable", "active", "created")
	for _, r := range rows {
		active := r.ActiveNodeID
		if active == "" {
			active = "-"
		} else if len(active) > 8 {
			active = active[:8]
		}
		fmt.Printf("%-6d %-6d %-6d %-8.4f %-8v %-7s %s\n",
			r.Seq, r.NodeCount, r.MaxDepth, r.Score, r.Stable, active,
			r.CreatedAt.Format("15:04:05"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *journal.Store, seq uint64, jsonOut bool) error {
	st, err := store.GetSnapshot(seq)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Printf("snapshot seq=%d nodes=%d max_depth=%d active=%s\n",
		st.Seq, len(st.Nodes), st.MaxDepth, st.ActiveNodeID)
	fmt.Printf("aggregate: depth=%.4f complexity=%.4f stability=%.4f efficiency=%.4f coherence=%.4f\n",
		st.Aggregate.Depth, st.Aggregate.Complexity, st.Aggregate.Stability,
		st.Aggregate.Efficiency, st.Aggregate.Coherence)
	fmt.Printf("verdict: stable=%v score=%.4f\n\n", st.Stable, st.StabilityScore)

	for _, n := range st.Nodes {
		fmt.Printf("%s depth=%d parent=%s children=%d\n",
			n.ID, n.Depth, dash(n.ParentID), len(n.Children))
		fmt.Printf("  metrics: depth=%.3f complexity=%.3f stability=%.3f efficiency=%.3f coherence=%.3f\n",
			n.Metrics.Depth, n.Metrics.Complexity, n.Metrics.Stability,
			n.Metrics.Efficiency, n.Metrics.Coherence)
		if len(n.Payload) > 0 {
			b, _ := json.Marshal(n.Payload)
			fmt.Printf("  payload: %s\n", b)
		}
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion detail-mode

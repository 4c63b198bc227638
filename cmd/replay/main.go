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
	dbPath := flag.String("db", "", "path to statetree.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := flag.Int("last", 50, "number of most recent mutations to replay (DB mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/statetree.db [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	fmt.Printf("replaying fixture: %s (%d ops)\n", f.Description, len(f.Ops))
	results, summary := replay.Run(f.Config.ToTreeConfig(), f.ToOps(), f.Expected)
	return printOutcome(results, summary)
}

// #endregion fixture-mode

// #region db-mode

func runDBMode(dbPath string, last int) int {
	store, err := journal.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	mutations, err := store.ListMutations(last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list mutations: %v\n", err)
		return 2
	}
	if len(mutations) == 0 {
		fmt.Fprintln(os.Stderr, "no mutations recorded")
		return 2
	}

	ops := make([]replay.Op, 0, len(mutations))
	for _, m := range mutations {
		op, err := opFromMutation(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad mutation row: %v\n", err)
			return 2
		}
		ops = append(ops, op)
	}

	fmt.Printf("replaying %d mutations from %s\n", len(ops), dbPath)
	results, summary := replay.Run(tree.DefaultConfig(), ops, nil)
	return printOutcome(results, summary)
}

// opFromMutation converts a journal row back into a replayable op. The
// recorded node id doubles as the binding reference for create ops.
func opFromMutation(m journal.Mutation) (replay.Op, error) {
	var payload tree.Payload
	if m.PayloadJSON != "" {
		if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err != nil {
			return replay.Op{}, fmt.Errorf("parse payload for %s: %w", m.Op, err)
		}
	}
	return replay.Op{
		Op:            m.Op,
		NodeID:        m.NodeID,
		ParentID:      m.ParentID,
		Kind:          m.Kind,
		Payload:       payload,
		ExpectRefusal: tree.Refusal(m.Refusal),
	}, nil
}

// #endregion db-mode

// #region output

func printOutcome(results []replay.OpResult, summary replay.Summary) int {
	for _, r := range results {
		status := "ok"
		if !r.Match {
			status = fmt.Sprintf("MISMATCH (got %q)", r.Refusal)
		} else if r.Refusal != tree.RefusalNone {
			status = fmt.Sprintf("refused: %s", r.Refusal)
		}
		fmt.Printf("  [%3d] %-10s %s\n", r.Index, r.Op, status)
	}

	fmt.Printf("\nops=%d refusals=%d mismatches=%d\n",
		summary.TotalOps, summary.Refusals, summary.Mismatches)
	fmt.Printf("final: nodes=%d max_depth=%d stable=%v score=%.4f\n",
		len(summary.Final.Nodes), summary.Final.MaxDepth,
		summary.Final.Stable, summary.Final.StabilityScore)
	fmt.Printf("invariants: %s\n", summary.Eval.Reason)
	for _, d := range summary.Divergence {
		fmt.Printf("divergence: %s\n", d)
	}

	if summary.Diverged() {
		fmt.Println("\nRESULT: DIVERGED")
		return 1
	}
	fmt.Println("\nRESULT: FAITHFUL")
	return 0
}

// #endregion output

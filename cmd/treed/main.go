package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/statetree/internal/config"
	"github.com/danielpatrickdp/statetree/internal/journal"
	"github.com/danielpatrickdp/statetree/internal/tree"
)

// #region main
func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := journal.NewStore(cfg.ResolveDBPath())
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer store.Close()

	t := tree.New(cfg.TreeConfig(), cfg.VitalityFunc())
	cancel := t.Subscribe(func(st tree.TreeState) {
		if err := store.RecordSnapshot(st); err != nil {
			log.Printf("journal error: %v", err)
		}
	})
	defer cancel()

	fmt.Println("State tree ready.")
	fmt.Printf("  max_nodes=%d max_depth=%d threshold=%.2f db=%s\n",
		cfg.MaxNodes, cfg.MaxDepth, cfg.StabilityThreshold, cfg.ResolveDBPath())
	fmt.Println("Commands: create [parent] [k=v ...] | active <id> | update <id> k=v ... | transition <kind> [k=v ...] | state | nodes | depth <id> | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		runCommand(t, store, line)
	}
}

// #endregion main

// #region commands

func runCommand(t *tree.Tree, store *journal.Store, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "create":
		parent := ""
		if len(args) > 0 && !strings.Contains(args[0], "=") {
			parent = args[0]
			args = args[1:]
		}
		payload, err := parsePayload(args)
		if err != nil {
			fmt.Println(err)
			return
		}
		id, refusal := t.CreateNode(parent, payload)
		logMutation(store, journal.Mutation{
			Op: "create", NodeID: id, ParentID: parent,
			PayloadJSON: payloadJSON(payload), Refusal: string(refusal),
		})
		if refusal != tree.RefusalNone {
			fmt.Printf("refused: %s\n", refusal)
			return
		}
		fmt.Printf("created %s (depth %d)\n", id, mustDepth(t, id))

	case "active":
		if len(args) != 1 {
			fmt.Println("usage: active <id>")
			return
		}
		refusal := t.SetActiveNode(args[0])
		logMutation(store, journal.Mutation{Op: "set_active", NodeID: args[0], Refusal: string(refusal)})
		report(refusal)

	case "update":
		if len(args) < 2 {
			fmt.Println("usage: update <id> k=v ...")
			return
		}
		payload, err := parsePayload(args[1:])
		if err != nil {
			fmt.Println(err)
			return
		}
		refusal := t.UpdateNodeState(args[0], payload)
		logMutation(store, journal.Mutation{
			Op: "update", NodeID: args[0],
			PayloadJSON: payloadJSON(payload), Refusal: string(refusal),
		})
		report(refusal)

	case "transition":
		if len(args) < 1 {
			fmt.Println("usage: transition <kind> [k=v ...]")
			return
		}
		payload, err := parsePayload(args[1:])
		if err != nil {
			fmt.Println(err)
			return
		}
		refusal := t.Transition(tree.TransitionKind(args[0]), payload)
		logMutation(store, journal.Mutation{
			Op: "transition", Kind: args[0],
			PayloadJSON: payloadJSON(payload), Refusal: string(refusal),
		})
		report(refusal)

	case "state":
		printState(t.Snapshot())

	case "nodes":
		st := t.Snapshot()
		for _, n := range st.Nodes {
			marker := " "
			if n.ID == st.ActiveNodeID {
				marker = "*"
			}
			fmt.Printf("%s %s depth=%d parent=%s stability=%.3f\n",
				marker, n.ID, n.Depth, orNone(n.ParentID), n.Metrics.Stability)
		}

	case "depth":
		if len(args) != 1 {
			fmt.Println("usage: depth <id>")
			return
		}
		if d, ok := t.Depth(args[0]); ok {
			fmt.Printf("depth=%d (tree max %d)\n", d, t.MaxTreeDepth())
		} else {
			fmt.Println("not found")
		}

	default:
		fmt.Printf("unknown command: %s\n", cmd)
	}
}

func printState(st tree.TreeState) {
	fmt.Printf("seq=%d nodes=%d max_depth=%d active=%s\n",
		st.Seq, len(st.Nodes), st.MaxDepth, orNone(st.ActiveNodeID))
	fmt.Printf("aggregate: depth=%.3f complexity=%.3f stability=%.3f efficiency=%.3f coherence=%.3f\n",
		st.Aggregate.Depth, st.Aggregate.Complexity, st.Aggregate.Stability,
		st.Aggregate.Efficiency, st.Aggregate.Coherence)
	fmt.Printf("verdict: stable=%v score=%.4f\n", st.Stable, st.StabilityScore)
}

// #endregion commands

// #region helpers

// parsePayload parses k=v pairs into a payload.
func parsePayload(args []string) (tree.Payload, error) {
	p := tree.Payload{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("bad field %q, want k=v", a)
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", a, err)
		}
		p[k] = x
	}
	return p, nil
}

func payloadJSON(p tree.Payload) string {
	if len(p) == 0 {
		return ""
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func logMutation(store *journal.Store, m journal.Mutation) {
	if err := store.RecordMutation(m); err != nil {
		log.Printf("journal error: %v", err)
	}
}

func report(refusal tree.Refusal) {
	if refusal != tree.RefusalNone {
		fmt.Printf("refused: %s\n", refusal)
		return
	}
	fmt.Println("ok")
}

func mustDepth(t *tree.Tree, id string) int {
	d, _ := t.Depth(id)
	return d
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// #endregion helpers

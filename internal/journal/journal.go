// Package journal records published tree snapshots and the mutations that
// produced them in SQLite. The tree core itself performs no persistence; the
// journal is an observer bolted on from the outside, and the read side feeds
// the inspect, replay, and fixture-export tools.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/statetree/internal/tree"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS tree_snapshots (
	seq             INTEGER PRIMARY KEY,
	active_node_id  TEXT,
	node_count      INTEGER NOT NULL,
	max_depth       INTEGER NOT NULL,
	aggregate_json  TEXT NOT NULL,
	stable          INTEGER NOT NULL,
	score           REAL NOT NULL,
	nodes_json      TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mutation_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	op            TEXT NOT NULL,
	node_id       TEXT,
	parent_id     TEXT,
	kind          TEXT,
	payload_json  TEXT,
	refusal       TEXT,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store manages the snapshot and mutation tables.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other tools.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion close

// #region record-snapshot
// RecordSnapshot persists one published snapshot, keyed by its sequence
// number. Re-recording the same seq is ignored.
func (s *Store) RecordSnapshot(st tree.TreeState) error {
	aggJSON, err := json.Marshal(st.Aggregate)
	if err != nil {
		return fmt.Errorf("marshal aggregate: %w", err)
	}
	nodesJSON, err := json.Marshal(st.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	stable := 0
	if st.Stable {
		stable = 1
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO tree_snapshots
		 (seq, active_node_id, node_count, max_depth, aggregate_json, stable, score, nodes_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Seq, nullIfEmpty(st.ActiveNodeID), len(st.Nodes), st.MaxDepth,
		string(aggJSON), stable, st.StabilityScore, string(nodesJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}
// #endregion record-snapshot

// #region record-mutation
// RecordMutation appends one row to the mutation log.
func (s *Store) RecordMutation(m Mutation) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO mutation_log (op, node_id, parent_id, kind, payload_json, refusal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Op,
		nullIfEmpty(m.NodeID),
		nullIfEmpty(m.ParentID),
		nullIfEmpty(m.Kind),
		nullIfEmpty(m.PayloadJSON),
		nullIfEmpty(m.Refusal),
		m.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record mutation: %w", err)
	}
	return nil
}
// #endregion record-mutation

// #region list-snapshots
// ListSnapshots returns the last N snapshot summaries in chronological order.
func (s *Store) ListSnapshots(last int) ([]SnapshotRow, error) {
	if last <= 0 {
		last = 20
	}
	rows, err := s.db.Query(
		`SELECT seq, active_node_id, node_count, max_depth, aggregate_json, stable, score, created_at FROM (
			SELECT * FROM tree_snapshots ORDER BY seq DESC LIMIT ?
		) sub ORDER BY seq ASC`, last,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var active sql.NullString
		var aggJSON, createdAt string
		var stable int
		if err := rows.Scan(&r.Seq, &active, &r.NodeCount, &r.MaxDepth, &aggJSON, &stable, &r.Score, &createdAt); err != nil {
			return nil, err
		}
		r.ActiveNodeID = active.String
		r.Stable = stable != 0
		if err := json.Unmarshal([]byte(aggJSON), &r.Aggregate); err != nil {
			return nil, fmt.Errorf("parse aggregate seq %d: %w", r.Seq, err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
// #endregion list-snapshots

// #region get-snapshot
// GetSnapshot reconstructs the full TreeState recorded at seq.
func (s *Store) GetSnapshot(seq uint64) (tree.TreeState, error) {
	var st tree.TreeState
	var active sql.NullString
	var aggJSON, nodesJSON string
	var stable int
	err := s.db.QueryRow(
		`SELECT seq, active_node_id, max_depth, aggregate_json, stable, score, nodes_json
		 FROM tree_snapshots WHERE seq = ?`, seq,
	).Scan(&st.Seq, &active, &st.MaxDepth, &aggJSON, &stable, &st.StabilityScore, &nodesJSON)
	if err != nil {
		return st, fmt.Errorf("get snapshot %d: %w", seq, err)
	}
	st.ActiveNodeID = active.String
	st.Stable = stable != 0
	if err := json.Unmarshal([]byte(aggJSON), &st.Aggregate); err != nil {
		return st, fmt.Errorf("parse aggregate: %w", err)
	}
	if err := json.Unmarshal([]byte(nodesJSON), &st.Nodes); err != nil {
		return st, fmt.Errorf("parse nodes: %w", err)
	}
	return st, nil
}
// #endregion get-snapshot

// #region list-mutations
// ListMutations returns the last N mutations in chronological order.
func (s *Store) ListMutations(last int) ([]Mutation, error) {
	if last <= 0 {
		last = 50
	}
	rows, err := s.db.Query(
		`SELECT op, node_id, parent_id, kind, payload_json, refusal, created_at FROM (
			SELECT * FROM mutation_log ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`, last,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mutation
	for rows.Next() {
		var m Mutation
		var nodeID, parentID, kind, payloadJSON, refusal sql.NullString
		var createdAt string
		if err := rows.Scan(&m.Op, &nodeID, &parentID, &kind, &payloadJSON, &refusal, &createdAt); err != nil {
			return nil, err
		}
		m.NodeID = nodeID.String
		m.ParentID = parentID.String
		m.Kind = kind.String
		m.PayloadJSON = payloadJSON.String
		m.Refusal = refusal.String
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}
// #endregion list-mutations

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers

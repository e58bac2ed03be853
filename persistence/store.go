// Package persistence is the sqlite-backed replay log and
// memoization-table snapshot of SPEC_FULL.md §4.11. It persists two
// independent things about a run: a row per outer iteration (the
// replay log, which testable property 7 checks by diffing two runs'
// logs) and an optional spill of the in-memory duplicate-state table
// so a long search can resume after a restart. Neither is ever
// authoritative for a running search — the in-memory tables in
// package search are — this package only makes their history durable.
package persistence

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a sqlite database holding replay logs and memoization
// snapshots keyed by run ID, grounded the same way the teacher's
// framework/ast.SQLiteStore opens and schemas its database.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to the sqlite database at path and ensures
// its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: enabling foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS replay_log (
		run_id TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		base_plan_name TEXT NOT NULL,
		selected_action TEXT,
		h_dtg INTEGER NOT NULL,
		h_land INTEGER NOT NULL,
		PRIMARY KEY (run_id, iteration)
	);
	CREATE TABLE IF NOT EXISTS memo_snapshot (
		run_id TEXT NOT NULL,
		state_hash TEXT NOT NULL,
		landmark_hash INTEGER NOT NULL,
		PRIMARY KEY (run_id, state_hash, landmark_hash)
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("persistence: creating schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReplayEntry is one outer iteration's recorded decision.
type ReplayEntry struct {
	RunID          string
	Iteration      int
	BasePlanName   string
	SelectedAction string
	HDTG           int
	HLand          int
}

// AppendReplay records one outer iteration. Re-recording the same
// (run_id, iteration) overwrites the prior row, so a resumed run can
// safely re-append from its last checkpoint.
func (s *Store) AppendReplay(e ReplayEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO replay_log (run_id, iteration, base_plan_name, selected_action, h_dtg, h_land)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, iteration) DO UPDATE SET
			base_plan_name=excluded.base_plan_name,
			selected_action=excluded.selected_action,
			h_dtg=excluded.h_dtg,
			h_land=excluded.h_land
	`, e.RunID, e.Iteration, e.BasePlanName, e.SelectedAction, e.HDTG, e.HLand)
	if err != nil {
		return fmt.Errorf("persistence: appending replay entry: %w", err)
	}
	return nil
}

// Replay returns every recorded iteration for runID in iteration order.
func (s *Store) Replay(runID string) ([]ReplayEntry, error) {
	rows, err := s.db.Query(`
		SELECT run_id, iteration, base_plan_name, selected_action, h_dtg, h_land
		FROM replay_log WHERE run_id = ? ORDER BY iteration ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading replay log for %q: %w", runID, err)
	}
	defer rows.Close()

	var out []ReplayEntry
	for rows.Next() {
		var e ReplayEntry
		var action sql.NullString
		if err := rows.Scan(&e.RunID, &e.Iteration, &e.BasePlanName, &action, &e.HDTG, &e.HLand); err != nil {
			return nil, fmt.Errorf("persistence: scanning replay entry: %w", err)
		}
		e.SelectedAction = action.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoKey identifies one duplicate-state table entry (search.Memo's
// canonical-state/achieved-landmark key, spilled for durability).
type MemoKey struct {
	StateHash    string
	LandmarkHash uint64
}

// SaveMemoSnapshot spills the given keys for runID, replacing any
// snapshot already stored under that run.
func (s *Store) SaveMemoSnapshot(runID string, keys []MemoKey) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("persistence: beginning memo snapshot transaction: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM memo_snapshot WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return fmt.Errorf("persistence: clearing prior memo snapshot: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO memo_snapshot (run_id, state_hash, landmark_hash) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("persistence: preparing memo snapshot insert: %w", err)
	}
	defer stmt.Close()
	for _, k := range keys {
		if _, err := stmt.Exec(runID, k.StateHash, k.LandmarkHash); err != nil {
			tx.Rollback()
			return fmt.Errorf("persistence: inserting memo key: %w", err)
		}
	}
	return tx.Commit()
}

// LoadMemoSnapshot returns the memoization keys saved for runID, if any.
func (s *Store) LoadMemoSnapshot(runID string) ([]MemoKey, error) {
	rows, err := s.db.Query(`SELECT state_hash, landmark_hash FROM memo_snapshot WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("persistence: loading memo snapshot for %q: %w", runID, err)
	}
	defer rows.Close()

	var out []MemoKey
	for rows.Next() {
		var k MemoKey
		if err := rows.Scan(&k.StateHash, &k.LandmarkHash); err != nil {
			return nil, fmt.Errorf("persistence: scanning memo key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

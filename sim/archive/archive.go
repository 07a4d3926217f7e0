// Package archive persists run artifacts and ledgers to a local SQLite
// database so runs can be listed, reloaded and re-verified after the fact.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/collapse-sim/collapse-sim/sim/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	outcome    TEXT NOT NULL DEFAULT '',
	artifacts  BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS ledger_entries (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	tick   INTEGER NOT NULL,
	hash   TEXT NOT NULL,
	entry  BLOB NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// RunInfo is one row of the run listing.
type RunInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Outcome   string `json:"outcome"`
}

// Store is a SQLite-backed archive of simulation runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	logrus.Debugf("archive opened at %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the artifacts document for a named run and returns its ID.
func (s *Store) SaveRun(name, outcome string, artifacts []byte) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (name, created_at, outcome, artifacts) VALUES (?, ?, ?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339), outcome, artifacts,
	)
	if err != nil {
		return 0, fmt.Errorf("save run %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save run %q: %w", name, err)
	}
	logrus.Infof("run %q archived as id %d", name, id)
	return id, nil
}

// SaveLedger stores every ledger entry of a run, exactly as exported, so the
// chain re-verifies byte-for-byte on reload.
func (s *Store) SaveLedger(runID int64, entries []ledger.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save ledger for run %d: %w", runID, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO ledger_entries (run_id, seq, tick, hash, entry) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("save ledger for run %d: %w", runID, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		blob, err := json.Marshal(e)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode ledger entry %d: %w", e.Seq, err)
		}
		if _, err := stmt.Exec(runID, e.Seq, e.Tick, e.Hash, blob); err != nil {
			tx.Rollback()
			return fmt.Errorf("save ledger entry %d: %w", e.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save ledger for run %d: %w", runID, err)
	}
	logrus.Debugf("archived %d ledger entries for run %d", len(entries), runID)
	return nil
}

// LoadLedger reads back a run's ledger entries in sequence order.
func (s *Store) LoadLedger(runID int64) ([]ledger.Entry, error) {
	rows, err := s.db.Query(`SELECT entry FROM ledger_entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load ledger for run %d: %w", runID, err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("load ledger for run %d: %w", runID, err)
		}
		var e ledger.Entry
		if err := json.Unmarshal(blob, &e); err != nil {
			return nil, fmt.Errorf("decode ledger entry for run %d: %w", runID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger for run %d: %w", runID, err)
	}
	return entries, nil
}

// LoadArtifacts reads back a run's artifacts document.
func (s *Store) LoadArtifacts(runID int64) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT artifacts FROM runs WHERE id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifacts for run %d: %w", runID, err)
	}
	return blob, nil
}

// ListRuns returns every archived run, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at, outcome FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.Outcome); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

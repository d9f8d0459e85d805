package propensity

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Mirror is a sqlite-backed secondary index over the propensity log.
// The JSONL file remains the authoritative, append-only record; Mirror
// is derived state kept in step with it so Propensities doesn't have to
// rescan the whole log on every call once a vault accumulates a long
// serve history.
type Mirror struct {
	db *sql.DB
}

// OpenMirror opens (creating if absent) the sqlite mirror at path.
func OpenMirror(path string) (*Mirror, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open propensity mirror: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping propensity mirror: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	query TEXT NOT NULL,
	intent TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	event_id TEXT NOT NULL,
	title TEXT NOT NULL,
	rank INTEGER NOT NULL,
	score REAL NOT NULL,
	was_exploration INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_title ON entries(title);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create propensity mirror schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

func (m *Mirror) Close() error { return m.db.Close() }

// Record mirrors one event into the sqlite side index inside a single
// transaction, keyed by event ID so a re-mirrored event replaces rather
// than duplicates its entries.
func (m *Mirror) Record(e Event) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO events (id, timestamp, query, intent) VALUES (?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Query, e.Intent); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM entries WHERE event_id = ?`, e.ID); err != nil {
		return err
	}
	for _, entry := range e.Entries {
		was := 0
		if entry.WasExploration {
			was = 1
		}
		if _, err := tx.Exec(`INSERT INTO entries (event_id, title, rank, score, was_exploration) VALUES (?, ?, ?, ?, ?)`,
			e.ID, entry.Title, entry.Rank, entry.Score, was); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ComputePropensities runs the counts-of-appearances-over-total-events
// computation as two SQL aggregates instead of a full JSONL scan,
// returning the same shape as the package-level ComputePropensities.
func (m *Mirror) ComputePropensities(epsilon float64) (map[string]float64, error) {
	if epsilon <= 0 {
		epsilon = 0.01
	}

	var total float64
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, err
	}
	if total == 0 {
		return map[string]float64{}, nil
	}

	rows, err := m.db.Query(`SELECT title, COUNT(DISTINCT event_id) FROM entries GROUP BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var title string
		var count float64
		if err := rows.Scan(&title, &count); err != nil {
			return nil, err
		}
		p := count / total
		if p < epsilon {
			p = epsilon
		}
		out[title] = p
	}
	return out, rows.Err()
}
